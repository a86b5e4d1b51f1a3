package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "8181"
  read_timeout: 5s
  rate_limit_rps: 50
log:
  level: debug
storage:
  driver: postgres
database:
  url: postgres://queue:queue@db:5432/queue
  max_open_conns: 20
queue:
  timezone: Asia/Jakarta
  strict_transitions: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("PATIENTQUEUE_SERVER__PORT", "9191")
	t.Setenv("PATIENTQUEUE_REDIS__ENABLED", "true")
	t.Setenv("PATIENTQUEUE_REDIS__TTL", "2m")
	t.Setenv("PATIENTQUEUE_CORS__ALLOWED_ORIGINS", "http://a.local,http://b.local")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9191", cfg.Server.Port, "env overrides file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "default kept")
	assert.InDelta(t, 50.0, cfg.Server.RateLimitRPS, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2, cfg.Database.MaxIdleConns)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Queue.StrictTransitions)

	loc, err := cfg.Queue.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", loc.String())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Storage.Driver = StoragePostgres },
			wantErr: "database.url is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage.Driver = "sqlite" },
			wantErr: "storage.driver",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Queue.Timezone = "Mars/Olympus" },
			wantErr: "load timezone",
		},
		{
			name: "redis without ttl",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.TTL = 0
			},
			wantErr: "redis.ttl",
		},
		{
			name: "rate limit without burst",
			mutate: func(c *Config) {
				c.Server.RateLimitRPS = 10
				c.Server.RateLimitBurst = 0
			},
			wantErr: "rate_limit_burst",
		},
		{
			name: "grpc without port",
			mutate: func(c *Config) {
				c.GRPC.Enabled = true
				c.GRPC.Port = ""
			},
			wantErr: "grpc.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", envKey("PATIENTQUEUE_SERVER__PORT"))
	assert.Equal(t, "database.max_open_conns", envKey("PATIENTQUEUE_DATABASE__MAX_OPEN_CONNS"))
	assert.Equal(t, "queue.strict_transitions", envKey("PATIENTQUEUE_QUEUE__STRICT_TRANSITIONS"))
}
