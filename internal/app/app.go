// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mediq/patient-queue/internal/config"
	"github.com/mediq/patient-queue/internal/pkg/clock"
	"github.com/mediq/patient-queue/internal/pkg/ctxlog"
	"github.com/mediq/patient-queue/internal/pkg/httputil"
	"github.com/mediq/patient-queue/internal/pkg/metrics"
	"github.com/mediq/patient-queue/internal/queue"
	"github.com/mediq/patient-queue/internal/queue/rpc"
	"github.com/mediq/patient-queue/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
)

const metricsInterval = 15 * time.Second

// readinessCheck is one dependency probed by /readyz.
type readinessCheck struct {
	name string
	ping func(ctx context.Context) error
}

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	redis         *goredis.Client
	service       *queue.Service
	checks        []readinessCheck
	server        *http.Server
	metricsServer *http.Server
	grpcServer    *grpc.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance. clk may be nil to use the
// system clock.
func New(cfg *config.Config, clk clock.Clock) (*App, error) {
	logger := initLogger(cfg.Log)

	loc, err := cfg.Queue.Location()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	repo, db, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cache, redisClient, err := openCache(ctx, cfg.Redis)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		redis:         redisClient,
		metricsCancel: metricsCancel,
		service: queue.NewService(repo, cache, clk, queue.Config{
			Location:          loc,
			StrictTransitions: cfg.Queue.StrictTransitions,
		}),
	}

	if pinger, ok := repo.(queue.Pinger); ok {
		app.checks = append(app.checks, readinessCheck{name: "database", ping: pinger.Ping})
	}
	if redisClient != nil {
		app.checks = append(app.checks, readinessCheck{name: "redis", ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	logger.Info("queue configured",
		"storage", cfg.Storage.Driver,
		"cache", cfg.Redis.Enabled,
		"timezone", loc.String(),
		"strict_transitions", cfg.Queue.StrictTransitions,
	)

	go app.collectPoolMetrics(metricsCtx)
	go app.collectQueueMetrics(metricsCtx)

	app.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.GRPC.Enabled {
		app.grpcServer = rpc.NewGRPCServer(logger)
		rpc.Register(app.grpcServer, rpc.NewServer(app.service))
	}

	return app, nil
}

// Run starts the HTTP, metrics and, when enabled, gRPC servers. It blocks
// until the HTTP server stops.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	if a.grpcServer != nil {
		lis, err := net.Listen("tcp", net.JoinHostPort(a.config.Server.Host, a.config.GRPC.Port))
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		go func() {
			a.logger.Info("starting grpc server", "addr", lis.Addr().String())
			if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				a.logger.Error("grpc server error", "error", err)
			}
		}()
	}

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	if a.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			a.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			a.grpcServer.Stop()
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for name, srv := range map[string]*http.Server{"server": a.server, "metrics server": a.metricsServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Service returns the queue service, used by tests and the gRPC server.
func (a *App) Service() *queue.Service {
	return a.service
}

func (a *App) collectPoolMetrics(ctx context.Context) {
	if a.db == nil && a.redis == nil {
		return
	}

	record := func() {
		if a.db != nil {
			metrics.RecordDBPoolMetrics(a.db)
		}
		if a.redis != nil {
			metrics.RecordRedisPoolMetrics(a.redis)
		}
	}
	record()

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			record()
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) collectQueueMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			counts, err := a.service.WaitingByPriority(ctx)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Error("failed to count waiting entries", "error", err)
				}
				continue
			}
			queue.RecordWaiting(counts)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if a.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	}

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})
	r.Get("/docs", docsHandler)

	queueHandler := queue.NewHandler(a.service)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.RateLimitMiddleware(a.config.Server.RateLimitRPS, a.config.Server.RateLimitBurst))
		queueHandler.RegisterRoutes(r)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, check := range a.checks {
		if err := check.ping(ctx); err != nil {
			ctxlog.FromContext(r.Context()).Error("readiness check failed", "dependency", check.name, "error", err)
			httputil.Text(w, http.StatusServiceUnavailable, check.name+" unavailable")
			return
		}
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Patient Queue API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
}

// initLogger builds the process logger and installs it as slog's default.
// Level names follow slog ("debug", "info", "warn", "error").
func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", "patient-queue")
	slog.SetDefault(logger)
	return logger
}
