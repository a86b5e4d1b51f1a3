package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/pkg/clock"
	"github.com/mediq/patient-queue/internal/queue"
	"github.com/mediq/patient-queue/internal/queue/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// panicAdmitter panics on every call.
type panicAdmitter struct{}

func (panicAdmitter) Add(context.Context, queue.AddInput) (*queue.AddResult, error) {
	panic("admission exploded")
}

func dial(t *testing.T, srv QueueServiceServer) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(slog.New(slog.DiscardHandler))
	Register(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func TestTransport_AddToQueue(t *testing.T) {
	svc := queue.NewService(
		memory.NewRepository(),
		nil,
		clock.Fake(time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)),
		queue.Config{},
	)
	client := dial(t, NewServer(svc))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.AddToQueue(ctx, &AddToQueueRequest{
		PatientID:   "3201",
		PatientName: "Ani",
		Priority:    "high",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, queue.AddedMessage, resp.Message)

	var entry domain.QueueEntry
	require.NoError(t, json.Unmarshal([]byte(resp.DataJSON), &entry))
	assert.Equal(t, "PQ-20240120-001", entry.ID)
	assert.Equal(t, domain.PriorityHigh, entry.Priority)
	assert.Equal(t, Placeholder, entry.Address)
	assert.Equal(t, Placeholder, entry.Religion)

	stored, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ani", stored.PatientName)
}

func TestTransport_AdmitterPanicReportedInResponse(t *testing.T) {
	client := dial(t, NewServer(panicAdmitter{}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.AddToQueue(ctx, &AddToQueueRequest{PatientID: "1", PatientName: "X"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, FailureCode, resp.Error)
	assert.Empty(t, resp.DataJSON)
}

// panicServer panics outside the admission path, so only the interceptor
// stands between it and the connection.
type panicServer struct{}

func (panicServer) AddToQueue(context.Context, *AddToQueueRequest) (*AddToQueueResponse, error) {
	panic("handler exploded")
}

func TestTransport_HandlerPanicBecomesInternal(t *testing.T) {
	client := dial(t, panicServer{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.AddToQueue(ctx, &AddToQueueRequest{PatientID: "1", PatientName: "X"})
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}
