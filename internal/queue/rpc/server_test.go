package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAdmitter implements Admitter for testing.
type mockAdmitter struct {
	calls  []queue.AddInput
	result *queue.AddResult
	err    error
}

func (m *mockAdmitter) Add(_ context.Context, input queue.AddInput) (*queue.AddResult, error) {
	m.calls = append(m.calls, input)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func TestServer_AddToQueueMapsRequest(t *testing.T) {
	// Arrange
	admitter := &mockAdmitter{result: &queue.AddResult{
		Success: true,
		Message: queue.AddedMessage,
		Data:    &domain.QueueEntry{ID: "PQ-20240120-001", Priority: domain.PriorityUrgent},
	}}
	srv := NewServer(admitter)

	// Act
	resp, err := srv.AddToQueue(context.Background(), &AddToQueueRequest{
		PatientID:     "123",
		PatientName:   "John",
		Priority:      "urgent",
		InstitutionID: "rs-01",
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Error)
	assert.Equal(t, queue.AddedMessage, resp.Message)

	var data domain.QueueEntry
	require.NoError(t, json.Unmarshal([]byte(resp.DataJSON), &data))
	assert.Equal(t, "PQ-20240120-001", data.ID)

	require.Len(t, admitter.calls, 1)
	input := admitter.calls[0]
	assert.Equal(t, "123", input.PatientID)
	assert.Equal(t, "John", input.PatientName)
	assert.Equal(t, domain.PriorityUrgent, input.Priority)
	assert.Equal(t, Placeholder, input.Address)
	assert.Equal(t, Placeholder, input.Religion)
	assert.Empty(t, input.BirthPlace)
	assert.Empty(t, input.Gender)
}

func TestServer_AddToQueueKeepsSuppliedValues(t *testing.T) {
	admitter := &mockAdmitter{result: &queue.AddResult{Success: true, Data: &domain.QueueEntry{}}}
	srv := NewServer(admitter)

	_, err := srv.AddToQueue(context.Background(), &AddToQueueRequest{
		PatientID:   "1",
		PatientName: "X",
		Address:     "Jl. Braga 5",
		Religion:    "Kristen",
		Note:        "follow-up",
	})
	require.NoError(t, err)

	input := admitter.calls[0]
	assert.Equal(t, "Jl. Braga 5", input.Address)
	assert.Equal(t, "Kristen", input.Religion)
	assert.Equal(t, "follow-up", input.Note)
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Priority
	}{
		{in: "", want: ""},
		{in: "low", want: domain.PriorityLow},
		{in: "Normal", want: domain.PriorityNormal},
		{in: "HIGH", want: domain.PriorityHigh},
		{in: " urgent ", want: domain.PriorityUrgent},
		{in: "critical", want: ""},
		{in: "in_progress", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePriority(tt.in))
		})
	}
}

func TestServer_AddToQueueDefaults(t *testing.T) {
	tests := []struct {
		name     string
		result   *queue.AddResult
		wantMsg  string
		wantData string
	}{
		{
			name:     "empty message uses default",
			result:   &queue.AddResult{Success: true, Data: &domain.QueueEntry{ID: "PQ-1"}},
			wantMsg:  queue.AddedMessage,
			wantData: `"id":"PQ-1"`,
		},
		{
			name:     "custom message kept",
			result:   &queue.AddResult{Success: true, Message: "ok", Data: &domain.QueueEntry{ID: "PQ-2"}},
			wantMsg:  "ok",
			wantData: `"id":"PQ-2"`,
		},
		{
			name:     "missing data encodes empty object",
			result:   &queue.AddResult{Success: true},
			wantMsg:  queue.AddedMessage,
			wantData: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&mockAdmitter{result: tt.result})

			resp, err := srv.AddToQueue(context.Background(), &AddToQueueRequest{PatientID: "1", PatientName: "X"})
			require.NoError(t, err)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.Contains(t, resp.DataJSON, tt.wantData)
		})
	}
}

func TestServer_AddToQueueFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{name: "error message", err: errors.New("boom"), wantErr: "boom"},
		{name: "empty error message", err: errors.New(""), wantErr: FailureCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&mockAdmitter{err: tt.err})

			resp, err := srv.AddToQueue(context.Background(), &AddToQueueRequest{PatientID: "1", PatientName: "X"})
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantErr, resp.Error)
			assert.Empty(t, resp.Message)
			assert.Empty(t, resp.DataJSON)
		})
	}
}

func TestServer_AddToQueueRecoversPanic(t *testing.T) {
	srv := NewServer(panicAdmitter{})

	var resp *AddToQueueResponse
	var err error
	require.NotPanics(t, func() {
		resp, err = srv.AddToQueue(context.Background(), &AddToQueueRequest{PatientID: "1", PatientName: "X"})
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Equal(t, FailureCode, resp.Error)
}
