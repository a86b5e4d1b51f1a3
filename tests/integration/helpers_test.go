//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/mediq/patient-queue/internal/domain"
	"github.com/mediq/patient-queue/internal/testutil"
	"github.com/stretchr/testify/require"
)

var patientSeq atomic.Int64

// newPatient returns an admission payload with a unique NIK.
func newPatient(name, priority string) map[string]any {
	payload := map[string]any{
		"nik":           fmt.Sprintf("3201%012d", patientSeq.Add(1)),
		"nama":          name,
		"tempat_lahir":  "Bandung",
		"tgl_lahir":     "1990-05-17",
		"jenis_kelamin": "L",
		"alamat":        "Jl. Merdeka 1",
		"agama":         "Islam",
	}
	if priority != "" {
		payload["priority"] = priority
	}
	return payload
}

type addResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    domain.QueueEntry `json:"data"`
}

type entryResponse struct {
	Data domain.QueueEntry `json:"data"`
}

type listResponse struct {
	Data       []domain.QueueEntry `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

type statsResponse struct {
	Data domain.QueueStats `json:"data"`
}

// admit adds a patient through the API and returns the created entry.
func admit(t *testing.T, client *testutil.Client, name, priority string) domain.QueueEntry {
	t.Helper()

	resp, err := client.POST("/api/v1/queue", newPatient(name, priority))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result addResponse
	testutil.DecodeJSON(t, resp, &result)
	require.True(t, result.Success)
	return result.Data
}

// setStatus changes an entry status through the API.
func setStatus(t *testing.T, client *testutil.Client, id string, status domain.Status) domain.QueueEntry {
	t.Helper()

	resp, err := client.PATCH("/api/v1/queue/"+id+"/status", map[string]string{"status": string(status)})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result entryResponse
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// getStats reads today's statistics.
func getStats(t *testing.T, client *testutil.Client) domain.QueueStats {
	t.Helper()

	resp, err := client.GET("/api/v1/queue/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result statsResponse
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// cancelAllWaiting cancels every WAITING entry so next-to-serve tests start
// from an empty waiting set. Cancelling goes through the API to keep the
// statistics cache consistent.
func cancelAllWaiting(t *testing.T, client *testutil.Client) {
	t.Helper()

	for {
		resp, err := client.GET("/api/v1/queue?status=WAITING&limit=100")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var list listResponse
		testutil.DecodeJSON(t, resp, &list)
		if len(list.Data) == 0 {
			return
		}

		for _, e := range list.Data {
			resp, err := client.DELETE("/api/v1/queue/" + e.ID)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			_ = resp.Body.Close()
		}
	}
}
