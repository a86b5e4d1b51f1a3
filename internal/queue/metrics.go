package queue

import (
	"github.com/mediq/patient-queue/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "patientqueue"

var (
	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "admissions_total",
			Help:      "Total patients admitted to the queue by priority",
		},
		[]string{"priority"},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "status_transitions_total",
			Help:      "Total status changes applied to queue entries",
		},
		[]string{"from", "to"},
	)

	selectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "next_selections_total",
			Help:      "Next-to-serve lookups by result",
		},
		[]string{"result"},
	)

	waitingEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "waiting",
			Help:      "Number of WAITING entries by priority",
		},
		[]string{"priority"},
	)
)

func recordAdmission(priority domain.Priority) {
	admissionsTotal.WithLabelValues(string(priority)).Inc()
}

func recordTransition(from, to domain.Status) {
	transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func recordSelection(found bool) {
	result := "empty"
	if found {
		result = "found"
	}
	selectionsTotal.WithLabelValues(result).Inc()
}

// RecordWaiting updates the waiting gauge from per-priority counts.
func RecordWaiting(counts map[domain.Priority]int) {
	for _, p := range domain.Priorities {
		waitingEntries.WithLabelValues(string(p)).Set(float64(counts[p]))
	}
}
