package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntitiesTotal counts reconciled entities by type and action
	EntitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_entities_total",
			Help: "Total number of reconciled entities",
		},
		[]string{"entity_type", "action"},
	)

	// EntityErrorsTotal counts per-entity failures recorded for retry
	EntityErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_entity_errors_total",
			Help: "Total number of per-entity sync failures",
		},
		[]string{"entity_type"},
	)

	// PhaseFailuresTotal counts phases whose fetch failed
	PhaseFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_phase_failures_total",
			Help: "Total number of phases aborted by a fetch failure",
		},
		[]string{"entity_type"},
	)

	// RunsTotal counts finished runs by status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"status", "mode"},
	)

	// RunDuration tracks run wall time
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_sync_run_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"mode"},
	)

	// RemoteRequestsTotal counts remote HTTP attempts by service and outcome
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_remote_requests_total",
			Help: "Total number of remote API attempts",
		},
		[]string{"service", "outcome"},
	)

	// BulkUpdatesTotal counts bulk consent updates by result
	BulkUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_bulk_updates_total",
			Help: "Total number of bulk attribute updates",
		},
		[]string{"result"},
	)

	// LastRunTimestamp records when the last run of each mode finished
	LastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_sync_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
		[]string{"status"},
	)
)
