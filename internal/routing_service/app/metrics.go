package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rateImportRowsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routing",
			Name:      "rate_import_rows_total",
			Help:      "Total number of rate-file rows processed.",
		},
		[]string{"outcome"}, // "inserted", "updated", "skipped"
	)

	provisioningRunsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routing",
			Name:      "provisioning_runs_total",
			Help:      "Total number of provisioning runs.",
		},
		[]string{"outcome"}, // "success", "error"
	)

	provisioningStepsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routing",
			Name:      "provisioning_steps_total",
			Help:      "Total number of gateway provisioning steps.",
		},
		[]string{"step", "outcome"}, // outcome: "success", "exists", "skipped", "error"
	)

	provisioningDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "routing",
			Name:      "provisioning_duration_seconds",
			Help:      "Duration of full provisioning runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"outcome"},
	)

	dlrRecordsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routing",
			Name:      "dlr_records_total",
			Help:      "Raw and deduplicated DLR telemetry records.",
		},
		[]string{"kind"}, // "raw", "unique", "duplicate"
	)

	dlrStatusCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routing",
			Name:      "dlr_status_total",
			Help:      "Deduplicated DLR records by reported message status.",
		},
		[]string{"status"},
	)
)
