// Package metrics provides Prometheus metrics for the shop service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shop"

var (
	// ConstraintViolationsTotal counts writes rejected by a named constraint
	ConstraintViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "constraint_violations_total",
			Help:      "Total number of writes rejected by a database constraint",
		},
		[]string{"entity", "kind", "constraint"},
	)

	RepositoryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "repository_errors_total",
			Help:      "Total number of unexpected repository errors",
		},
		[]string{"entity", "operation"},
	)

	// CascadeDeletedRows counts rows removed by cascading deletes per table
	CascadeDeletedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "cascade_deleted_rows_total",
			Help:      "Total number of rows removed by cascading deletes",
		},
		[]string{"root", "table"},
	)

	IdentityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "events_total",
			Help:      "Total number of identity events consumed by type and status",
		},
		[]string{"type", "status"},
	)

	PriceListImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricelist",
			Name:      "imports_total",
			Help:      "Total number of price list imports by status",
		},
		[]string{"status"},
	)

	PriceListImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricelist",
			Name:      "import_duration_seconds",
			Help:      "Duration of price list imports in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

func RecordConstraintViolation(entity, kind, constraint string) {
	ConstraintViolationsTotal.WithLabelValues(entity, kind, constraint).Inc()
}

func RecordRepositoryError(entity, operation string) {
	RepositoryErrorsTotal.WithLabelValues(entity, operation).Inc()
}

// RecordCascade records the rows a delete rooted at root removed.
func RecordCascade(root string, rows map[string]int64) {
	for table, n := range rows {
		CascadeDeletedRows.WithLabelValues(root, table).Add(float64(n))
	}
}

func RecordIdentityEvent(eventType, status string) {
	IdentityEventsTotal.WithLabelValues(eventType, status).Inc()
}

func RecordPriceListImport(status string, durationSeconds float64) {
	PriceListImportsTotal.WithLabelValues(status).Inc()
	PriceListImportDuration.Observe(durationSeconds)
}
