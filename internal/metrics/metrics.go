// Package metrics holds the Prometheus collectors of the invoicing core.
//
// Collectors live on a dedicated registry instead of the global default
// so that several stores (and tests) can coexist in one process. The CLI
// writes the registry to a node_exporter textfile after each command.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "vibebill"

// Metrics bundles all collectors registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	// Schema metrics
	MigrationsApplied prometheus.Counter
	SchemaVersion     prometheus.Gauge

	// Invoice metrics
	InvoicesCreated    prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	OverdueSweepMarked prometheus.Counter

	// Payment metrics
	PaymentsRecorded prometheus.Counter
	PaymentsDeleted  prometheus.Counter

	// Store operation metrics
	StoreConflicts     *prometheus.CounterVec
	OperationErrors    *prometheus.CounterVec
	OperationHistogram *prometheus.HistogramVec
}

// New creates a fresh registry and registers all collectors on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		MigrationsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "migrations_applied_total",
			Help:      "Total number of schema migrations applied",
		}),
		SchemaVersion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "schema_version",
			Help:      "Schema version of the opened database",
		}),

		InvoicesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "invoices_created_total",
			Help:      "Total number of invoices created",
		}),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "invoice_status_changes_total",
				Help:      "Total number of explicit invoice status changes",
			},
			[]string{"to"},
		),
		OverdueSweepMarked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "overdue_sweep_marked_total",
			Help:      "Total number of invoices whose status changed during overdue sweeps",
		}),

		PaymentsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "payments_recorded_total",
			Help:      "Total number of payments recorded",
		}),
		PaymentsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "payments_deleted_total",
			Help:      "Total number of payments deleted",
		}),

		StoreConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "store_conflicts_total",
				Help:      "Total number of store operations that hit a locked database",
			},
			[]string{"op"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operation_errors_total",
				Help:      "Total number of failed service operations",
			},
			[]string{"op"},
		),
		OperationHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of service operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

// TrackOperation returns a function that records the duration of op.
//
//	defer m.TrackOperation("create_invoice")(time.Now())
func (m *Metrics) TrackOperation(op string) func(time.Time) {
	return func(start time.Time) {
		m.OperationHistogram.With(prometheus.Labels{"op": op}).Observe(time.Since(start).Seconds())
	}
}

// RecordConflict counts a lock conflict of op.
func (m *Metrics) RecordConflict(op string) {
	m.StoreConflicts.With(prometheus.Labels{"op": op}).Inc()
}

// RecordError counts a failed op.
func (m *Metrics) RecordError(op string) {
	m.OperationErrors.With(prometheus.Labels{"op": op}).Inc()
}

// RecordSchema publishes the outcome of a migration run.
func (m *Metrics) RecordSchema(version, applied int) {
	m.SchemaVersion.Set(float64(version))
	m.MigrationsApplied.Add(float64(applied))
}

// WriteTextfile writes all collectors in the text exposition format,
// atomically replacing path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
