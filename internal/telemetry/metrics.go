// Package telemetry provides application-level observability: slog setup and
// Prometheus metrics. All metrics are registered against the default registry
// and served on the side-channel HTTP listener started by main.go (default
// port 9090, GET /metrics), not on the Gin router, so scrapes bypass
// rate-limiting middleware and the public ingress.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
// The path label holds the Gin route template (e.g. /v1/companies/:id), not
// the raw URL, to prevent unbounded label cardinality.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Audit engine metrics.
//
// AuditRecordsTotal counts records durably written, by action (INSERT, UPDATE,
// DELETE) and table. AuditWriteFailuresTotal counts records lost to the
// swallow-and-log failure policy; a non-zero rate means the trail has gaps and
// should be alerted on even though business operations are unaffected.
var (
	AuditRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_total",
			Help: "Total number of audit records written, by action and table.",
		},
		[]string{"action", "table"},
	)

	AuditWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of audit records dropped because the write failed.",
		},
	)

	AuditShipFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_ship_failures_total",
			Help: "Total number of audit records that failed to reach an external shipper. The database copy is unaffected.",
		},
	)
)

// Database pool gauges, polled by StartDBStatsCollector.
var (
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of established connections in the database pool.",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use.",
		},
	)
)

// StartDBStatsCollector polls db.Stats every 30 seconds and exports the pool
// gauges. Runs until the process exits; call once from main.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := db.Stats()
			DBConnectionsOpen.Set(float64(stats.OpenConnections))
			DBConnectionsInUse.Set(float64(stats.InUse))
		}
	}()
	slog.Debug("database pool stats collector started")
}
