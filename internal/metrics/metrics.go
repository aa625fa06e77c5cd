// Package metrics exposes Prometheus collectors for upstream traffic and
// report generation, served at /metrics by the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts outbound calls by provider (custody|market) and
	// outcome (ok|error|timeout).
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultfolio_upstream_requests_total",
			Help: "Outbound upstream API calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// PriceCacheLookups counts price cache lookups by cache (current|day_ago)
	// and outcome (hit|miss).
	PriceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultfolio_price_cache_lookups_total",
			Help: "Price cache lookups by cache and outcome",
		},
		[]string{"cache", "outcome"},
	)

	// ReportDuration observes end-to-end portfolio report build time.
	ReportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultfolio_report_duration_seconds",
			Help:    "Portfolio report build duration",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ReportsTotal counts built reports by outcome (ok|partial|error).
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultfolio_reports_total",
			Help: "Portfolio reports built by outcome",
		},
		[]string{"outcome"},
	)
)
