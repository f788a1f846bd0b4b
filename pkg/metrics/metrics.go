// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for the passkey server.
// It exposes ceremony outcome counters, HTTP request metrics, and store gauges
// to enable monitoring of relying party health.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all passkey metrics
	Namespace = "passkey"

	// Label names
	LabelCeremony   = "ceremony"
	LabelStatus     = "status"
	LabelStore      = "store"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Ceremony names
	CeremonyRegistration   = "registration"
	CeremonyAuthentication = "authentication"

	// Status values
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

var (
	// CeremoniesTotal tracks the total number of completed ceremony
	// verification attempts by ceremony type and outcome.
	// Use RecordCeremony to increment this counter with the appropriate labels.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_total",
			Help:      "Total number of ceremony verification attempts by type and outcome",
		},
		[]string{LabelCeremony, LabelStatus},
	)

	// CeremonyDuration tracks the server-side duration of ceremony
	// verification in seconds. Buckets are optimized for signature
	// verification latencies.
	CeremonyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ceremony_duration_seconds",
			Help:      "Duration of ceremony verification in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelCeremony},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// StoreEntries tracks the current number of live entries in each
	// in-memory store ("users", "challenges"). Updated by the store
	// cleanup passes.
	StoreEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "store_entries",
			Help:      "Current number of live entries in each in-memory store",
		},
		[]string{LabelStore},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordCeremony records a completed ceremony verification attempt.
//
// Parameters:
//   - ceremony: The ceremony type (use Ceremony* constants)
//   - status: The outcome (use Status* constants)
//
// Example:
//
//	if _, err := svc.FinishLogin(ctx, username, response); err != nil {
//	    RecordCeremony(CeremonyAuthentication, StatusRejected)
//	} else {
//	    RecordCeremony(CeremonyAuthentication, StatusVerified)
//	}
func RecordCeremony(ceremony, status string) {
	if !enabled.Load() {
		return
	}
	CeremoniesTotal.WithLabelValues(ceremony, status).Inc()
}

// RecordCeremonyDuration records the server-side duration of a ceremony
// verification in seconds.
func RecordCeremonyDuration(ceremony string, duration float64) {
	if !enabled.Load() {
		return
	}
	CeremonyDuration.WithLabelValues(ceremony).Observe(duration)
}

// TimeCeremony returns a function that records the elapsed time since the
// call as the ceremony verification duration.
//
// Example:
//
//	defer metrics.TimeCeremony(metrics.CeremonyAuthentication)()
func TimeCeremony(ceremony string) func() {
	start := time.Now()
	return func() {
		RecordCeremonyDuration(ceremony, time.Since(start).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request with its duration and status.
//
// Parameters:
//   - method: The HTTP method (GET, POST, etc.)
//   - statusCode: The HTTP status code as a string
//   - duration: The request duration in seconds
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// SetStoreEntries sets the live entry count gauge for a store.
func SetStoreEntries(store string, count float64) {
	if !enabled.Load() {
		return
	}
	StoreEntries.WithLabelValues(store).Set(count)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
