// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the login server's Prometheus metrics.
type Metrics struct {
	ConnectionsTotal *prometheus.CounterVec
	LoginAttempts    *prometheus.CounterVec
	SessionVerdicts  *prometheus.CounterVec
	LoginDuration    prometheus.Histogram
}

// NewMetrics creates the login metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ue_connections_total",
				Help: "Total number of client connections by transport",
			},
			[]string{"type"},
		),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ue_login_attempts_total",
				Help: "Total number of completed login attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ue_session_verdicts_total",
				Help: "Total number of session authority verdicts by kind",
			},
			[]string{"verdict"},
		),
		LoginDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ue_login_duration_seconds",
			Help:    "Time from receiving credentials to the end of the login attempt",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.ConnectionsTotal, m.LoginAttempts, m.SessionVerdicts, m.LoginDuration)
	return m
}

// RecordConnection counts a new connection on transport.
func (m *Metrics) RecordConnection(transport string) {
	m.ConnectionsTotal.WithLabelValues(transport).Inc()
}

// RecordLogin records the outcome and latency of a finished attempt.
func (m *Metrics) RecordLogin(outcome string, elapsed time.Duration) {
	m.LoginAttempts.WithLabelValues(outcome).Inc()
	m.LoginDuration.Observe(elapsed.Seconds())
}

// RecordVerdict counts a session authority verdict.
func (m *Metrics) RecordVerdict(verdict string) {
	m.SessionVerdicts.WithLabelValues(verdict).Inc()
}
