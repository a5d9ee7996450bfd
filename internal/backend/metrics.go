// ABOUTME: Prometheus metrics for calls to the Stellara backend
// ABOUTME: Counts calls and records latency per operation and outcome

package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport"
)

// Metrics records backend call counts and durations. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the backend collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stellara_admin",
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Total number of calls to the Stellara backend",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stellara_admin",
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "Duration of calls to the Stellara backend in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op", "outcome"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	switch {
	case err == nil:
	case IsRejected(err):
		outcome = OutcomeRejected
	default:
		outcome = OutcomeTransport
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}
