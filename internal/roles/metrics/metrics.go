package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handler names used as label values.
const (
	HandlerRegistration = "registration"
	HandlerRoleChange   = "role_change"
	HandlerReconcile    = "reconcile"
)

// Outcomes of a single handler invocation.
const (
	OutcomeSuccess = "success"
	// OutcomeNoop means the event required no write.
	OutcomeNoop = "noop"
	// OutcomeFailed means the error was returned to the delivering infrastructure.
	OutcomeFailed = "failed"
	// OutcomeSuppressed means a write failed and the error was logged and swallowed.
	OutcomeSuppressed = "suppressed"
)

// Metrics provides observability for the role synchronization handlers.
type Metrics struct {
	// Handler invocations by handler and outcome
	EventsHandled *prometheus.CounterVec

	// Writes by target ("profile", "claims") and result ("ok", "error")
	Writes *prometheus.CounterVec

	// Handler latency including retries
	HandleLatency *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		EventsHandled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rolesync_events_handled_total",
			Help: "Role handler invocations by handler and outcome",
		}, []string{"handler", "outcome"}),

		Writes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rolesync_writes_total",
			Help: "Profile and claim-set writes by target and result",
		}, []string{"target", "result"}),

		HandleLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rolesync_handle_duration_seconds",
			Help:    "Duration of role handler invocations including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"handler"}),
	}
}

// IncrementOutcome records a handler outcome.
func (m *Metrics) IncrementOutcome(handler, outcome string) {
	if m != nil {
		m.EventsHandled.WithLabelValues(handler, outcome).Inc()
	}
}

// IncrementWrite records a write against target.
func (m *Metrics) IncrementWrite(target string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Writes.WithLabelValues(target, result).Inc()
}

// ObserveHandleLatency records how long a handler ran.
func (m *Metrics) ObserveHandleLatency(handler string, d time.Duration) {
	if m != nil {
		m.HandleLatency.WithLabelValues(handler).Observe(d.Seconds())
	}
}
