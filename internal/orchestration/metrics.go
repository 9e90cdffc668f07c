package orchestration

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the orchestration collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	tasksTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	fleetAborts  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dpuprov",
				Subsystem: "fleet",
				Name:      "tasks_total",
				Help:      "Total number of node tasks by phase and result",
			},
			[]string{"phase", "result"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dpuprov",
				Subsystem: "device",
				Name:      "step_duration_seconds",
				Help:      "Duration of device operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
			},
			[]string{"operation"},
		),
		fleetAborts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dpuprov",
				Subsystem: "fleet",
				Name:      "aborts_total",
				Help:      "Total number of fleet aborts caused by device failures",
			},
		),
	}
	reg.MustRegister(m.tasksTotal, m.stepDuration, m.fleetAborts)
	return m
}

// Result label values of tasks_total.
const (
	resultSuccess = "success"
	resultFailed  = "failed"
	resultAborted = "aborted"
)

func (m *Metrics) recordTask(phase, result string) {
	if m != nil {
		m.tasksTotal.WithLabelValues(phase, result).Inc()
	}
}

func (m *Metrics) recordStep(operation string, seconds float64) {
	if m != nil {
		m.stepDuration.WithLabelValues(operation).Observe(seconds)
	}
}

func (m *Metrics) recordAbort() {
	if m != nil {
		m.fleetAborts.Inc()
	}
}
