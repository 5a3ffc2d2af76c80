package synth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts attempts and jobs. It implements EventLogger.
type Metrics struct {
	attempts *prometheus.CounterVec
	jobs     *prometheus.CounterVec
}

// NewMetrics registers the synthesis counters with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicegen",
			Subsystem: "synthesis",
			Name:      "attempts_total",
			Help:      "Voice service calls by outcome and error kind.",
		}, []string{"outcome", "kind"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicegen",
			Subsystem: "synthesis",
			Name:      "jobs_total",
			Help:      "Finished synthesis jobs by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.jobs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) LogAttempt(ev AttemptEvent) {
	kind := ""
	switch ev.Outcome {
	case OutcomeRetry, OutcomeFatal, OutcomeExhausted:
		kind = ev.Kind.String()
	}
	m.attempts.WithLabelValues(string(ev.Outcome), kind).Inc()
}

func (m *Metrics) LogJob(ev JobEvent) {
	if ev.Outcome == OutcomeStarted {
		return
	}
	m.jobs.WithLabelValues(string(ev.Outcome)).Inc()
}
