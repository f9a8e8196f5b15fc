package offline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Response sources reported in offline_responses_total
const (
	SourceNetwork = "network"
	SourceCache   = "cache"
	SourceShell   = "shell"
	SourceOffline = "offline"
)

// Metrics counts how the worker answered. A nil *Metrics records nothing.
type Metrics struct {
	responses   *prometheus.CounterVec
	activations prometheus.Counter
}

// NewMetrics creates the worker collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "offline_responses_total",
				Help: "Responses served by the offline worker by caching strategy and source",
			},
			[]string{"strategy", "source"},
		),
		activations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "offline_activations_total",
				Help: "Number of worker activations",
			},
		),
	}
	reg.MustRegister(m.responses, m.activations)
	return m
}

func (m *Metrics) response(s Strategy, source string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(s.String(), source).Inc()
}

func (m *Metrics) activated() {
	if m == nil {
		return
	}
	m.activations.Inc()
}
