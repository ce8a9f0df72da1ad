package loader

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/ua"
)

const (
	metricsNamespace = "uanodeset"
	metricsSubsystem = "loader"
)

// Metrics holds the prometheus metrics of a Loader
type Metrics struct {
	nodes       *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "nodes_total",
				Help:      "Nodes added to the backend, by node class.",
			},
			[]string{"class"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "diagnostics_total",
				Help:      "Import diagnostics, by kind and severity.",
			},
			[]string{"kind", "severity"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "import_duration_seconds",
				Help:      "Nodeset import time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"result"}, // "success" or "error"
		),
	}
}

// MustRegister registers the metrics with reg
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.nodes, m.diagnostics, m.duration)
}

func (m *Metrics) observeNode(class ua.NodeClass) {
	m.nodes.WithLabelValues(class.String()).Inc()
}

func (m *Metrics) observeDiagnostics(diags []*nserr.Error) {
	for _, d := range diags {
		m.diagnostics.WithLabelValues(d.Kind.String(), d.Severity.String()).Inc()
	}
}

func (m *Metrics) observeImport(seconds float64, ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	m.duration.WithLabelValues(result).Observe(seconds)
}
