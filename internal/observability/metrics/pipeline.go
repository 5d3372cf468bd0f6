package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/notescan/internal/core/domain"
)

type PipelineMetrics struct {
	service string

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsInFlight prometheus.Gauge
	stagesTotal  *prometheus.CounterVec
}

func NewPipelineMetrics(service string, registry prometheus.Registerer) *PipelineMetrics {
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total finished pipeline runs by terminal status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds by terminal status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of pipeline runs in progress.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	stagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stages_total",
			Help:      "Total pipeline stage outcomes.",
		},
		[]string{"service", "stage", "status"},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, stagesTotal)

	return &PipelineMetrics{
		service:      service,
		runsTotal:    runsTotal,
		runDuration:  runDuration,
		runsInFlight: runsInFlight,
		stagesTotal:  stagesTotal,
	}
}

func (m *PipelineMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *PipelineMetrics) FinishRun(status domain.ProcessingStatus, durationSeconds float64) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(m.service, string(status)).Inc()
	m.runDuration.WithLabelValues(m.service, string(status)).Observe(durationSeconds)
}

func (m *PipelineMetrics) ObserveStage(stage string, status domain.StepStatus) {
	m.stagesTotal.WithLabelValues(m.service, stage, string(status)).Inc()
}
