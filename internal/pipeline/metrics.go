package pipeline

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/blog-cli/internal/annotate"
	"github.com/sells-group/blog-cli/internal/cost"
	"github.com/sells-group/blog-cli/internal/generate"
	"github.com/sells-group/blog-cli/internal/model"
)

const (
	metricsNamespace = "blog"
	metricsSubsystem = "pipeline"
)

// Metrics holds the Prometheus collectors for pipeline runs. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunsInFlight    prometheus.Gauge
	StageDuration   *prometheus.HistogramVec
	FetchTotal      *prometheus.CounterVec
	ImagesAnnotated *prometheus.CounterVec
	BackendTokens   *prometheus.CounterVec
	BackendCost     *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec

	// Pricing converts token usage to BackendCost. Nil skips cost tracking.
	Pricing *cost.Calculator
}

// NewMetrics registers pipeline collectors with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "runs_total",
				Help:      "Total pipeline runs by backend, final status and failure reason",
			},
			[]string{"backend", "status", "reason"},
		),
		RunsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "runs_in_flight",
				Help:      "Pipeline runs currently executing",
			},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "fetch_total",
				Help:      "Fetched identifiers by source kind and outcome",
			},
			[]string{"source", "outcome", "transient"},
		),
		ImagesAnnotated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "images_annotated_total",
				Help:      "Annotated images by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		BackendTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "backend_tokens_total",
				Help:      "Tokens consumed by generation backends",
			},
			[]string{"backend", "model", "direction"},
		),
		BackendCost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "backend_cost_usd_total",
				Help:      "Estimated generation spend in USD",
			},
			[]string{"backend", "model"},
		),
		PublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "publish_failures_total",
				Help:      "Failed publications by sink",
			},
			[]string{"sink"},
		),
	}
}

// ObserveUsage records backend token usage. It satisfies generate.UsageFunc.
func (m *Metrics) ObserveUsage(u generate.Usage) {
	if m == nil {
		return
	}
	m.BackendTokens.WithLabelValues(string(u.Backend), u.Model, "input").Add(float64(u.InputTokens))
	m.BackendTokens.WithLabelValues(string(u.Backend), u.Model, "output").Add(float64(u.OutputTokens))
	if m.Pricing != nil {
		m.BackendCost.WithLabelValues(string(u.Backend), u.Model).
			Add(m.Pricing.Tokens(string(u.Backend), u.Model, u.InputTokens, u.OutputTokens))
	}
}

func (m *Metrics) observeStage(stage Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (m *Metrics) observeFetch(kind model.SourceKind, err error, transient bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.FetchTotal.WithLabelValues(string(kind), outcome, strconv.FormatBool(transient)).Inc()
}

func (m *Metrics) observeAnnotate(mode annotate.Mode, st annotate.Stats) {
	if m == nil {
		return
	}
	m.ImagesAnnotated.WithLabelValues(string(mode), "described").Add(float64(st.Described))
	m.ImagesAnnotated.WithLabelValues(string(mode), "fallback").Add(float64(st.Fallback))
}

func (m *Metrics) observeRun(backend generate.Kind, status model.RunStatus, reason model.FailureReason) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(backend), string(status), string(reason)).Inc()
}

func (m *Metrics) observePublish(warnings []model.Warning) {
	if m == nil {
		return
	}
	for _, w := range warnings {
		m.PublishFailures.WithLabelValues(w.Identifier).Inc()
	}
}

func (m *Metrics) runStarted() func() {
	if m == nil {
		return func() {}
	}
	m.RunsInFlight.Inc()
	return m.RunsInFlight.Dec
}
