package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromInstruments exports pipeline observations to a prometheus registry.
// It mirrors the collector rather than replacing it: the collector backs
// the engine's own stats view, the instruments back operator dashboards.
type PromInstruments struct {
	tasksTotal   *prometheus.CounterVec
	latency      prometheus.Histogram
	qualityScore prometheus.Histogram
	queueDepth   prometheus.Gauge
}

// NewPromInstruments registers the engine metrics on reg.
func NewPromInstruments(reg prometheus.Registerer) *PromInstruments {
	p := &PromInstruments{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cbvoice_tasks_total",
				Help: "Terminal translation task outcomes",
			},
			[]string{"pair", "status"},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cbvoice_task_duration_seconds",
				Help:    "End-to-end task processing time",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
		),
		qualityScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cbvoice_quality_score",
				Help:    "Measured audio quality scores",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cbvoice_queue_depth",
				Help: "Pending tasks awaiting a batch",
			},
		),
	}

	reg.MustRegister(p.tasksTotal, p.latency, p.qualityScore, p.queueDepth)
	return p
}

// Observe folds one outcome into the exported metrics.
func (p *PromInstruments) Observe(outcome Outcome) {
	status := "failed"
	if outcome.Success {
		status = "succeeded"
	}
	for _, target := range outcome.TargetLangs {
		p.tasksTotal.WithLabelValues(outcome.SourceLang+"-"+target, status).Inc()
	}
	p.latency.Observe(outcome.Latency.Seconds())
	if outcome.QualityScore > 0 {
		p.qualityScore.Observe(outcome.QualityScore)
	}
}

// SetQueueDepth records the pending queue length.
func (p *PromInstruments) SetQueueDepth(depth int) {
	p.queueDepth.Set(float64(depth))
}
