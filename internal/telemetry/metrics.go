package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cratehq/enrich-cli/internal/model"
)

// Metrics exposes enrichment counters and histograms for the /metrics
// endpoint. It implements Sink so the worker feeds it alongside the
// webhook. Paid-call counts are derived from the step records; the bulk
// pre-fetch run is not a step, so spend_usd_total (fed from the run's
// cost accounting) is the authoritative spend figure.
type Metrics struct {
	runs         *prometheus.CounterVec
	emailsFound  prometheus.Counter
	runDuration  prometheus.Histogram
	stepOutcomes *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	paidCalls    *prometheus.CounterVec
	spendUSD     prometheus.Counter
	batchPending *prometheus.GaugeVec
}

// NewMetrics registers the enrichment metrics on reg, normally
// prometheus.DefaultRegisterer. Tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crate",
			Subsystem: "enrich",
			Name:      "runs_total",
			Help:      "Completed enrichment runs by outcome.",
		}, []string{"outcome"}),
		emailsFound: f.NewCounter(prometheus.CounterOpts{
			Namespace: "crate",
			Subsystem: "enrich",
			Name:      "emails_found_total",
			Help:      "Runs that produced an accepted email.",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crate",
			Subsystem: "enrich",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one enrichment run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 180, 300},
		}),
		stepOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crate",
			Subsystem: "enrich",
			Name:      "step_outcomes_total",
			Help:      "Step results by method and status.",
		}, []string{"step", "status"}),
		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crate",
			Subsystem: "enrich",
			Name:      "step_duration_seconds",
			Help:      "Duration of executed steps by method.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"step"}),
		paidCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crate",
			Subsystem: "enrich",
			Name:      "paid_calls_total",
			Help:      "Paid external calls derived from step records.",
		}, []string{"service"}),
		spendUSD: f.NewCounter(prometheus.CounterOpts{
			Namespace: "crate",
			Subsystem: "enrich",
			Name:      "spend_usd_total",
			Help:      "Estimated spend across all runs in USD.",
		}),
		batchPending: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crate",
			Subsystem: "enrich",
			Name:      "batch_pending_members",
			Help:      "Pending members per active batch.",
		}, []string{"batch_id"}),
	}
}

// RunCompleted folds one run into the counters.
func (m *Metrics) RunCompleted(result *model.EnrichmentResult) {
	outcome := "no_email"
	if result.EmailFound != "" {
		outcome = "email_found"
		m.emailsFound.Inc()
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(float64(result.TotalDurationMS) / 1000)
	m.spendUSD.Add(result.CostUSD)

	for _, s := range result.Steps {
		m.stepOutcomes.WithLabelValues(string(s.Method), string(s.Status)).Inc()
		if s.Status == model.StepStatusSuccess || s.Status == model.StepStatusFailed {
			m.stepDuration.WithLabelValues(string(s.Method)).Observe(float64(s.DurationMS) / 1000)
		}
		if s.UsedFallbackScrape {
			m.paidCalls.WithLabelValues("fallback_scrape").Inc()
		}
		switch s.Method {
		case model.StepAIYouTube, model.StepAIInstagram, model.StepAIGeneric:
			if s.Status != model.StepStatusSkipped {
				m.paidCalls.WithLabelValues("ai_search").Inc()
			}
		}
	}
}

// BatchSnapshot tracks batch progress. Terminal batches drop their
// series so completed jobs do not linger on the dashboard.
func (m *Metrics) BatchSnapshot(snap model.BatchSnapshot) {
	if snap.Batch.Status.Terminal() {
		m.batchPending.DeleteLabelValues(snap.Batch.ID)
		return
	}
	m.batchPending.WithLabelValues(snap.Batch.ID).Set(float64(snap.Pending))
}
