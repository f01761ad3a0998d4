package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/cratehq/enrich-cli/internal/model"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

func TestMetrics_RunCompleted(t *testing.T) {
	m := newTestMetrics(t)

	m.RunCompleted(&model.EnrichmentResult{
		ArtistID:        "artist-1",
		EmailFound:      "booking@nighttapes.net",
		TotalDurationMS: 42000,
		CostUSD:         0.017,
		Steps: []model.EnrichmentStep{
			{Method: model.StepYouTube, Status: model.StepStatusSuccess, DurationMS: 900},
			{Method: model.StepWebsite, Status: model.StepStatusFailed, DurationMS: 15000, UsedFallbackScrape: true},
			{Method: model.StepAIGeneric, Status: model.StepStatusSkipped},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("email_found")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runs.WithLabelValues("no_email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emailsFound))
	assert.InDelta(t, 0.017, testutil.ToFloat64(m.spendUSD), 1e-9)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepOutcomes.WithLabelValues("youtube", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepOutcomes.WithLabelValues("website", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepOutcomes.WithLabelValues("ai_generic", "skipped")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.paidCalls.WithLabelValues("fallback_scrape")))
	// Skipped AI steps never reached the wire.
	assert.Equal(t, 0.0, testutil.ToFloat64(m.paidCalls.WithLabelValues("ai_search")))
}

func TestMetrics_NoEmailOutcome(t *testing.T) {
	m := newTestMetrics(t)

	m.RunCompleted(&model.EnrichmentResult{
		ArtistID: "artist-2",
		Steps: []model.EnrichmentStep{
			{Method: model.StepAIGeneric, Status: model.StepStatusFailed, DurationMS: 4000},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("no_email")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.emailsFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paidCalls.WithLabelValues("ai_search")))
}

func TestMetrics_AccumulatesAcrossRuns(t *testing.T) {
	m := newTestMetrics(t)

	for i := 0; i < 3; i++ {
		m.RunCompleted(&model.EnrichmentResult{EmailFound: "a@b.com", CostUSD: 0.01})
	}
	m.RunCompleted(&model.EnrichmentResult{CostUSD: 0.02})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.runs.WithLabelValues("email_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("no_email")))
	assert.InDelta(t, 0.05, testutil.ToFloat64(m.spendUSD), 1e-9)
}

func TestMetrics_BatchSnapshot(t *testing.T) {
	m := newTestMetrics(t)

	m.BatchSnapshot(model.BatchSnapshot{
		Batch:   model.BatchJob{ID: "batch-1", Status: model.BatchProcessing, TotalArtists: 10},
		Pending: 7,
	})
	assert.Equal(t, 7.0, testutil.ToFloat64(m.batchPending.WithLabelValues("batch-1")))

	m.BatchSnapshot(model.BatchSnapshot{
		Batch:   model.BatchJob{ID: "batch-1", Status: model.BatchProcessing, TotalArtists: 10},
		Pending: 2,
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.batchPending.WithLabelValues("batch-1")))

	// Completed batches drop their series.
	m.BatchSnapshot(model.BatchSnapshot{
		Batch: model.BatchJob{ID: "batch-1", Status: model.BatchCompleted, TotalArtists: 10},
	})
	assert.Equal(t, 0, testutil.CollectAndCount(m.batchPending))
}

func TestMulti_FansOut(t *testing.T) {
	m := newTestMetrics(t)
	sink := Multi(nil, m)

	sink.RunCompleted(&model.EnrichmentResult{EmailFound: "a@b.com"})
	sink.BatchSnapshot(model.BatchSnapshot{
		Batch:   model.BatchJob{ID: "batch-9", Status: model.BatchProcessing},
		Pending: 4,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.emailsFound))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.batchPending.WithLabelValues("batch-9")))
}
