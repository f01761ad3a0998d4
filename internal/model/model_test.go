package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from BatchStatus
		to   BatchStatus
		want bool
	}{
		{"queued to processing", BatchQueued, BatchProcessing, true},
		{"queued to cancelled", BatchQueued, BatchCancelled, true},
		{"queued to paused", BatchQueued, BatchPaused, false},
		{"queued to completed", BatchQueued, BatchCompleted, false},
		{"processing to paused", BatchProcessing, BatchPaused, true},
		{"processing to cancelled", BatchProcessing, BatchCancelled, true},
		{"processing to completed", BatchProcessing, BatchCompleted, true},
		{"processing to queued", BatchProcessing, BatchQueued, false},
		{"paused to processing", BatchPaused, BatchProcessing, true},
		{"paused to cancelled", BatchPaused, BatchCancelled, true},
		{"paused to completed", BatchPaused, BatchCompleted, false},
		{"completed is terminal", BatchCompleted, BatchProcessing, false},
		{"cancelled is terminal", BatchCancelled, BatchProcessing, false},
		{"cancelled stays cancelled", BatchCancelled, BatchCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestBatchStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, BatchCompleted.Terminal())
	assert.True(t, BatchCancelled.Terminal())
	assert.False(t, BatchQueued.Terminal())
	assert.False(t, BatchProcessing.Terminal())
	assert.False(t, BatchPaused.Terminal())
}

func TestBatchJobProcessed(t *testing.T) {
	t.Parallel()

	b := &BatchJob{TotalArtists: 10, Completed: 4, Failed: 2, Skipped: 1}
	assert.Equal(t, 7, b.Processed())
	assert.LessOrEqual(t, b.Processed(), b.TotalArtists)
}

func TestApplyResultFillsGapsOnly(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Artist{
		ID:      "a1",
		Name:    "Night Tapes",
		Website: "https://nighttapes.com",
	}
	r := &EnrichmentResult{
		ArtistID:               "a1",
		EmailFound:             "booking@caa.com",
		EmailConfidence:        0.98,
		EmailSource:            "youtube",
		AllEmails:              []CandidateEmail{{Email: "booking@caa.com", Source: "youtube", Confidence: 0.98, Category: CategoryBooking}},
		DiscoveredWebsite:      "https://other-site.example.net",
		DiscoveredManagement:   "Mgmt Co",
		DiscoveredBookingAgent: "CAA",
		DiscoveredYouTubeURL:   "https://www.youtube.com/@nighttapes",
	}

	a.ApplyResult(r, now)

	assert.Equal(t, "booking@caa.com", a.Email)
	assert.Equal(t, 0.98, a.EmailConfidence)
	assert.True(t, a.IsContactable)
	assert.True(t, a.IsEnriched)
	assert.Equal(t, 1, a.EnrichmentAttempts)

	// Existing website must not be overwritten by the discovered one.
	assert.Equal(t, "https://nighttapes.com", a.Website)

	// Gaps are filled.
	assert.Equal(t, "Mgmt Co", a.ManagementCompany)
	assert.Equal(t, "CAA", a.BookingAgency)
	assert.Equal(t, "https://www.youtube.com/@nighttapes", a.SocialLinks["youtube"])
}

func TestApplyResultNoEmail(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	a := &Artist{ID: "a2", Name: "Unknown Act"}
	r := &EnrichmentResult{ArtistID: "a2"}

	a.ApplyResult(r, now)

	assert.Empty(t, a.Email)
	assert.False(t, a.IsContactable)
	assert.True(t, a.IsEnriched)
	assert.Equal(t, 1, a.EnrichmentAttempts)
}

func TestStepIndexOrdering(t *testing.T) {
	t.Parallel()

	assert.Less(t, StepIndex(StepYouTube), StepIndex(StepInstagram))
	assert.Less(t, StepIndex(StepSocials), StepIndex(StepAIYouTube))
	assert.Equal(t, len(StepOrder), StepIndex(StepMethod("bogus")))
}

func TestCategoryRank(t *testing.T) {
	t.Parallel()

	assert.Less(t, CategoryRank(CategoryBooking), CategoryRank(CategoryManagement))
	assert.Less(t, CategoryRank(CategoryManagement), CategoryRank(CategoryBusinessInquiry))
	assert.Less(t, CategoryRank(CategoryBusinessInquiry), CategoryRank(CategoryGeneral))
	assert.Equal(t, CategoryRank(CategoryGeneral), CategoryRank(EmailCategory("unknown")))
}
