package model

import "time"

// StepMethod identifies one of the fixed per-platform extraction steps.
// The pipeline runs them in the declared order; cheaper and higher-yield
// sources come first so the expensive AI steps can be skipped.
type StepMethod string

const (
	StepYouTube     StepMethod = "youtube"
	StepInstagram   StepMethod = "instagram"
	StepLinkInBio   StepMethod = "linkinbio"
	StepWebsite     StepMethod = "website"
	StepFacebook    StepMethod = "facebook"
	StepSocials     StepMethod = "socials"
	StepAIYouTube   StepMethod = "ai_youtube"
	StepAIInstagram StepMethod = "ai_instagram"
	StepAIGeneric   StepMethod = "ai_generic"
)

// StepOrder is the canonical pipeline ordering. Aggregation uses the index
// as the final tie-breaker (earlier step wins).
var StepOrder = []StepMethod{
	StepYouTube,
	StepInstagram,
	StepLinkInBio,
	StepWebsite,
	StepFacebook,
	StepSocials,
	StepAIYouTube,
	StepAIInstagram,
	StepAIGeneric,
}

// StepIndex returns the position of m in the canonical ordering, or
// len(StepOrder) for unknown methods so they sort last.
func StepIndex(m StepMethod) int {
	for i, s := range StepOrder {
		if s == m {
			return i
		}
	}
	return len(StepOrder)
}

// StepStatus represents the state of a single enrichment step.
type StepStatus string

const (
	StepStatusPending StepStatus = "pending"
	StepStatusRunning StepStatus = "running"
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// SkipReason explains why a step was skipped rather than run.
type SkipReason string

const (
	SkipNone                SkipReason = ""
	SkipNoURL               SkipReason = "no_url"
	SkipEmailAlreadyFound   SkipReason = "email_already_found"
	SkipUnsupportedPlatform SkipReason = "unsupported_platform"
)

// EmailCategory is the aggregator's priority class for a candidate.
// Booking contacts outrank management, which outranks a platform
// "business inquiries" address, which outranks everything else.
type EmailCategory string

const (
	CategoryBooking         EmailCategory = "booking"
	CategoryManagement      EmailCategory = "management"
	CategoryBusinessInquiry EmailCategory = "business_inquiry"
	CategoryGeneral         EmailCategory = "general"
)

// CategoryRank returns the priority for c; lower ranks win aggregation.
func CategoryRank(c EmailCategory) int {
	switch c {
	case CategoryBooking:
		return 0
	case CategoryManagement:
		return 1
	case CategoryBusinessInquiry:
		return 2
	default:
		return 3
	}
}

// CandidateEmail is one surviving email candidate. Email is lowercased
// before comparison; the normalized address is the uniqueness key when
// candidates from different steps are merged.
type CandidateEmail struct {
	Email      string        `json:"email"`
	Source     string        `json:"source"`
	Confidence float64       `json:"confidence"`
	Category   EmailCategory `json:"category"`
}

// RejectedEmail records a candidate the quality filter refused, with a
// human-readable reason. Kept on the step for observability; rejected
// candidates never reach the aggregator.
type RejectedEmail struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// EnrichmentStep is one attempt at a platform. Steps are append-only once
// created and their status is terminal once written; no step is re-run
// within a single pipeline invocation.
type EnrichmentStep struct {
	Method             StepMethod      `json:"method"`
	Label              string          `json:"label"`
	Status             StepStatus      `json:"status"`
	SkipReason         SkipReason      `json:"skip_reason,omitempty"`
	EmailsFound        []string        `json:"emails_found,omitempty"`
	RejectedEmails     []RejectedEmail `json:"rejected_emails,omitempty"`
	Confidence         float64         `json:"confidence,omitempty"`
	DurationMS         int64           `json:"duration_ms"`
	URLFetched         string          `json:"url_fetched,omitempty"`
	UsedFallbackScrape bool            `json:"used_fallback_scrape"`
	WasBlocked         bool            `json:"was_blocked"`
	ContentLength      int             `json:"content_length"`
	Error              string          `json:"error,omitempty"`
}

// EnrichmentResult is the per-artist outcome of one pipeline invocation.
// Created fresh per run and never mutated after the pipeline returns; the
// caller persists it and merges Discovered* side findings into the artist.
type EnrichmentResult struct {
	ArtistID               string           `json:"artist_id"`
	EmailFound             string           `json:"email_found,omitempty"`
	EmailConfidence        float64          `json:"email_confidence,omitempty"`
	EmailSource            string           `json:"email_source,omitempty"`
	AllEmails              []CandidateEmail `json:"all_emails,omitempty"`
	Steps                  []EnrichmentStep `json:"steps"`
	TotalDurationMS        int64            `json:"total_duration_ms"`
	IsContactable          bool             `json:"is_contactable"`
	DiscoveredWebsite      string           `json:"discovered_website,omitempty"`
	DiscoveredManagement   string           `json:"discovered_management,omitempty"`
	DiscoveredBookingAgent string           `json:"discovered_booking_agent,omitempty"`
	DiscoveredLinktreeURL  string           `json:"discovered_linktree_url,omitempty"`
	DiscoveredYouTubeURL   string           `json:"discovered_youtube_url,omitempty"`
	ErrorDetails           string           `json:"error_details,omitempty"`
	CostUSD                float64          `json:"cost_usd"`
	CreatedAt              time.Time        `json:"created_at"`
}
