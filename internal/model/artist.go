package model

import "time"

// Artist is the CRM record the enrichment pipeline reads from and writes
// back to. SocialLinks is the raw, historically inconsistent key/value map
// as imported; it is normalized at the platform.Collect boundary and never
// consumed raw anywhere else.
type Artist struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Website            string            `json:"website,omitempty"`
	SpotifyURL         string            `json:"spotify_url,omitempty"`
	SocialLinks        map[string]string `json:"social_links,omitempty"`
	Email              string            `json:"email,omitempty"`
	EmailConfidence    float64           `json:"email_confidence,omitempty"`
	EmailSource        string            `json:"email_source,omitempty"`
	AllEmails          []CandidateEmail  `json:"all_emails,omitempty"`
	IsContactable      bool              `json:"is_contactable"`
	IsEnriched         bool              `json:"is_enriched"`
	LastEnrichedAt     *time.Time        `json:"last_enriched_at,omitempty"`
	EnrichmentAttempts int               `json:"enrichment_attempts"`
	ManagementCompany  string            `json:"management_company,omitempty"`
	BookingAgency      string            `json:"booking_agency,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ApplyResult merges a finished enrichment into the artist record.
// Discovered values only fill gaps: an existing non-empty field is never
// overwritten by a discovered one.
func (a *Artist) ApplyResult(r *EnrichmentResult, now time.Time) {
	a.IsEnriched = true
	a.LastEnrichedAt = &now
	a.EnrichmentAttempts++

	if r.EmailFound != "" {
		a.Email = r.EmailFound
		a.EmailConfidence = r.EmailConfidence
		a.EmailSource = r.EmailSource
		a.IsContactable = true
	}
	if len(r.AllEmails) > 0 {
		a.AllEmails = r.AllEmails
	}
	if a.Website == "" && r.DiscoveredWebsite != "" {
		a.Website = r.DiscoveredWebsite
	}
	if a.ManagementCompany == "" && r.DiscoveredManagement != "" {
		a.ManagementCompany = r.DiscoveredManagement
	}
	if a.BookingAgency == "" && r.DiscoveredBookingAgent != "" {
		a.BookingAgency = r.DiscoveredBookingAgent
	}
	if a.SocialLinks == nil {
		a.SocialLinks = map[string]string{}
	}
	if a.SocialLinks["linktree"] == "" && r.DiscoveredLinktreeURL != "" {
		a.SocialLinks["linktree"] = r.DiscoveredLinktreeURL
	}
	if a.SocialLinks["youtube"] == "" && r.DiscoveredYouTubeURL != "" {
		a.SocialLinks["youtube"] = r.DiscoveredYouTubeURL
	}
	a.UpdatedAt = now
}
