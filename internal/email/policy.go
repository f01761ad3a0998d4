// Package email extracts contact-email candidates from fetched text and
// applies the quality filter that decides which candidates reach the
// aggregator, with what confidence, and why the rest were rejected.
package email

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Policy holds the scoring and rejection rules. The compiled-in defaults
// ship with the binary; a YAML file can override any field for tuning
// without a redeploy.
type Policy struct {
	// SourceConfidence maps a candidate's originating source label to its
	// base confidence.
	SourceConfidence map[string]float64 `yaml:"source_confidence"`

	// AgencyConfidence overrides the base score when the candidate's
	// domain belongs to a known booking agency. Highest signal we have.
	AgencyConfidence float64 `yaml:"agency_confidence"`

	// RolePenalty scales the base score for a role account accepted as a
	// last resort.
	RolePenalty float64 `yaml:"role_penalty"`

	FakeDomains     []string `yaml:"fake_domains"`
	RoleAccounts    []string `yaml:"role_accounts"`
	AgencyDomains   []string `yaml:"agency_domains"`
	FreemailDomains []string `yaml:"freemail_domains"`

	fakeSet   map[string]bool
	roleSet   map[string]bool
	agencySet map[string]bool
	freeSet   map[string]bool
}

// Source labels used by the pipeline steps. Confidence for unknown labels
// falls back to 0.5.
const (
	SourceYouTubeAbout   = "youtube_about"
	SourceInstagramBio   = "instagram_bio"
	SourceLinkInBio      = "linkinbio"
	SourceWebsiteHome    = "website_home"
	SourceWebsiteContact = "website_contact"
	SourceFacebookAbout  = "facebook_about"
	SourceTwitterBio     = "twitter_bio"
	SourceTikTokBio      = "tiktok_bio"
	SourceSpotifyBio     = "spotify_bio"
	SourceAIStructured   = "ai_structured"
	SourceAIText         = "ai_text"
)

// DefaultPolicy returns the compiled-in rules.
func DefaultPolicy() Policy {
	p := Policy{
		SourceConfidence: map[string]float64{
			SourceYouTubeAbout:   0.85,
			SourceInstagramBio:   0.85,
			SourceLinkInBio:      0.80,
			SourceWebsiteHome:    0.80,
			SourceWebsiteContact: 0.90,
			SourceFacebookAbout:  0.70,
			SourceTwitterBio:     0.60,
			SourceTikTokBio:      0.60,
			SourceSpotifyBio:     0.60,
			SourceAIStructured:   0.95,
			SourceAIText:         0.60,
		},
		AgencyConfidence: 0.98,
		RolePenalty:      0.5,
		FakeDomains: []string{
			"example.com", "example.org", "example.net",
			"test.com", "domain.com", "yourdomain.com", "yoursite.com",
			"email.com", "mysite.com", "sitename.com", "website.com",
			"sentry.io", "wixpress.com", "sentry.wixpress.com",
			"godaddy.com", "squarespace.com", "wordpress.com",
		},
		RoleAccounts: []string{
			"info", "support", "noreply", "no-reply", "donotreply",
			"no_reply", "admin", "webmaster", "postmaster", "abuse",
			"privacy", "legal", "billing", "sales", "help",
		},
		AgencyDomains: []string{
			"caa.com", "wmeagency.com", "wmeentertainment.com",
			"unitedtalent.com", "utaagency.com", "paradigmagency.com",
			"wassermanmusic.com", "teamwass.com", "icmpartners.com",
			"highroadtouring.com", "madisonhouseinc.com", "apa-agency.com",
			"mvoagency.com", "tbabooking.com", "groundcontroltouring.com",
			"arrivalartists.com", "pitchperfectpr.com",
		},
		FreemailDomains: []string{
			"gmail.com", "googlemail.com", "yahoo.com", "hotmail.com",
			"outlook.com", "live.com", "msn.com", "aol.com",
			"icloud.com", "me.com", "mac.com", "protonmail.com",
			"proton.me", "gmx.com", "gmx.net", "web.de", "mail.com",
			"yandex.com", "zoho.com",
		},
	}
	p.index()
	return p
}

// LoadPolicy reads rules from path, overlaying the defaults. An empty path
// returns the defaults unchanged.
func LoadPolicy(path string) (Policy, error) {
	base := DefaultPolicy()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrap(err, "email: read policy file")
	}

	var over Policy
	if err := yaml.Unmarshal(data, &over); err != nil {
		return Policy{}, eris.Wrap(err, "email: parse policy file")
	}

	if len(over.SourceConfidence) > 0 {
		for k, v := range over.SourceConfidence {
			base.SourceConfidence[k] = v
		}
	}
	if over.AgencyConfidence > 0 {
		base.AgencyConfidence = over.AgencyConfidence
	}
	if over.RolePenalty > 0 {
		base.RolePenalty = over.RolePenalty
	}
	if len(over.FakeDomains) > 0 {
		base.FakeDomains = over.FakeDomains
	}
	if len(over.RoleAccounts) > 0 {
		base.RoleAccounts = over.RoleAccounts
	}
	if len(over.AgencyDomains) > 0 {
		base.AgencyDomains = over.AgencyDomains
	}
	if len(over.FreemailDomains) > 0 {
		base.FreemailDomains = over.FreemailDomains
	}
	base.index()

	if err := base.Validate(); err != nil {
		return Policy{}, err
	}
	return base, nil
}

// Validate rejects scores outside [0,1] and empty rule lists.
func (p *Policy) Validate() error {
	for src, c := range p.SourceConfidence {
		if c < 0 || c > 1 {
			return eris.Errorf("email: confidence for %q out of range: %f", src, c)
		}
	}
	if p.AgencyConfidence < 0 || p.AgencyConfidence > 1 {
		return eris.Errorf("email: agency confidence out of range: %f", p.AgencyConfidence)
	}
	if p.RolePenalty <= 0 || p.RolePenalty > 1 {
		return eris.Errorf("email: role penalty out of range: %f", p.RolePenalty)
	}
	if len(p.FakeDomains) == 0 || len(p.RoleAccounts) == 0 {
		return eris.New("email: policy must keep fake-domain and role-account lists")
	}
	return nil
}

func (p *Policy) index() {
	p.fakeSet = toSet(p.FakeDomains)
	p.roleSet = toSet(p.RoleAccounts)
	p.agencySet = toSet(p.AgencyDomains)
	p.freeSet = toSet(p.FreemailDomains)
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[strings.ToLower(strings.TrimSpace(it))] = true
	}
	return s
}

func (p *Policy) isFakeDomain(domain string) bool   { return p.fakeSet[domain] }
func (p *Policy) isRoleAccount(local string) bool   { return p.roleSet[local] }
func (p *Policy) isAgencyDomain(domain string) bool { return p.agencySet[domain] }

// IsFreemail reports whether the domain is a generic consumer provider.
// The aggregator prefers named-company domains over these.
func (p *Policy) IsFreemail(domain string) bool { return p.freeSet[strings.ToLower(domain)] }

// BaseConfidence returns the per-source score, defaulting to 0.5 for
// labels the policy does not know.
func (p *Policy) BaseConfidence(source string) float64 {
	if c, ok := p.SourceConfidence[source]; ok {
		return c
	}
	return 0.5
}
