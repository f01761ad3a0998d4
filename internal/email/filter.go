package email

import (
	"strings"

	"github.com/cratehq/enrich-cli/internal/model"
)

// Reasons recorded on rejected candidates. Free text for humans, stable
// enough to grep.
const (
	ReasonMalformed   = "malformed address"
	ReasonPlaceholder = "placeholder domain"
	ReasonArtifact    = "file artifact"
	ReasonRole        = "role account"
)

// fileArtifactTLDs catch image and asset references the regex mistakes for
// addresses, like logo@2x.png.
var fileArtifactTLDs = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
	"svg": true, "css": true, "js": true, "woff": true, "woff2": true,
	"ico": true, "mp4": true, "webm": true,
}

// Filter applies the quality policy to raw extraction hits.
type Filter struct {
	policy Policy
}

// NewFilter builds a filter over the given policy.
func NewFilter(policy Policy) *Filter {
	return &Filter{policy: policy}
}

// Policy exposes the active rules to the aggregator (freemail checks).
func (f *Filter) Policy() *Policy {
	return &f.policy
}

// Result is the outcome of filtering one step's candidates.
type Result struct {
	Accepted []model.CandidateEmail
	Rejected []model.RejectedEmail
}

// Filter validates, deduplicates, categorizes and scores candidates from
// one step. Role accounts are rejected while any non-role candidate
// survives; when nothing else survived they are accepted as a last resort
// with a confidence penalty. Scores are recomputed from the policy on
// every call, so filtering accepted output again changes nothing.
func (f *Filter) Filter(found []Found, source string) Result {
	var res Result
	var roleHolds []model.CandidateEmail
	seen := map[string]bool{}

	for _, hit := range found {
		addr := Normalize(hit.Email)
		if seen[addr] {
			continue
		}
		seen[addr] = true

		local, domain, ok := splitAddress(addr)
		if !ok {
			res.Rejected = append(res.Rejected, model.RejectedEmail{Email: addr, Reason: ReasonMalformed})
			continue
		}
		if f.policy.isFakeDomain(domain) {
			res.Rejected = append(res.Rejected, model.RejectedEmail{Email: addr, Reason: ReasonPlaceholder})
			continue
		}
		if isFileArtifact(domain) {
			res.Rejected = append(res.Rejected, model.RejectedEmail{Email: addr, Reason: ReasonArtifact})
			continue
		}

		cand := model.CandidateEmail{
			Email:      addr,
			Source:     source,
			Confidence: f.score(source, domain),
			Category:   f.categorize(local, domain, hit.Context),
		}

		if f.policy.isRoleAccount(local) {
			cand.Confidence = clamp(cand.Confidence * f.policy.RolePenalty)
			roleHolds = append(roleHolds, cand)
			continue
		}
		res.Accepted = append(res.Accepted, cand)
	}

	if len(res.Accepted) == 0 {
		res.Accepted = roleHolds
	} else {
		for _, rc := range roleHolds {
			res.Rejected = append(res.Rejected, model.RejectedEmail{Email: rc.Email, Reason: ReasonRole})
		}
	}

	return res
}

func (f *Filter) score(source, domain string) float64 {
	if f.policy.isAgencyDomain(domain) {
		return clamp(f.policy.AgencyConfidence)
	}
	return clamp(f.policy.BaseConfidence(source))
}

func (f *Filter) categorize(local, domain, context string) model.EmailCategory {
	if f.policy.isAgencyDomain(domain) {
		return model.CategoryBooking
	}

	ctx := strings.ToLower(context)
	switch {
	case strings.HasPrefix(local, "booking") || strings.HasPrefix(local, "bookings"):
		return model.CategoryBooking
	case local == "mgmt" || local == "management" || strings.HasPrefix(local, "manage"):
		return model.CategoryManagement
	case strings.Contains(ctx, "booking") || strings.Contains(ctx, "book the band"):
		return model.CategoryBooking
	case strings.Contains(ctx, "management") || strings.Contains(ctx, "mgmt") || strings.Contains(ctx, "manager"):
		return model.CategoryManagement
	case strings.Contains(ctx, "business inquir") || strings.Contains(ctx, "business contact") || strings.Contains(ctx, "for business"):
		return model.CategoryBusinessInquiry
	default:
		return model.CategoryGeneral
	}
}

// Normalize lowercases and trims an address. The normalized string is the
// uniqueness key everywhere candidates are merged.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// splitAddress enforces the structural rules: exactly one @, a non-empty
// local part, a dotted domain, and a TLD of at least two characters.
func splitAddress(addr string) (local, domain string, ok bool) {
	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return "", "", false
	}
	local, domain = parts[0], parts[1]
	if local == "" || domain == "" {
		return "", "", false
	}
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return "", "", false
	}
	if len(domain)-dot-1 < 2 {
		return "", "", false
	}
	return local, domain, true
}

func isFileArtifact(domain string) bool {
	dot := strings.LastIndex(domain, ".")
	if dot < 0 {
		return false
	}
	return fileArtifactTLDs[domain[dot+1:]]
}

func clamp(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
