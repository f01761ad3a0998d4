package enrich

import (
	"sort"
	"strings"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/model"
)

// aggregate merges the surviving candidates across steps and crowns one
// winner. No candidates means a completed, not-contactable run; the
// result keeps its zero values.
func (p *Pipeline) aggregate(rs *runState) {
	if len(rs.candidates) == 0 {
		return
	}

	merged := mergeCandidates(rs.candidates)
	sort.SliceStable(merged, func(i, j int) bool { return p.better(merged[i], merged[j]) })

	all := make([]model.CandidateEmail, len(merged))
	for i, c := range merged {
		all[i] = c.CandidateEmail
	}

	best := merged[0]
	rs.result.EmailFound = best.Email
	rs.result.EmailConfidence = best.Confidence
	rs.result.EmailSource = best.Source
	rs.result.AllEmails = all
	rs.result.IsContactable = true
}

// mergeCandidates deduplicates by normalized address. A duplicate keeps
// its best traits from every sighting: highest confidence, strongest
// category, earliest step. The source label stays with the first
// sighting.
func mergeCandidates(cands []stepCandidate) []stepCandidate {
	byAddr := make(map[string]*stepCandidate, len(cands))
	var order []string

	for _, c := range cands {
		key := email.Normalize(c.Email)
		cur, ok := byAddr[key]
		if !ok {
			dup := c
			dup.Email = key
			byAddr[key] = &dup
			order = append(order, key)
			continue
		}
		if c.Confidence > cur.Confidence {
			cur.Confidence = c.Confidence
		}
		if model.CategoryRank(c.Category) < model.CategoryRank(cur.Category) {
			cur.Category = c.Category
		}
		if model.StepIndex(c.step) < model.StepIndex(cur.step) {
			cur.step = c.step
		}
	}

	out := make([]stepCandidate, 0, len(order))
	for _, key := range order {
		out = append(out, *byAddr[key])
	}
	return out
}

// better is the winner ordering: category first, then an address on a
// named company domain over freemail, then confidence, then the earlier
// step. The address itself is the final tiebreak so ordering is total.
func (p *Pipeline) better(a, b stepCandidate) bool {
	if ra, rb := model.CategoryRank(a.Category), model.CategoryRank(b.Category); ra != rb {
		return ra < rb
	}
	if an, bn := p.namedDomain(a.Email), p.namedDomain(b.Email); an != bn {
		return an
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if ia, ib := model.StepIndex(a.step), model.StepIndex(b.step); ia != ib {
		return ia < ib
	}
	return a.Email < b.Email
}

// namedDomain reports whether the address lives on something other than
// a freemail provider. booking@artistname.com beats artist@gmail.com at
// equal category.
func (p *Pipeline) namedDomain(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return false
	}
	return !p.filter.Policy().IsFreemail(addr[at+1:])
}
