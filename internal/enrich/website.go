package enrich

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/platform"
)

// contactKeywords match anchor text or href segments that point at a
// contact page. "book" alone is avoided: it matches "facebook".
var contactKeywords = []string{"contact", "booking", "management"}

// stepWebsite fetches the homepage, then one contact page: a linked one
// when the homepage navigation has it, otherwise the first conventional
// path that serves content. Contact probes stay on the free tiers; the
// homepage itself gets the full waterfall.
func (p *Pipeline) stepWebsite(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	siteURL := rs.urls[platform.Website]
	if siteURL == "" {
		markSkipped(step, model.SkipNoURL)
		return nil
	}

	res, err := rs.wf.Fetch(ctx, siteURL)
	noteFetch(step, siteURL, res)
	if err != nil {
		return err
	}

	p.harvest(rs, step, res.Page.Content, email.SourceWebsiteHome)
	p.adoptLinks(rs, res.Page.Content)

	// The homepage delivering an address ends the hunt; the contact page
	// would only restate it.
	if rs.hasAccepted() {
		return nil
	}

	// A linked contact page beats guessing at paths.
	if linkURL := findContactLink(siteURL, res.Page.Content); linkURL != "" {
		cres, cerr := rs.wf.FetchFree(ctx, linkURL)
		noteFetch(step, linkURL, cres)
		if cerr == nil {
			p.harvest(rs, step, cres.Page.Content, email.SourceWebsiteContact)
		}
		return nil
	}

	base := strings.TrimSuffix(siteURL, "/")
	for _, path := range p.cfg.Pipeline.ContactPaths {
		if err := ctx.Err(); err != nil {
			return err
		}
		pres, perr := rs.wf.FetchFree(ctx, base+path)
		if perr != nil {
			continue
		}
		noteFetch(step, base+path, pres)
		p.harvest(rs, step, pres.Page.Content, email.SourceWebsiteContact)
		break
	}
	return nil
}

// findContactLink scans homepage anchors for a same-site contact page and
// returns its absolute URL, or "" when the navigation has none.
func findContactLink(baseURL, content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return ""
	}
	baseCanon := platform.CanonicalURL(baseURL)

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		hrefLow := strings.ToLower(href)

		match := false
		for _, kw := range contactKeywords {
			if strings.Contains(text, kw) || strings.Contains(hrefLow, kw) {
				match = true
				break
			}
		}
		if !match {
			return true
		}

		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		if !strings.EqualFold(abs.Host, base.Host) {
			return true
		}

		cu := platform.CanonicalURL(abs.String())
		if cu == "" || cu == baseCanon {
			// Same-page anchor; the homepage harvest covered it.
			return true
		}
		found = cu
		return false
	})
	return found
}
