// Package fetch retrieves page content through a three-tier waterfall:
// pre-fetched bulk scrape results, a direct HTTP fetch, and a paid
// rendering scrape as the last resort.
package fetch

import (
	"context"

	"github.com/cratehq/enrich-cli/pkg/apify"
)

// Source identifies which waterfall tier produced a page.
type Source string

const (
	SourcePrefetch Source = "prefetch"
	SourceDirect   Source = "direct"
	SourceScrape   Source = "scrape"
)

// Page is a single fetched document.
type Page struct {
	URL        string
	Title      string
	Content    string
	StatusCode int
	Source     Source
}

// Scraper performs a paid single-URL scrape. apify.Client satisfies it.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) ([]apify.Item, error)
}
