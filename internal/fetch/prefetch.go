package fetch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/platform"
	"github.com/cratehq/enrich-cli/pkg/apify"
)

// Prefetcher bulk-scrapes an artist's URLs in a single actor run before the
// step pipeline starts. One run per artist, no matter how many URLs.
type Prefetcher struct {
	client   apify.Client
	minLen   int
	pollOpts []apify.PollOption
}

// NewPrefetcher creates a Prefetcher. minContentLength filters out thin
// results the pipeline would reject anyway.
func NewPrefetcher(client apify.Client, minContentLength int, pollOpts ...apify.PollOption) *Prefetcher {
	if minContentLength == 0 {
		minContentLength = 100
	}
	return &Prefetcher{client: client, minLen: minContentLength, pollOpts: pollOpts}
}

// Run starts one bulk scrape for the given URLs, waits for it, and returns
// whatever content came back. Missing URLs are normal; the waterfall falls
// through to a direct fetch for them.
func (p *Prefetcher) Run(ctx context.Context, urls []string) (*Prefetched, error) {
	if len(urls) == 0 {
		return &Prefetched{}, nil
	}

	startURLs := make([]apify.StartURL, len(urls))
	for i, u := range urls {
		startURLs[i] = apify.StartURL{URL: u}
	}

	resp, err := p.client.StartRun(ctx, apify.RunRequest{
		StartURLs:     startURLs,
		MaxCrawlDepth: 0,
		MaxCrawlPages: len(urls),
	})
	if err != nil {
		return nil, classifyScrapeErr(err)
	}

	if _, err := apify.PollRun(ctx, p.client, resp.Data.ID, p.pollOpts...); err != nil {
		return nil, eris.Wrap(err, "prefetch: wait for run")
	}

	items, err := p.client.DatasetItems(ctx, resp.Data.ID)
	if err != nil {
		return nil, classifyScrapeErr(err)
	}

	pre := &Prefetched{pages: make(map[string]Page, len(items))}
	for _, item := range items {
		content := item.Content()
		if item.URL == "" || len(content) < p.minLen {
			continue
		}
		key := platform.CanonicalURL(item.URL)
		if key == "" {
			continue
		}
		pre.pages[key] = Page{
			URL:     item.URL,
			Title:   item.Title,
			Content: content,
			Source:  SourcePrefetch,
		}
	}

	zap.L().Info("prefetch: bulk scrape complete",
		zap.Int("requested", len(urls)),
		zap.Int("received", pre.Len()),
	)

	return pre, nil
}

// Prefetched holds bulk-scraped pages keyed by canonical URL. The zero
// value and nil are both valid empty sets.
type Prefetched struct {
	pages map[string]Page
}

// Get returns the pre-fetched page for a URL, if the bulk run produced one.
func (p *Prefetched) Get(rawURL string) (*Page, bool) {
	if p == nil || len(p.pages) == 0 {
		return nil, false
	}
	key := platform.CanonicalURL(rawURL)
	if key == "" {
		return nil, false
	}
	page, ok := p.pages[key]
	if !ok {
		return nil, false
	}
	return &page, true
}

// Len reports how many pages the bulk run produced.
func (p *Prefetched) Len() int {
	if p == nil {
		return 0
	}
	return len(p.pages)
}
