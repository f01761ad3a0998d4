package fetch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/resilience"
	"github.com/cratehq/enrich-cli/pkg/apify"
)

// Result is the outcome of resolving one URL through the waterfall.
type Result struct {
	Page               *Page
	WasBlocked         bool
	UsedFallbackScrape bool
}

// Waterfall resolves URLs cheapest-first: pre-fetched content, then a
// direct HTTP fetch, then a paid scrape. It tracks paid fallbacks so each
// URL is scraped at most once per artist. Not safe for concurrent use; the
// pipeline creates one per enrichment run.
type Waterfall struct {
	direct  *Direct
	scraper Scraper
	pre     *Prefetched
	breaker *resilience.CircuitBreaker
	backoff time.Duration
	minLen  int

	scraped map[string]bool
}

// WaterfallConfig wires a Waterfall. Scraper, Prefetched, and Breaker may
// be nil: the corresponding tier is skipped.
type WaterfallConfig struct {
	Direct           *Direct
	Scraper          Scraper
	Prefetched       *Prefetched
	Breaker          *resilience.CircuitBreaker
	RateLimitBackoff time.Duration
	MinContentLength int
}

// NewWaterfall creates a per-artist waterfall.
func NewWaterfall(cfg WaterfallConfig) *Waterfall {
	if cfg.RateLimitBackoff == 0 {
		cfg.RateLimitBackoff = 5 * time.Second
	}
	if cfg.MinContentLength == 0 {
		cfg.MinContentLength = 100
	}
	return &Waterfall{
		direct:  cfg.Direct,
		scraper: cfg.Scraper,
		pre:     cfg.Prefetched,
		breaker: cfg.Breaker,
		backoff: cfg.RateLimitBackoff,
		minLen:  cfg.MinContentLength,
		scraped: make(map[string]bool),
	}
}

// Fetch resolves a URL through all three tiers. Any direct-fetch failure
// escalates to the paid scrape.
func (w *Waterfall) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	return w.resolve(ctx, rawURL, escalateAlways)
}

// FetchSmart resolves a URL but pays for a scrape only when the direct
// fetch was blocked. Link-in-bio pages are usually static, so a plain GET
// covers most of them.
func (w *Waterfall) FetchSmart(ctx context.Context, rawURL string) (*Result, error) {
	return w.resolve(ctx, rawURL, escalateOnBlock)
}

// FetchFree resolves a URL using only the free tiers.
func (w *Waterfall) FetchFree(ctx context.Context, rawURL string) (*Result, error) {
	return w.resolve(ctx, rawURL, escalateNever)
}

type escalation int

const (
	escalateAlways escalation = iota
	escalateOnBlock
	escalateNever
)

func (w *Waterfall) resolve(ctx context.Context, rawURL string, mode escalation) (*Result, error) {
	if page, ok := w.pre.Get(rawURL); ok && len(page.Content) >= w.minLen {
		return &Result{Page: page}, nil
	}

	page, directErr := w.direct.Fetch(ctx, rawURL)
	if directErr == nil {
		return &Result{Page: page}, nil
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "fetch: resolve")
	}

	var blockErr *BlockedError
	blocked := errors.As(directErr, &blockErr)

	escalate := mode == escalateAlways || (mode == escalateOnBlock && blocked)
	if !escalate || w.scraper == nil {
		return &Result{WasBlocked: blocked}, directErr
	}

	if w.scraped[rawURL] {
		return &Result{WasBlocked: blocked}, eris.Wrap(directErr, "fetch: fallback scrape already spent")
	}
	w.scraped[rawURL] = true

	page, scrapeErr := w.scrapeOnce(ctx, rawURL)
	if scrapeErr != nil {
		zap.L().Warn("fetch: fallback scrape failed",
			zap.String("url", rawURL),
			zap.Error(scrapeErr),
		)
		return &Result{WasBlocked: blocked, UsedFallbackScrape: true}, scrapeErr
	}

	return &Result{Page: page, WasBlocked: blocked, UsedFallbackScrape: true}, nil
}

// scrapeOnce runs the paid scrape through the circuit breaker, retrying a
// 429 exactly once after a fixed backoff.
func (w *Waterfall) scrapeOnce(ctx context.Context, rawURL string) (*Page, error) {
	retry := resilience.RateLimitOnce(w.backoff)
	retry.OnRetry = resilience.RetryLogger("apify", "scrape")

	items, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]apify.Item, error) {
		if w.breaker == nil {
			items, err := w.scraper.Scrape(ctx, rawURL)
			return items, classifyScrapeErr(err)
		}
		return resilience.ExecuteVal(ctx, w.breaker, func(ctx context.Context) ([]apify.Item, error) {
			items, err := w.scraper.Scrape(ctx, rawURL)
			return items, classifyScrapeErr(err)
		})
	})
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		content := item.Content()
		if len(content) < w.minLen {
			continue
		}
		return &Page{
			URL:     rawURL,
			Title:   item.Title,
			Content: content,
			Source:  SourceScrape,
		}, nil
	}
	return nil, eris.Errorf("fetch: scrape returned no content for %s", rawURL)
}

// classifyScrapeErr maps paid-service failures onto the retry taxonomy:
// a 429 becomes a RateLimitError so the single-retry policy fires.
func classifyScrapeErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *apify.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return resilience.NewRateLimitError("apify", err)
	}
	return err
}
