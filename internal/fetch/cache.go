package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/pkg/apify"
)

// ScrapeCache is the slice of the store the fetch layer needs. Implemented
// by store.Store.
type ScrapeCache interface {
	GetCachedScrape(ctx context.Context, urlHash string) ([]byte, error)
	SetCachedScrape(ctx context.Context, urlHash string, content []byte, ttl time.Duration) error
}

// defaultScrapeTTL keeps paid scrape results for a week. Contact pages and
// profile abouts change rarely; re-billing inside the window is waste.
const defaultScrapeTTL = 7 * 24 * time.Hour

// CachedScraper wraps a Scraper with a store-backed TTL cache so re-running
// an artist inside the window does not bill a second scrape for the same
// URL. Cache failures are logged and ignored: a broken cache must never
// block a fetch.
type CachedScraper struct {
	inner Scraper
	cache ScrapeCache
	ttl   time.Duration

	// OnPaid fires once per call that reaches the scrape service, succeed
	// or fail. Cache hits never fire it.
	OnPaid func()
}

// NewCachedScraper wraps inner. A nil cache disables caching.
func NewCachedScraper(inner Scraper, cache ScrapeCache, ttl time.Duration) *CachedScraper {
	if ttl <= 0 {
		ttl = defaultScrapeTTL
	}
	return &CachedScraper{inner: inner, cache: cache, ttl: ttl}
}

// Scrape returns cached items when present, otherwise scrapes and caches
// the result.
func (c *CachedScraper) Scrape(ctx context.Context, pageURL string) ([]apify.Item, error) {
	key := hashURL(pageURL)

	if c.cache != nil {
		cached, err := c.cache.GetCachedScrape(ctx, key)
		if err != nil {
			zap.L().Debug("fetch: scrape cache lookup failed", zap.Error(err))
		}
		if cached != nil {
			var items []apify.Item
			if err := json.Unmarshal(cached, &items); err == nil {
				zap.L().Info("fetch: using cached scrape", zap.String("url", pageURL))
				return items, nil
			}
		}
	}

	if c.OnPaid != nil {
		c.OnPaid()
	}
	items, err := c.inner.Scrape(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	// Empty result sets are not cached: an actor that silently dropped the
	// page this run may render it next run.
	if c.cache != nil && len(items) > 0 {
		if data, marshalErr := json.Marshal(items); marshalErr == nil {
			if cacheErr := c.cache.SetCachedScrape(ctx, key, data, c.ttl); cacheErr != nil {
				zap.L().Debug("fetch: failed to cache scrape", zap.Error(cacheErr))
			}
		}
	}

	return items, nil
}

// hashURL returns a stable cache key for a URL.
func hashURL(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:16])
}
