package store

import (
	"context"
	"time"

	"github.com/cratehq/enrich-cli/internal/model"
)

// ArtistFilter specifies criteria for listing artists.
type ArtistFilter struct {
	Enriched    *bool `json:"enriched,omitempty"`
	Contactable *bool `json:"contactable,omitempty"`
	Limit       int   `json:"limit,omitempty"`
	Offset      int   `json:"offset,omitempty"`
}

// BatchFilter specifies criteria for listing batch jobs.
type BatchFilter struct {
	Status model.BatchStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for the enrichment engine. It
// also satisfies fetch.ScrapeCache and enrich.Cache, so the paid-call
// caches ride the same database.
type Store interface {
	// Artists
	UpsertArtist(ctx context.Context, artist *model.Artist) error
	GetArtist(ctx context.Context, artistID string) (*model.Artist, error)
	ListArtists(ctx context.Context, filter ArtistFilter) ([]model.Artist, error)

	// Enrichment runs. SaveEnrichment writes the updated artist record and
	// the full run result in one transaction.
	SaveEnrichment(ctx context.Context, artist *model.Artist, result *model.EnrichmentResult) error
	GetLatestResult(ctx context.Context, artistID string) (*model.EnrichmentResult, error)

	// Batches. CompleteMember persists the member outcome and the parent
	// batch counters atomically, flipping the batch to completed when the
	// last member lands. ResetFailedMembers reopens the batch.
	CreateBatch(ctx context.Context, name string, artistIDs []string) (*model.BatchJob, error)
	GetBatch(ctx context.Context, batchID string) (*model.BatchJob, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]model.BatchJob, error)
	UpdateBatchStatus(ctx context.Context, batchID string, status model.BatchStatus) error
	NextPendingMember(ctx context.Context, batchID string) (*model.BatchMember, error)
	ListMembers(ctx context.Context, batchID string) ([]model.BatchMember, error)
	CompleteMember(ctx context.Context, member *model.BatchMember, foundEmail bool) error
	ResetFailedMembers(ctx context.Context, batchID string) (int, error)

	// Paid-call cache. Misses are (nil, nil), never an error.
	GetCachedScrape(ctx context.Context, urlHash string) ([]byte, error)
	SetCachedScrape(ctx context.Context, urlHash string, content []byte, ttl time.Duration) error
	GetCachedAnswer(ctx context.Context, promptHash string) ([]byte, error)
	SetCachedAnswer(ctx context.Context, promptHash string, data []byte, ttl time.Duration) error
	DeleteExpiredCache(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
