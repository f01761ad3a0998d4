package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratehq/enrich-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// storeTestSuite exercises the Store contract end to end. It runs against
// any driver; TestSQLiteStore wires it to SQLite. Postgres gets equivalent
// coverage from the pgxmock tests in postgres_test.go.
func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("ArtistRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		artist := &model.Artist{
			Name:       "Night Tapes",
			SpotifyURL: "https://open.spotify.com/artist/2qFr8w5sWUITRlzZ9kDgDE",
			SocialLinks: map[string]string{
				"instagram": "https://instagram.com/nighttapes",
			},
		}
		require.NoError(t, s.UpsertArtist(ctx, artist))
		require.NotEmpty(t, artist.ID)

		got, err := s.GetArtist(ctx, artist.ID)
		require.NoError(t, err)
		assert.Equal(t, "Night Tapes", got.Name)
		assert.Equal(t, artist.SpotifyURL, got.SpotifyURL)
		assert.False(t, got.IsEnriched)
	})

	t.Run("EnrichmentLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		artist := &model.Artist{Name: "Night Tapes"}
		require.NoError(t, s.UpsertArtist(ctx, artist))

		result := &model.EnrichmentResult{
			ArtistID:        artist.ID,
			EmailFound:      "bookings@nighttapes.net",
			EmailConfidence: 0.9,
			EmailSource:     "website_contact",
			IsContactable:   true,
			CostUSD:         0.0125,
			CreatedAt:       time.Now().UTC(),
		}
		artist.ApplyResult(result, time.Now().UTC())
		require.NoError(t, s.SaveEnrichment(ctx, artist, result))

		latest, err := s.GetLatestResult(ctx, artist.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "bookings@nighttapes.net", latest.EmailFound)
		assert.InDelta(t, 0.0125, latest.CostUSD, 0.0001)

		got, err := s.GetArtist(ctx, artist.ID)
		require.NoError(t, err)
		assert.True(t, got.IsEnriched)
		assert.True(t, got.IsContactable)
		assert.Equal(t, 1, got.EnrichmentAttempts)
	})

	t.Run("BatchLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		batch, err := s.CreateBatch(ctx, "demo", []string{"a1", "a2"})
		require.NoError(t, err)
		require.NoError(t, s.UpdateBatchStatus(ctx, batch.ID, model.BatchProcessing))

		for {
			m, err := s.NextPendingMember(ctx, batch.ID)
			require.NoError(t, err)
			if m == nil {
				break
			}
			m.Status = model.MemberDone
			require.NoError(t, s.CompleteMember(ctx, m, true))
		}

		final, err := s.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BatchCompleted, final.Status)
		assert.Equal(t, 2, final.Completed)
		assert.Equal(t, 2, final.EmailsFound)
		assert.Equal(t, final.TotalArtists, final.Processed())
	})

	t.Run("CacheMissIsNilNil", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		data, err := s.GetCachedScrape(ctx, "no-such-hash")
		require.NoError(t, err)
		assert.Nil(t, data)

		data, err = s.GetCachedAnswer(ctx, "no-such-prompt")
		require.NoError(t, err)
		assert.Nil(t, data)

		result, err := s.GetLatestResult(ctx, "no-such-artist")
		require.NoError(t, err)
		assert.Nil(t, result)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
