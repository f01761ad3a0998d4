package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratehq/enrich-cli/internal/model"
)

func TestNewSQLite_InvalidDSN(t *testing.T) {
	// Use a path that cannot be created (nested under a nonexistent parent).
	_, err := NewSQLite("/nonexistent/dir/subdir/test.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

// TestNewSQLite_ValidPath confirms NewSQLite succeeds with a valid path and
// sets up WAL mode properly.
func TestNewSQLite_ValidPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "valid.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NotNil(t, s)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	// Verify WAL mode was set by querying the journal_mode pragma.
	var mode string
	err = s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// TestNewSQLite_CloseAndReopen verifies data written before Close survives a
// reopen of the same file.
func TestNewSQLite_CloseAndReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.Migrate(ctx))

	artist := &model.Artist{Name: "Night Tapes"}
	require.NoError(t, s1.UpsertArtist(ctx, artist))
	require.NoError(t, s1.Close())

	s2, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() }) //nolint:errcheck

	got, err := s2.GetArtist(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, "Night Tapes", got.Name)
}

// TestGetArtist_CorruptJSON covers the error path where the stored artist
// JSON cannot be unmarshalled.
func TestGetArtist_CorruptJSON(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artists (id, name, is_enriched, is_contactable, data, created_at, updated_at)
		 VALUES (?, ?, 0, 0, ?, ?, ?)`,
		"corrupt-artist", "Corrupt", "not-valid-json{{{", now, now,
	)
	require.NoError(t, err)

	_, err = s.GetArtist(ctx, "corrupt-artist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal artist")
}

// TestGetLatestResult_CorruptJSON covers the same path for the run result
// column.
func TestGetLatestResult_CorruptJSON(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_runs (id, artist_id, email_found, cost_usd, result, created_at)
		 VALUES (?, ?, '', 0, ?, ?)`,
		"corrupt-run", "artist-1", "not-valid-json{{{", time.Now().UTC(),
	)
	require.NoError(t, err)

	_, err = s.GetLatestResult(ctx, "artist-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal result")
}

// TestCheckRowsAffected_ZeroRows verifies the "not found" error when no rows
// are affected.
func TestCheckRowsAffected_ZeroRows(t *testing.T) {
	res := &fakeResult{rowsAffected: 0, err: nil}
	err := checkRowsAffected(res, "widget", "abc-123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "widget abc-123")
}

// TestCheckRowsAffected_Error verifies error propagation from RowsAffected().
func TestCheckRowsAffected_Error(t *testing.T) {
	res := &fakeResult{rowsAffected: 0, err: assert.AnError}
	err := checkRowsAffected(res, "widget", "abc-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows affected")
}

// TestCheckRowsAffected_Success verifies nil error when rows > 0.
func TestCheckRowsAffected_Success(t *testing.T) {
	res := &fakeResult{rowsAffected: 1, err: nil}
	err := checkRowsAffected(res, "widget", "abc-123")
	require.NoError(t, err)
}

// TestMemberCounters verifies the mapping from terminal member statuses to
// batch counter deltas.
func TestMemberCounters(t *testing.T) {
	d, err := memberCounters(model.MemberDone, true)
	require.NoError(t, err)
	assert.Equal(t, memberCounterDelta{completed: 1, emails: 1}, d)

	d, err = memberCounters(model.MemberFailed, false)
	require.NoError(t, err)
	assert.Equal(t, memberCounterDelta{failed: 1}, d)

	d, err = memberCounters(model.MemberSkipped, false)
	require.NoError(t, err)
	assert.Equal(t, memberCounterDelta{skipped: 1}, d)

	_, err = memberCounters(model.MemberPending, false)
	require.Error(t, err)
}

// TestClose_OperationsAfterClose verifies that operations fail after Close.
func TestClose_OperationsAfterClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "close.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	// Create an artist and a batch before closing so we have valid IDs.
	ctx := context.Background()
	artist := &model.Artist{Name: "Night Tapes"}
	require.NoError(t, s.UpsertArtist(ctx, artist))
	batch, err := s.CreateBatch(ctx, "pre-close", []string{artist.ID})
	require.NoError(t, err)

	require.NoError(t, s.Close())

	// All operations should now fail with a closed-DB error.
	err = s.UpsertArtist(ctx, &model.Artist{Name: "Other"})
	require.Error(t, err)

	_, err = s.GetArtist(ctx, artist.ID)
	require.Error(t, err)

	_, err = s.ListArtists(ctx, ArtistFilter{})
	require.Error(t, err)

	err = s.SaveEnrichment(ctx, artist, &model.EnrichmentResult{ArtistID: artist.ID})
	require.Error(t, err)

	_, err = s.GetBatch(ctx, batch.ID)
	require.Error(t, err)

	err = s.UpdateBatchStatus(ctx, batch.ID, model.BatchProcessing)
	require.Error(t, err)

	_, err = s.NextPendingMember(ctx, batch.ID)
	require.Error(t, err)

	_, err = s.GetCachedScrape(ctx, "hash")
	require.Error(t, err)

	err = s.SetCachedScrape(ctx, "hash", []byte("x"), time.Hour)
	require.Error(t, err)

	_, err = s.DeleteExpiredCache(ctx)
	require.Error(t, err)

	err = s.Migrate(ctx)
	require.Error(t, err)
}

// -- helpers --

// fakeResult implements sql.Result for testing checkRowsAffected.
type fakeResult struct {
	rowsAffected int64
	err          error
}

func (f *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (f *fakeResult) RowsAffected() (int64, error) { return f.rowsAffected, f.err }

// Verify fakeResult implements sql.Result at compile time.
var _ sql.Result = (*fakeResult)(nil)
