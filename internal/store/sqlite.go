package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cratehq/enrich-cli/internal/model"
)

// ErrNotFound marks lookups and updates that matched no row. Callers that
// serve HTTP map it to 404.
var ErrNotFound = eris.New("store: not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS artists (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	is_enriched    INTEGER NOT NULL DEFAULT 0,
	is_contactable INTEGER NOT NULL DEFAULT 0,
	data           TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id          TEXT PRIMARY KEY,
	artist_id   TEXT NOT NULL,
	email_found TEXT NOT NULL DEFAULT '',
	cost_usd    REAL NOT NULL DEFAULT 0,
	result      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS batches (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	total_artists INTEGER NOT NULL,
	completed     INTEGER NOT NULL DEFAULT 0,
	failed        INTEGER NOT NULL DEFAULT 0,
	skipped       INTEGER NOT NULL DEFAULT 0,
	emails_found  INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'queued',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	started_at    DATETIME,
	completed_at  DATETIME
);

CREATE TABLE IF NOT EXISTS batch_members (
	batch_id      TEXT NOT NULL REFERENCES batches(id),
	artist_id     TEXT NOT NULL,
	position      INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	error         TEXT NOT NULL DEFAULT '',
	failure_class TEXT NOT NULL DEFAULT '',
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (batch_id, position)
);

CREATE TABLE IF NOT EXISTS scrape_cache (
	id         TEXT PRIMARY KEY,
	url_hash   TEXT NOT NULL UNIQUE,
	content    TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS answer_cache (
	id          TEXT PRIMARY KEY,
	prompt_hash TEXT NOT NULL UNIQUE,
	data        TEXT NOT NULL,
	cached_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artists_enriched ON artists(is_enriched);
CREATE INDEX IF NOT EXISTS idx_runs_artist ON enrichment_runs(artist_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
CREATE INDEX IF NOT EXISTS idx_members_status ON batch_members(batch_id, status);
CREATE INDEX IF NOT EXISTS idx_scrape_cache_expires ON scrape_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_answer_cache_expires ON answer_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertArtist(ctx context.Context, artist *model.Artist) error {
	now := time.Now().UTC()
	if artist.ID == "" {
		artist.ID = uuid.New().String()
	}
	if artist.CreatedAt.IsZero() {
		artist.CreatedAt = now
	}
	artist.UpdatedAt = now

	data, err := json.Marshal(artist)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal artist")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artists (id, name, is_enriched, is_contactable, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, is_enriched = excluded.is_enriched,
		   is_contactable = excluded.is_contactable, data = excluded.data,
		   updated_at = excluded.updated_at`,
		artist.ID, artist.Name, boolInt(artist.IsEnriched), boolInt(artist.IsContactable),
		string(data), artist.CreatedAt, artist.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert artist %s", artist.ID)
}

func (s *SQLiteStore) GetArtist(ctx context.Context, artistID string) (*model.Artist, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM artists WHERE id = ?`, artistID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "artist %s", artistID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get artist %s", artistID)
	}

	var a model.Artist
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal artist")
	}
	return &a, nil
}

func (s *SQLiteStore) ListArtists(ctx context.Context, filter ArtistFilter) ([]model.Artist, error) {
	query := `SELECT data FROM artists WHERE 1=1`
	var args []any

	if filter.Enriched != nil {
		query += ` AND is_enriched = ?`
		args = append(args, boolInt(*filter.Enriched))
	}
	if filter.Contactable != nil {
		query += ` AND is_contactable = ?`
		args = append(args, boolInt(*filter.Contactable))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list artists")
	}
	defer rows.Close()

	var artists []model.Artist
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan artist")
		}
		var a model.Artist
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal artist")
		}
		artists = append(artists, a)
	}
	return artists, eris.Wrap(rows.Err(), "sqlite: list artists iterate")
}

func (s *SQLiteStore) SaveEnrichment(ctx context.Context, artist *model.Artist, result *model.EnrichmentResult) error {
	data, err := json.Marshal(artist)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal artist")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save enrichment")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO artists (id, name, is_enriched, is_contactable, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, is_enriched = excluded.is_enriched,
		   is_contactable = excluded.is_contactable, data = excluded.data,
		   updated_at = excluded.updated_at`,
		artist.ID, artist.Name, boolInt(artist.IsEnriched), boolInt(artist.IsContactable),
		string(data), artist.CreatedAt, artist.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save enriched artist %s", artist.ID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO enrichment_runs (id, artist_id, email_found, cost_usd, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), result.ArtistID, result.EmailFound, result.CostUSD,
		string(resultJSON), createdAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run for artist %s", result.ArtistID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save enrichment")
}

func (s *SQLiteStore) GetLatestResult(ctx context.Context, artistID string) (*model.EnrichmentResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM enrichment_runs WHERE artist_id = ?
		 ORDER BY created_at DESC LIMIT 1`,
		artistID,
	).Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest result for %s", artistID)
	}

	var r model.EnrichmentResult
	if err := json.Unmarshal([]byte(resultJSON), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &r, nil
}

func (s *SQLiteStore) CreateBatch(ctx context.Context, name string, artistIDs []string) (*model.BatchJob, error) {
	if len(artistIDs) == 0 {
		return nil, eris.New("sqlite: batch needs at least one artist")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin create batch")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, name, total_artists, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, len(artistIDs), string(model.BatchQueued), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert batch")
	}

	for i, artistID := range artistIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batch_members (batch_id, artist_id, position, status, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, artistID, i, string(model.MemberPending), now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert member %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit create batch")
	}

	return &model.BatchJob{
		ID:           id,
		Name:         name,
		TotalArtists: len(artistIDs),
		Status:       model.BatchQueued,
		CreatedAt:    now,
	}, nil
}

func (s *SQLiteStore) GetBatch(ctx context.Context, batchID string) (*model.BatchJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, total_artists, completed, failed, skipped, emails_found,
		        status, created_at, started_at, completed_at
		 FROM batches WHERE id = ?`,
		batchID,
	)
	b, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "batch %s", batchID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get batch %s", batchID)
	}
	return b, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context, filter BatchFilter) ([]model.BatchJob, error) {
	query := `SELECT id, name, total_artists, completed, failed, skipped, emails_found,
	                 status, created_at, started_at, completed_at
	          FROM batches WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close()

	var batches []model.BatchJob
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch")
		}
		batches = append(batches, *b)
	}
	return batches, eris.Wrap(rows.Err(), "sqlite: list batches iterate")
}

func (s *SQLiteStore) UpdateBatchStatus(ctx context.Context, batchID string, status model.BatchStatus) error {
	now := time.Now().UTC()

	var res sql.Result
	var err error
	switch status {
	case model.BatchProcessing:
		res, err = s.db.ExecContext(ctx,
			`UPDATE batches SET status = ?, started_at = COALESCE(started_at, ?) WHERE id = ?`,
			string(status), now, batchID,
		)
	case model.BatchCancelled, model.BatchCompleted:
		res, err = s.db.ExecContext(ctx,
			`UPDATE batches SET status = ?, completed_at = ? WHERE id = ?`,
			string(status), now, batchID,
		)
	default:
		res, err = s.db.ExecContext(ctx,
			`UPDATE batches SET status = ? WHERE id = ?`,
			string(status), batchID,
		)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: update batch status %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

func (s *SQLiteStore) NextPendingMember(ctx context.Context, batchID string) (*model.BatchMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT batch_id, artist_id, position, status, error, failure_class, updated_at
		 FROM batch_members WHERE batch_id = ? AND status = ?
		 ORDER BY position LIMIT 1`,
		batchID, string(model.MemberPending),
	)

	var m model.BatchMember
	err := row.Scan(&m.BatchID, &m.ArtistID, &m.Position, &m.Status, &m.Error, &m.FailureClass, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: next pending member of %s", batchID)
	}
	return &m, nil
}

func (s *SQLiteStore) ListMembers(ctx context.Context, batchID string) ([]model.BatchMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, artist_id, position, status, error, failure_class, updated_at
		 FROM batch_members WHERE batch_id = ? ORDER BY position`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list members of %s", batchID)
	}
	defer rows.Close()

	var members []model.BatchMember
	for rows.Next() {
		var m model.BatchMember
		if err := rows.Scan(&m.BatchID, &m.ArtistID, &m.Position, &m.Status, &m.Error, &m.FailureClass, &m.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan member")
		}
		members = append(members, m)
	}
	return members, eris.Wrap(rows.Err(), "sqlite: list members iterate")
}

// CompleteMember persists a member outcome and the parent batch counters in
// one transaction. When the last pending member lands, a processing batch
// flips to completed in the same transaction, so Completed+Failed+Skipped
// and the status invariant hold even if the process dies right after.
func (s *SQLiteStore) CompleteMember(ctx context.Context, member *model.BatchMember, foundEmail bool) error {
	counters, err := memberCounters(member.Status, foundEmail)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin complete member")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE batch_members SET status = ?, error = ?, failure_class = ?, updated_at = ?
		 WHERE batch_id = ? AND artist_id = ?`,
		string(member.Status), member.Error, member.FailureClass, now,
		member.BatchID, member.ArtistID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update member %s/%s", member.BatchID, member.ArtistID)
	}
	if err := checkRowsAffected(res, "member", member.ArtistID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE batches SET completed = completed + ?, failed = failed + ?,
		        skipped = skipped + ?, emails_found = emails_found + ?
		 WHERE id = ?`,
		counters.completed, counters.failed, counters.skipped, counters.emails,
		member.BatchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update batch counters %s", member.BatchID)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE batches SET status = ?, completed_at = ?
		 WHERE id = ? AND status = ?
		   AND NOT EXISTS (SELECT 1 FROM batch_members WHERE batch_id = ? AND status = ?)`,
		string(model.BatchCompleted), now,
		member.BatchID, string(model.BatchProcessing),
		member.BatchID, string(model.MemberPending),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete batch %s", member.BatchID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit complete member")
}

// ResetFailedMembers returns failed members to pending, decrements the
// failed counter and reopens the batch, all in one transaction. Returns how
// many members were reset.
func (s *SQLiteStore) ResetFailedMembers(ctx context.Context, batchID string) (int, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin reset failed")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE batch_members SET status = ?, error = '', failure_class = '', updated_at = ?
		 WHERE batch_id = ? AND status = ?`,
		string(model.MemberPending), now, batchID, string(model.MemberFailed),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: reset failed members of %s", batchID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return 0, tx.Commit()
	}

	reopen, err := tx.ExecContext(ctx,
		`UPDATE batches SET failed = failed - ?, status = ?, completed_at = NULL WHERE id = ?`,
		n, string(model.BatchProcessing), batchID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: reopen batch %s", batchID)
	}
	if err := checkRowsAffected(reopen, "batch", batchID); err != nil {
		return 0, err
	}

	return int(n), eris.Wrap(tx.Commit(), "sqlite: commit reset failed")
}

func (s *SQLiteStore) GetCachedScrape(ctx context.Context, urlHash string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM scrape_cache WHERE url_hash = ? AND expires_at > ?`,
		urlHash, time.Now().UTC(),
	).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached scrape")
	}
	return content, nil
}

func (s *SQLiteStore) SetCachedScrape(ctx context.Context, urlHash string, content []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_cache (id, url_hash, content, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (url_hash) DO UPDATE SET
		   content = excluded.content, cached_at = excluded.cached_at,
		   expires_at = excluded.expires_at`,
		uuid.New().String(), urlHash, string(content), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached scrape")
}

func (s *SQLiteStore) GetCachedAnswer(ctx context.Context, promptHash string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM answer_cache WHERE prompt_hash = ? AND expires_at > ?`,
		promptHash, time.Now().UTC(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached answer")
	}
	return data, nil
}

func (s *SQLiteStore) SetCachedAnswer(ctx context.Context, promptHash string, data []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answer_cache (id, prompt_hash, data, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (prompt_hash) DO UPDATE SET
		   data = excluded.data, cached_at = excluded.cached_at,
		   expires_at = excluded.expires_at`,
		uuid.New().String(), promptHash, string(data), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached answer")
}

func (s *SQLiteStore) DeleteExpiredCache(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	total := 0
	for _, table := range []string{"scrape_cache", "answer_cache"} {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE expires_at <= ?`, now,
		)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: sweep %s", table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, eris.Wrap(err, "sqlite: rows affected")
		}
		total += int(n)
	}
	return total, nil
}

// helpers

type memberCounterDelta struct {
	completed, failed, skipped, emails int
}

// memberCounters maps a terminal member status onto batch counter deltas.
func memberCounters(status model.MemberStatus, foundEmail bool) (memberCounterDelta, error) {
	var d memberCounterDelta
	switch status {
	case model.MemberDone:
		d.completed = 1
	case model.MemberFailed:
		d.failed = 1
	case model.MemberSkipped:
		d.skipped = 1
	default:
		return d, eris.Errorf("store: %q is not a terminal member status", status)
	}
	if foundEmail {
		d.emails = 1
	}
	return d, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBatch(row scannable) (*model.BatchJob, error) {
	var b model.BatchJob
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&b.ID, &b.Name, &b.TotalArtists, &b.Completed, &b.Failed,
		&b.Skipped, &b.EmailsFound, &b.Status, &b.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		t := startedAt.Time
		b.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	return &b, nil
}
