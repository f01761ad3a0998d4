package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cratehq/enrich-cli/internal/db"
	"github.com/cratehq/enrich-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. It is the deployment target
// when several workers share one database; SQLite covers the
// single-operator CLI case.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_artist":        `SELECT data FROM artists WHERE id = $1`,
	"next_member":       `SELECT batch_id, artist_id, position, status, error, failure_class, updated_at FROM batch_members WHERE batch_id = $1 AND status = $2 ORDER BY position LIMIT 1`,
	"get_latest_result": `SELECT result FROM enrichment_runs WHERE artist_id = $1 ORDER BY created_at DESC LIMIT 1`,
	"get_scrape_cache":  `SELECT content FROM scrape_cache WHERE url_hash = $1 AND expires_at > now()`,
	"get_answer_cache":  `SELECT data FROM answer_cache WHERE prompt_hash = $1 AND expires_at > now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Tests use this with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS artists (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	is_enriched    BOOLEAN NOT NULL DEFAULT FALSE,
	is_contactable BOOLEAN NOT NULL DEFAULT FALSE,
	data           JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id          TEXT PRIMARY KEY,
	artist_id   TEXT NOT NULL,
	email_found TEXT NOT NULL DEFAULT '',
	cost_usd    DOUBLE PRECISION NOT NULL DEFAULT 0,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
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
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at    TIMESTAMPTZ,
	completed_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS batch_members (
	batch_id      TEXT NOT NULL REFERENCES batches(id),
	artist_id     TEXT NOT NULL,
	position      INTEGER NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	error         TEXT NOT NULL DEFAULT '',
	failure_class TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (batch_id, position)
);

CREATE TABLE IF NOT EXISTS scrape_cache (
	id         TEXT PRIMARY KEY,
	url_hash   TEXT NOT NULL UNIQUE,
	content    JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS answer_cache (
	id          TEXT PRIMARY KEY,
	prompt_hash TEXT NOT NULL UNIQUE,
	data        JSONB NOT NULL,
	cached_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artists_enriched ON artists(is_enriched);
CREATE INDEX IF NOT EXISTS idx_runs_artist ON enrichment_runs(artist_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
CREATE INDEX IF NOT EXISTS idx_members_status ON batch_members(batch_id, status);
CREATE INDEX IF NOT EXISTS idx_scrape_cache_expires ON scrape_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_answer_cache_expires ON answer_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Ping verifies the pool is still usable. The serve command health check
// calls this.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `SELECT 1`)
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) UpsertArtist(ctx context.Context, artist *model.Artist) error {
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
		return eris.Wrap(err, "postgres: marshal artist")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO artists (id, name, is_enriched, is_contactable, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, is_enriched = EXCLUDED.is_enriched,
		   is_contactable = EXCLUDED.is_contactable, data = EXCLUDED.data,
		   updated_at = EXCLUDED.updated_at`,
		artist.ID, artist.Name, artist.IsEnriched, artist.IsContactable,
		data, artist.CreatedAt, artist.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert artist %s", artist.ID)
}

func (s *PostgresStore) GetArtist(ctx context.Context, artistID string) (*model.Artist, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM artists WHERE id = $1`, artistID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "artist %s", artistID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get artist %s", artistID)
	}

	var a model.Artist
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal artist")
	}
	return &a, nil
}

func (s *PostgresStore) ListArtists(ctx context.Context, filter ArtistFilter) ([]model.Artist, error) {
	query := `SELECT data FROM artists WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.Enriched != nil {
		query += fmt.Sprintf(` AND is_enriched = $%d`, argIdx)
		args = append(args, *filter.Enriched)
		argIdx++
	}
	if filter.Contactable != nil {
		query += fmt.Sprintf(` AND is_contactable = $%d`, argIdx)
		args = append(args, *filter.Contactable)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list artists")
	}
	defer rows.Close()

	var artists []model.Artist
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan artist")
		}
		var a model.Artist
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal artist")
		}
		artists = append(artists, a)
	}
	return artists, eris.Wrap(rows.Err(), "postgres: list artists iterate")
}

func (s *PostgresStore) SaveEnrichment(ctx context.Context, artist *model.Artist, result *model.EnrichmentResult) error {
	data, err := json.Marshal(artist)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal artist")
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save enrichment")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO artists (id, name, is_enriched, is_contactable, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, is_enriched = EXCLUDED.is_enriched,
		   is_contactable = EXCLUDED.is_contactable, data = EXCLUDED.data,
		   updated_at = EXCLUDED.updated_at`,
		artist.ID, artist.Name, artist.IsEnriched, artist.IsContactable,
		data, artist.CreatedAt, artist.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save enriched artist %s", artist.ID)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO enrichment_runs (id, artist_id, email_found, cost_usd, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), result.ArtistID, result.EmailFound, result.CostUSD,
		resultJSON, createdAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run for artist %s", result.ArtistID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save enrichment")
}

func (s *PostgresStore) GetLatestResult(ctx context.Context, artistID string) (*model.EnrichmentResult, error) {
	var resultJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM enrichment_runs WHERE artist_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		artistID,
	).Scan(&resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest result for %s", artistID)
	}

	var r model.EnrichmentResult
	if err := json.Unmarshal(resultJSON, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &r, nil
}

func (s *PostgresStore) CreateBatch(ctx context.Context, name string, artistIDs []string) (*model.BatchJob, error) {
	if len(artistIDs) == 0 {
		return nil, eris.New("postgres: batch needs at least one artist")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin create batch")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO batches (id, name, total_artists, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, name, len(artistIDs), string(model.BatchQueued), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert batch")
	}

	members := make([][]any, len(artistIDs))
	for i, artistID := range artistIDs {
		members[i] = []any{id, artistID, i, string(model.MemberPending), now}
	}
	_, err = db.CopyFrom(ctx, tx, "batch_members",
		[]string{"batch_id", "artist_id", "position", "status", "updated_at"}, members)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: copy members")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit create batch")
	}

	return &model.BatchJob{
		ID:           id,
		Name:         name,
		TotalArtists: len(artistIDs),
		Status:       model.BatchQueued,
		CreatedAt:    now,
	}, nil
}

func (s *PostgresStore) GetBatch(ctx context.Context, batchID string) (*model.BatchJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, total_artists, completed, failed, skipped, emails_found,
		        status, created_at, started_at, completed_at
		 FROM batches WHERE id = $1`,
		batchID,
	)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "batch %s", batchID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get batch %s", batchID)
	}
	return b, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, filter BatchFilter) ([]model.BatchJob, error) {
	query := `SELECT id, name, total_artists, completed, failed, skipped, emails_found,
	                 status, created_at, started_at, completed_at
	          FROM batches WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var batches []model.BatchJob
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch")
		}
		batches = append(batches, *b)
	}
	return batches, eris.Wrap(rows.Err(), "postgres: list batches iterate")
}

func (s *PostgresStore) UpdateBatchStatus(ctx context.Context, batchID string, status model.BatchStatus) error {
	now := time.Now().UTC()

	var tag pgconn.CommandTag
	var err error
	switch status {
	case model.BatchProcessing:
		tag, err = s.pool.Exec(ctx,
			`UPDATE batches SET status = $1, started_at = COALESCE(started_at, $2) WHERE id = $3`,
			string(status), now, batchID,
		)
	case model.BatchCancelled, model.BatchCompleted:
		tag, err = s.pool.Exec(ctx,
			`UPDATE batches SET status = $1, completed_at = $2 WHERE id = $3`,
			string(status), now, batchID,
		)
	default:
		tag, err = s.pool.Exec(ctx,
			`UPDATE batches SET status = $1 WHERE id = $2`,
			string(status), batchID,
		)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: update batch status %s", batchID)
	}
	return checkTag(tag, "batch", batchID)
}

func (s *PostgresStore) NextPendingMember(ctx context.Context, batchID string) (*model.BatchMember, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT batch_id, artist_id, position, status, error, failure_class, updated_at
		 FROM batch_members WHERE batch_id = $1 AND status = $2
		 ORDER BY position LIMIT 1`,
		batchID, string(model.MemberPending),
	)

	var m model.BatchMember
	err := row.Scan(&m.BatchID, &m.ArtistID, &m.Position, &m.Status, &m.Error, &m.FailureClass, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: next pending member of %s", batchID)
	}
	return &m, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, batchID string) ([]model.BatchMember, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT batch_id, artist_id, position, status, error, failure_class, updated_at
		 FROM batch_members WHERE batch_id = $1 ORDER BY position`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list members of %s", batchID)
	}
	defer rows.Close()

	var members []model.BatchMember
	for rows.Next() {
		var m model.BatchMember
		if err := rows.Scan(&m.BatchID, &m.ArtistID, &m.Position, &m.Status, &m.Error, &m.FailureClass, &m.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan member")
		}
		members = append(members, m)
	}
	return members, eris.Wrap(rows.Err(), "postgres: list members iterate")
}

func (s *PostgresStore) CompleteMember(ctx context.Context, member *model.BatchMember, foundEmail bool) error {
	counters, err := memberCounters(member.Status, foundEmail)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin complete member")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE batch_members SET status = $1, error = $2, failure_class = $3, updated_at = $4
		 WHERE batch_id = $5 AND artist_id = $6`,
		string(member.Status), member.Error, member.FailureClass, now,
		member.BatchID, member.ArtistID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update member %s/%s", member.BatchID, member.ArtistID)
	}
	if err := checkTag(tag, "member", member.ArtistID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE batches SET completed = completed + $1, failed = failed + $2,
		        skipped = skipped + $3, emails_found = emails_found + $4
		 WHERE id = $5`,
		counters.completed, counters.failed, counters.skipped, counters.emails,
		member.BatchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update batch counters %s", member.BatchID)
	}

	_, err = tx.Exec(ctx,
		`UPDATE batches SET status = $1, completed_at = $2
		 WHERE id = $3 AND status = $4
		   AND NOT EXISTS (SELECT 1 FROM batch_members WHERE batch_id = $5 AND status = $6)`,
		string(model.BatchCompleted), now,
		member.BatchID, string(model.BatchProcessing),
		member.BatchID, string(model.MemberPending),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete batch %s", member.BatchID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit complete member")
}

func (s *PostgresStore) ResetFailedMembers(ctx context.Context, batchID string) (int, error) {
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin reset failed")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE batch_members SET status = $1, error = '', failure_class = '', updated_at = $2
		 WHERE batch_id = $3 AND status = $4`,
		string(model.MemberPending), now, batchID, string(model.MemberFailed),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: reset failed members of %s", batchID)
	}
	n := tag.RowsAffected()
	if n == 0 {
		return 0, tx.Commit(ctx)
	}

	reopen, err := tx.Exec(ctx,
		`UPDATE batches SET failed = failed - $1, status = $2, completed_at = NULL WHERE id = $3`,
		n, string(model.BatchProcessing), batchID,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: reopen batch %s", batchID)
	}
	if err := checkTag(reopen, "batch", batchID); err != nil {
		return 0, err
	}

	return int(n), eris.Wrap(tx.Commit(ctx), "postgres: commit reset failed")
}

func (s *PostgresStore) GetCachedScrape(ctx context.Context, urlHash string) ([]byte, error) {
	var content []byte
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM scrape_cache WHERE url_hash = $1 AND expires_at > now()`,
		urlHash,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached scrape")
	}
	return content, nil
}

func (s *PostgresStore) SetCachedScrape(ctx context.Context, urlHash string, content []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_cache (id, url_hash, content, cached_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (url_hash) DO UPDATE SET
		   content = EXCLUDED.content, cached_at = EXCLUDED.cached_at,
		   expires_at = EXCLUDED.expires_at`,
		uuid.New().String(), urlHash, content, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached scrape")
}

func (s *PostgresStore) GetCachedAnswer(ctx context.Context, promptHash string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM answer_cache WHERE prompt_hash = $1 AND expires_at > now()`,
		promptHash,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached answer")
	}
	return data, nil
}

func (s *PostgresStore) SetCachedAnswer(ctx context.Context, promptHash string, data []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO answer_cache (id, prompt_hash, data, cached_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (prompt_hash) DO UPDATE SET
		   data = EXCLUDED.data, cached_at = EXCLUDED.cached_at,
		   expires_at = EXCLUDED.expires_at`,
		uuid.New().String(), promptHash, data, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached answer")
}

func (s *PostgresStore) DeleteExpiredCache(ctx context.Context) (int, error) {
	total := 0
	for _, table := range []string{"scrape_cache", "answer_cache"} {
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM `+table+` WHERE expires_at <= now()`,
		)
		if err != nil {
			return total, eris.Wrapf(err, "postgres: sweep %s", table)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}

func checkTag(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
