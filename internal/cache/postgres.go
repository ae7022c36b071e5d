package cache

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/adverant/kreuzberg-go/internal/kerrors"
)

// PostgresIndex is an optional metadata-only cache index — key, size,
// age — mirroring the teacher's atomic-metadata-row pattern
// (storage/postgres.go's connection-pool setup), used alongside the
// directory cache when KREUZBERG_CACHE_BACKEND=postgres to answer
// Stats() without a directory walk across many worker processes
// sharing one cache volume.
type PostgresIndex struct {
	db *sql.DB
}

// NewPostgresIndex opens databaseURL and ensures the index table exists.
func NewPostgresIndex(databaseURL string) (*PostgresIndex, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, kerrors.Cache("failed to open postgres cache index: " + err.Error())
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, kerrors.Cache("failed to ping postgres cache index: " + err.Error())
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kreuzberg_cache_index (
			cache_key   TEXT PRIMARY KEY,
			size_bytes  BIGINT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`); err != nil {
		return nil, kerrors.Cache("failed to create cache index table: " + err.Error())
	}

	return &PostgresIndex{db: db}, nil
}

// Record upserts the index row for a cache entry written to the
// directory cache.
func (p *PostgresIndex) Record(ctx context.Context, key string, sizeBytes int64, createdAt time.Time) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kreuzberg_cache_index (cache_key, size_bytes, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET size_bytes = $2, created_at = $3`,
		key, sizeBytes, createdAt)
	if err != nil {
		return kerrors.Cache("failed to record cache index entry: " + err.Error())
	}
	return nil
}

// Forget removes the index row for key (the directory file itself is
// removed by the caller).
func (p *PostgresIndex) Forget(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM kreuzberg_cache_index WHERE cache_key = $1`, key)
	if err != nil {
		return kerrors.Cache("failed to forget cache index entry: " + err.Error())
	}
	return nil
}

// Stats aggregates total size and file count without a directory walk.
func (p *PostgresIndex) Stats(ctx context.Context) (*Stats, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0),
		       COALESCE(EXTRACT(EPOCH FROM (now() - MIN(created_at))) / 86400, 0),
		       COALESCE(EXTRACT(EPOCH FROM (now() - MAX(created_at))) / 86400, 0)
		FROM kreuzberg_cache_index`)

	s := &Stats{}
	if err := row.Scan(&s.TotalFiles, &s.TotalBytes, &s.OldestAgeDays, &s.NewestAgeDays); err != nil {
		return nil, kerrors.Cache("failed to query cache index stats: " + err.Error())
	}
	return s, nil
}

func (p *PostgresIndex) Close() error {
	return p.db.Close()
}
