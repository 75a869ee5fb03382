package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"clippy/internal/config"
)

// schemaVersion tags the persisted layout. The cache holds in-flight state,
// not an archive: on a version mismatch the cached jobs are dropped and the
// store starts empty rather than migrating.
const schemaVersion = 1

// Cache is the durable SQLite snapshot backing the in-memory store across
// process restarts. All writes are best-effort from the store's point of
// view; a broken cache degrades to memory-only operation.
type Cache struct {
	db   *sql.DB
	path string
}

// OpenCache initializes or connects to the job cache database.
func OpenCache(cfg *config.Config) (*Cache, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{db: db, path: dbPath}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_info (version INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS jobs (
            id TEXT PRIMARY KEY,
            payload TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
	}
	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init cache schema: %w", err)
		}
	}

	var version int
	err := c.db.QueryRowContext(ctx, `SELECT version FROM schema_info LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := c.db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		if _, err := c.db.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
			return fmt.Errorf("reset cache for schema change: %w", err)
		}
		if _, err := c.db.ExecContext(ctx, `UPDATE schema_info SET version = ?`, schemaVersion); err != nil {
			return fmt.Errorf("update schema version: %w", err)
		}
	}
	return nil
}

// SaveJob upserts the full job record.
func (c *Cache) SaveJob(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = c.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, payload, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		job.ID,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// LoadJobs returns all cached jobs. Records that no longer unmarshal are
// skipped so one bad row cannot block recovery.
func (c *Cache) LoadJobs(ctx context.Context) ([]*Job, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT payload FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cached jobs: %w", err)
	}
	defer rows.Close()

	var restored []*Job
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cached job: %w", err)
		}
		var job Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			continue
		}
		if job.ID == "" {
			continue
		}
		restored = append(restored, &job)
	}
	return restored, rows.Err()
}

// DeleteJob removes one cached job record.
func (c *Cache) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID); err != nil {
		return fmt.Errorf("delete cached job: %w", err)
	}
	return nil
}

// DeleteAll removes every cached job record.
func (c *Cache) DeleteAll(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("clear job cache: %w", err)
	}
	return nil
}

// Path returns the cache database location.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
