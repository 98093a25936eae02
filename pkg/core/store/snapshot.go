package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotRepo publishes finished per-company analytics to Postgres so
// downstream dashboards can read them without touching the batch stores.
// Optional; the pipeline runs fine without a DSN configured.
//
// Schema assumption (managed by migrations elsewhere):
//
//	CREATE TABLE IF NOT EXISTS analytics_snapshots (
//	  company_name TEXT PRIMARY KEY,
//	  batch_id TEXT,
//	  analytics_json JSONB,
//	  updated_at TIMESTAMPTZ
//	);
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepo connects to Postgres with the given DSN. The pool is owned
// by the returned repo; callers close it via Close.
func NewSnapshotRepo(ctx context.Context, dsn string) (*SnapshotRepo, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SnapshotRepo{pool: pool}, nil
}

// Close releases the connection pool.
func (r *SnapshotRepo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Save upserts one company's analytics, keyed by company name.
func (r *SnapshotRepo) Save(ctx context.Context, batchID, companyName string, analytics interface{}) error {
	jsonData, err := json.Marshal(analytics)
	if err != nil {
		return fmt.Errorf("marshal analytics for %s: %w", companyName, err)
	}

	query := `
		INSERT INTO analytics_snapshots (company_name, batch_id, analytics_json, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_name)
		DO UPDATE SET
			batch_id = EXCLUDED.batch_id,
			analytics_json = EXCLUDED.analytics_json,
			updated_at = EXCLUDED.updated_at;
	`

	if _, err := r.pool.Exec(ctx, query, companyName, batchID, jsonData, time.Now()); err != nil {
		return fmt.Errorf("save snapshot for %s: %w", companyName, err)
	}
	return nil
}
