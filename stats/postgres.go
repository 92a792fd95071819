package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// Registers the postgres driver.
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	ensureSnapshotSchemaSQL = `CREATE TABLE IF NOT EXISTS voice_stats_snapshots (
        id BIGSERIAL PRIMARY KEY,
        captured_at TIMESTAMPTZ NOT NULL,
        attempted BIGINT NOT NULL,
        succeeded BIGINT NOT NULL,
        failed BIGINT NOT NULL,
        success_rate DOUBLE PRECISION NOT NULL,
        avg_latency_ms DOUBLE PRECISION NOT NULL,
        language_pairs JSONB NOT NULL
)`
	insertSnapshotSQL = `INSERT INTO voice_stats_snapshots (
        captured_at,
        attempted,
        succeeded,
        failed,
        success_rate,
        avg_latency_ms,
        language_pairs
) VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// PostgresSink appends periodic stats snapshots to a table so usage
// history survives engine restarts. It is optional and best-effort.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewPostgresSink opens the database and ensures the snapshot table.
func NewPostgresSink(ctx context.Context, databaseURL string, logger *zap.SugaredLogger) (*PostgresSink, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open stats database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping stats database: %w", err)
	}
	if _, err := db.ExecContext(ctx, ensureSnapshotSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure stats schema: %w", err)
	}

	return &PostgresSink{db: db, logger: logger}, nil
}

// Write appends one snapshot row.
func (s *PostgresSink) Write(ctx context.Context, view View) error {
	pairs, err := json.Marshal(view.LanguagePairs)
	if err != nil {
		return fmt.Errorf("marshal language pairs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertSnapshotSQL,
		time.Now().UTC(),
		view.Attempted,
		view.Succeeded,
		view.Failed,
		view.SuccessRate,
		view.AverageLatencyMs,
		pairs,
	)
	if err != nil {
		return fmt.Errorf("insert stats snapshot: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
