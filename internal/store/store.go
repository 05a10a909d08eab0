// Package store persists scenario outcomes to PostgreSQL so CI can chart a flow's
// history. It is optional; the harness runs without a database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS verification_runs (
    run_id          UUID PRIMARY KEY,
    scenario        TEXT NOT NULL,
    base_url        TEXT NOT NULL,
    status          TEXT NOT NULL,
    failure_kind    TEXT NOT NULL DEFAULT '',
    failure_reason  TEXT NOT NULL DEFAULT '',
    failed_step     TEXT NOT NULL DEFAULT '',
    capture_errors  TEXT[] NOT NULL DEFAULT '{}',
    release_error   TEXT NOT NULL DEFAULT '',
    trace           JSONB NOT NULL DEFAULT '[]',
    started_at      TIMESTAMPTZ NOT NULL,
    finished_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS verification_runs_scenario_idx ON verification_runs (scenario, started_at DESC);
CREATE TABLE IF NOT EXISTS verification_artifacts (
    run_id       UUID NOT NULL REFERENCES verification_runs (run_id) ON DELETE CASCADE,
    path         TEXT NOT NULL,
    state        TEXT NOT NULL,
    captured_at  TIMESTAMPTZ NOT NULL,
    bytes        INTEGER NOT NULL
);
`

const insertRunSQL = `
INSERT INTO verification_runs (run_id, scenario, base_url, status, failure_kind, failure_reason,
    failed_step, capture_errors, release_error, trace, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (run_id) DO NOTHING;
`

const recentRunsSQL = `
SELECT run_id, scenario, base_url, status, failure_kind, failure_reason, failed_step,
    capture_errors, release_error, started_at, finished_at
FROM verification_runs
WHERE ($1 = '' OR scenario = $1)
ORDER BY started_at DESC
LIMIT $2;
`

var artifactColumns = []string{"run_id", "path", "state", "captured_at", "bytes"}

// Store provides a PostgreSQL record of scenario outcomes.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Migrate creates the history tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordOutcome writes one outcome and its artifacts in a single transaction. Recording
// the same run twice is a no-op for the run row.
func (s *Store) RecordOutcome(ctx context.Context, o *schemas.ScenarioOutcome) error {
	trace, err := json.Marshal(o.Trace)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	captureErrors := o.CaptureErrors
	if captureErrors == nil {
		captureErrors = []string{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	tag, err := tx.Exec(ctx, insertRunSQL,
		o.RunID, o.Scenario, o.BaseURL, string(o.Status),
		o.FailureKind, o.FailureReason, o.FailedStep,
		captureErrors, o.ReleaseError, string(trace),
		o.StartedAt.UTC(), o.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", o.RunID, err)
	}

	if tag.RowsAffected() > 0 && len(o.Artifacts) > 0 {
		rows := make([][]interface{}, len(o.Artifacts))
		for i, a := range o.Artifacts {
			rows[i] = []interface{}{o.RunID, a.Path, string(a.State), a.CapturedAt.UTC(), a.Bytes}
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"verification_artifacts"}, artifactColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy artifacts: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("mismatch in copied artifacts count: expected %d, got %d", len(rows), n)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Recorded outcome.", zap.String("run_id", o.RunID), zap.Int("artifacts", len(o.Artifacts)))
	return nil
}

// RunSummary is one row of run history.
type RunSummary struct {
	RunID         string
	Scenario      string
	BaseURL       string
	Status        schemas.OutcomeStatus
	FailureKind   string
	FailureReason string
	FailedStep    string
	CaptureErrors []string
	ReleaseError  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// RecentRuns returns up to limit runs, newest first. An empty scenario matches all.
func (s *Store) RecentRuns(ctx context.Context, scenario string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, recentRunsSQL, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var status string
		if err := rows.Scan(
			&r.RunID, &r.Scenario, &r.BaseURL, &status,
			&r.FailureKind, &r.FailureReason, &r.FailedStep,
			&r.CaptureErrors, &r.ReleaseError,
			&r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Status = schemas.OutcomeStatus(status)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
