// Package usage owns the atomic accrual of per-workspace automation
// runtime seconds into WorkspaceUsageMonthly.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// Store handles database operations for workspace usage accounting.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store with the given connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// UpsertSeconds atomically increments the workspace's usage for the given
// period with an engine-native upsert, so that concurrent AccountRun
// completions never lose an increment.
func (s *Store) UpsertSeconds(ctx context.Context, workspaceID uuid.UUID, periodStart time.Time, seconds int64) error {
	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO workspace_usage_monthly (workspace_id, period_start, automation_runtime_seconds)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (workspace_id, period_start)
		 DO UPDATE SET automation_runtime_seconds = workspace_usage_monthly.automation_runtime_seconds + EXCLUDED.automation_runtime_seconds,
		               updated_at = now()`,
		workspaceID, periodStart, seconds,
	)
	if err != nil {
		return fmt.Errorf("upserting workspace usage: %w", err)
	}
	return nil
}

// SecondsForPeriod returns the accrued automation runtime seconds for a
// workspace's current period, or 0 if no row exists yet.
func (s *Store) SecondsForPeriod(ctx context.Context, workspaceID uuid.UUID, periodStart time.Time) (int64, error) {
	var seconds int64
	err := s.dbtx.QueryRow(ctx,
		`SELECT automation_runtime_seconds FROM workspace_usage_monthly WHERE workspace_id = $1 AND period_start = $2`,
		workspaceID, periodStart,
	).Scan(&seconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting workspace usage: %w", err)
	}
	return seconds, nil
}
