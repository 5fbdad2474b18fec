package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// RunStore handles database operations for Runs.
type RunStore struct {
	dbtx db.DBTX
}

// NewRunStore creates a RunStore with the given connection.
func NewRunStore(dbtx db.DBTX) *RunStore {
	return &RunStore{dbtx: dbtx}
}

// Create inserts a new Run in status queued.
func (s *RunStore) Create(ctx context.Context, workspaceID uuid.UUID, scheduleID *uuid.UUID, strategyID uuid.UUID, triggeredBy *uuid.UUID) (*Run, error) {
	row := s.dbtx.QueryRow(ctx,
		`INSERT INTO runs (workspace_id, schedule_id, strategy_id, triggered_by, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, workspace_id, schedule_id, strategy_id, triggered_by, status,
		           started_at, finished_at, created_at, updated_at`,
		workspaceID, scheduleID, strategyID, triggeredBy, RunStatusQueued,
	)
	return scanRun(row)
}

// GetByID returns a Run by id, scoped to a workspace.
func (s *RunStore) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*Run, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, workspace_id, schedule_id, strategy_id, triggered_by, status,
		        started_at, finished_at, created_at, updated_at
		 FROM runs WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// MarkRunning advances a queued Run to running, stamping started_at. A
// no-op (zero rows affected, no error) if the Run is not currently queued,
// since multiple AccountRuns of the same Run race to perform this step.
func (s *RunStore) MarkRunning(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE runs SET status = $1, started_at = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		RunStatusRunning, at, id, RunStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("marking run running: %w", err)
	}
	return nil
}

// CountNonTerminalAccountRuns reports how many AccountRuns of this Run are
// still queued, running, or retry_waiting.
func (s *RunStore) CountNonTerminalAccountRuns(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := s.dbtx.QueryRow(ctx,
		`SELECT count(*) FROM account_runs
		 WHERE run_id = $1 AND status IN ($2, $3, $4)`,
		runID, AccountRunStatusQueued, AccountRunStatusRunning, AccountRunStatusRetryWaiting,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting non-terminal account runs: %w", err)
	}
	return count, nil
}

// CountFailedAccountRuns reports how many AccountRuns of this Run failed.
func (s *RunStore) CountFailedAccountRuns(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := s.dbtx.QueryRow(ctx,
		`SELECT count(*) FROM account_runs WHERE run_id = $1 AND status = $2`,
		runID, AccountRunStatusFailed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting failed account runs: %w", err)
	}
	return count, nil
}

// Finish stamps a Run's terminal status and finished_at.
func (s *RunStore) Finish(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = $2, updated_at = now() WHERE id = $3`,
		status, at, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.WorkspaceID, &r.ScheduleID, &r.StrategyID, &r.TriggeredBy,
		&r.Status, &r.StartedAt, &r.FinishedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return &r, nil
}
