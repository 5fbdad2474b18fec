package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// AccountRunStore handles database operations for AccountRuns.
type AccountRunStore struct {
	dbtx db.DBTX
}

// NewAccountRunStore creates an AccountRunStore with the given connection.
func NewAccountRunStore(dbtx db.DBTX) *AccountRunStore {
	return &AccountRunStore{dbtx: dbtx}
}

// Create inserts a new AccountRun in status queued.
func (s *AccountRunStore) Create(ctx context.Context, workspaceID, runID, socialAccountID uuid.UUID) (*AccountRun, error) {
	row := s.dbtx.QueryRow(ctx,
		`INSERT INTO account_runs (workspace_id, run_id, social_account_id, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, workspace_id, run_id, social_account_id, status, error_code,
		           started_at, finished_at, created_at, updated_at`,
		workspaceID, runID, socialAccountID, AccountRunStatusQueued,
	)
	return scanAccountRun(row)
}

// GetByID returns an AccountRun by id.
func (s *AccountRunStore) GetByID(ctx context.Context, id uuid.UUID) (*AccountRun, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, workspace_id, run_id, social_account_id, status, error_code,
		        started_at, finished_at, created_at, updated_at
		 FROM account_runs WHERE id = $1`,
		id,
	)
	ar, err := scanAccountRun(row)
	if err != nil {
		return nil, fmt.Errorf("getting account run: %w", err)
	}
	return ar, nil
}

// MarkRunning transitions the AccountRun to running and stamps started_at.
// Only succeeds if status is currently queued or retry_waiting (entry
// guard); returns ok=false with no error if another worker already claimed
// it, matching the "idempotent task receipt" semantics.
func (s *AccountRunStore) MarkRunning(ctx context.Context, id uuid.UUID, at time.Time) (ok bool, err error) {
	tag, err := s.dbtx.Exec(ctx,
		`UPDATE account_runs SET status = $1, started_at = $2, updated_at = now()
		 WHERE id = $3 AND status IN ($4, $5)`,
		AccountRunStatusRunning, at, id, AccountRunStatusQueued, AccountRunStatusRetryWaiting,
	)
	if err != nil {
		return false, fmt.Errorf("marking account run running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Finish stamps an AccountRun's terminal status, error code, and finished_at.
func (s *AccountRunStore) Finish(ctx context.Context, id uuid.UUID, status string, errorCode *string, at time.Time) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE account_runs SET status = $1, error_code = $2, finished_at = $3, updated_at = now()
		 WHERE id = $4`,
		status, errorCode, at, id,
	)
	if err != nil {
		return fmt.Errorf("finishing account run: %w", err)
	}
	return nil
}

func scanAccountRun(row rowScanner) (*AccountRun, error) {
	var ar AccountRun
	err := row.Scan(&ar.ID, &ar.WorkspaceID, &ar.RunID, &ar.SocialAccountID, &ar.Status,
		&ar.ErrorCode, &ar.StartedAt, &ar.FinishedAt, &ar.CreatedAt, &ar.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning account run: %w", err)
	}
	return &ar, nil
}
