package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// ActionStore handles database operations for Actions.
type ActionStore struct {
	dbtx db.DBTX
}

// NewActionStore creates an ActionStore with the given connection.
func NewActionStore(dbtx db.DBTX) *ActionStore {
	return &ActionStore{dbtx: dbtx}
}

// GetByIdempotencyKey returns the Action with the given
// (workspace_id, idempotency_key), or (nil, nil) if none exists.
func (s *ActionStore) GetByIdempotencyKey(ctx context.Context, workspaceID uuid.UUID, idempotencyKey string) (*Action, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, workspace_id, account_run_id, action_type, platform_key, target_external_id,
		        target_url, idempotency_key, status, error_code, metadata, started_at, finished_at,
		        created_at, updated_at
		 FROM actions WHERE workspace_id = $1 AND idempotency_key = $2`,
		workspaceID, idempotencyKey,
	)
	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting action by idempotency key: %w", err)
	}
	return a, nil
}

// Insert creates a new Action row in status queued. If a concurrent writer
// already inserted the same (workspace_id, idempotency_key), the unique
// index conflict is resolved by returning the existing row untouched,
// matching the "re-entry finds existing row" invariant.
func (s *ActionStore) Insert(ctx context.Context, a *Action) (*Action, error) {
	metadataRaw, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling action metadata: %w", err)
	}

	row := s.dbtx.QueryRow(ctx,
		`INSERT INTO actions (workspace_id, account_run_id, action_type, platform_key,
		                      target_external_id, target_url, idempotency_key, status, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (workspace_id, idempotency_key) DO UPDATE SET workspace_id = actions.workspace_id
		 RETURNING id, workspace_id, account_run_id, action_type, platform_key, target_external_id,
		           target_url, idempotency_key, status, error_code, metadata, started_at, finished_at,
		           created_at, updated_at`,
		a.WorkspaceID, a.AccountRunID, a.ActionType, a.PlatformKey,
		a.TargetExternalID, a.TargetURL, a.IdempotencyKey, ActionStatusQueued, metadataRaw,
	)
	return scanAction(row)
}

// ListByAccountRun returns every Action belonging to an AccountRun, in
// creation order, for rollup status computation.
func (s *ActionStore) ListByAccountRun(ctx context.Context, accountRunID uuid.UUID) ([]*Action, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, workspace_id, account_run_id, action_type, platform_key, target_external_id,
		        target_url, idempotency_key, status, error_code, metadata, started_at, finished_at,
		        created_at, updated_at
		 FROM actions WHERE account_run_id = $1 ORDER BY created_at ASC`,
		accountRunID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing actions by account run: %w", err)
	}
	defer rows.Close()

	var out []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkRunning transitions a set of Actions to running with a shared
// started_at timestamp.
func (s *ActionStore) MarkRunning(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.dbtx.Exec(ctx,
		`UPDATE actions SET status = $1, started_at = $2, updated_at = now() WHERE id = ANY($3)`,
		ActionStatusRunning, at, ids,
	)
	if err != nil {
		return fmt.Errorf("marking actions running: %w", err)
	}
	return nil
}

// Finish persists an Action's terminal status, error code, and metadata.
func (s *ActionStore) Finish(ctx context.Context, id uuid.UUID, status string, errorCode *string, metadata map[string]any, at time.Time) error {
	metadataRaw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling action metadata: %w", err)
	}
	_, err = s.dbtx.Exec(ctx,
		`UPDATE actions SET status = $1, error_code = $2, metadata = $3, finished_at = $4, updated_at = now()
		 WHERE id = $5`,
		status, errorCode, metadataRaw, at, id,
	)
	if err != nil {
		return fmt.Errorf("finishing action: %w", err)
	}
	return nil
}

func scanAction(row rowScanner) (*Action, error) {
	var a Action
	var metadataRaw []byte
	err := row.Scan(&a.ID, &a.WorkspaceID, &a.AccountRunID, &a.ActionType, &a.PlatformKey,
		&a.TargetExternalID, &a.TargetURL, &a.IdempotencyKey, &a.Status, &a.ErrorCode,
		&metadataRaw, &a.StartedAt, &a.FinishedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadataRaw, &a.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling action metadata: %w", err)
	}
	return &a, nil
}
