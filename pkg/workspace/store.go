package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// Store handles database operations for workspaces and their subscriptions.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store with the given connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// GetByID returns a workspace by id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, name, status, created_at, updated_at FROM workspaces WHERE id = $1`,
		id,
	)
	var w Workspace
	if err := row.Scan(&w.ID, &w.Name, &w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, fmt.Errorf("getting workspace: %w", err)
	}
	return &w, nil
}

// ListIDs returns every workspace id, for background jobs (the retention
// sweeper) that iterate across all workspaces.
func (s *Store) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.dbtx.Query(ctx, `SELECT id FROM workspaces`)
	if err != nil {
		return nil, fmt.Errorf("listing workspace ids: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning workspace id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetSubscription returns the workspace's subscription, or (nil, nil) if
// none exists.
func (s *Store) GetSubscription(ctx context.Context, workspaceID uuid.UUID) (*Subscription, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, workspace_id, status, plan_key, seats, max_social_accounts,
		        max_parallel_sessions, automation_runtime_hours, artifact_retention_days,
		        current_period_start, current_period_end, created_at, updated_at
		 FROM workspace_subscriptions WHERE workspace_id = $1`,
		workspaceID,
	)
	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.WorkspaceID, &sub.Status, &sub.PlanKey, &sub.Seats,
		&sub.MaxSocialAccounts, &sub.MaxParallelSessions, &sub.AutomationRuntimeHours,
		&sub.ArtifactRetentionDays, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting workspace subscription: %w", err)
	}
	return &sub, nil
}
