package socialaccount

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// Store handles database operations for social accounts.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store with the given connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// GetByID returns a social account by id, scoped to a workspace.
func (s *Store) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*SocialAccount, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, workspace_id, platform_key, handle, status, labels, fingerprint_profile,
		        last_health_check_at, created_at, updated_at
		 FROM social_accounts WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)
	return scanAccount(row)
}

// ByIDs returns social accounts matching the given ids, scoped to a workspace.
func (s *Store) ByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]*SocialAccount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, workspace_id, platform_key, handle, status, labels, fingerprint_profile,
		        last_health_check_at, created_at, updated_at
		 FROM social_accounts WHERE workspace_id = $1 AND id = ANY($2)`,
		workspaceID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting social accounts by id: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// All returns every social account in the workspace.
func (s *Store) All(ctx context.Context, workspaceID uuid.UUID) ([]*SocialAccount, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, workspace_id, platform_key, handle, status, labels, fingerprint_profile,
		        last_health_check_at, created_at, updated_at
		 FROM social_accounts WHERE workspace_id = $1`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting all social accounts: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// Healthy returns every healthy social account in the workspace; this is the
// default account-selector resolution.
func (s *Store) Healthy(ctx context.Context, workspaceID uuid.UUID) ([]*SocialAccount, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, workspace_id, platform_key, handle, status, labels, fingerprint_profile,
		        last_health_check_at, created_at, updated_at
		 FROM social_accounts WHERE workspace_id = $1 AND status = $2`,
		workspaceID, StatusHealthy,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting healthy social accounts: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// SetNeedsLogin flips an account to needs_login after an AUTH_REQUIRED
// action failure, stamping last_health_check_at.
func (s *Store) SetNeedsLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE social_accounts SET status = $1, last_health_check_at = $2, updated_at = now() WHERE id = $3`,
		StatusNeedsLogin, at, id,
	)
	if err != nil {
		return fmt.Errorf("marking account needs_login: %w", err)
	}
	return nil
}

// SetHealthy flips an account to healthy after successful login capture.
func (s *Store) SetHealthy(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE social_accounts SET status = $1, last_health_check_at = $2, updated_at = now() WHERE id = $3`,
		StatusHealthy, at, id,
	)
	if err != nil {
		return fmt.Errorf("marking account healthy: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsIterator interface {
	rowScanner
	Next() bool
	Err() error
}

func scanAccount(row rowScanner) (*SocialAccount, error) {
	var a SocialAccount
	var labelsRaw, fpRaw []byte
	err := row.Scan(&a.ID, &a.WorkspaceID, &a.PlatformKey, &a.Handle, &a.Status,
		&labelsRaw, &fpRaw, &a.LastHealthCheckAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning social account: %w", err)
	}
	if err := json.Unmarshal(labelsRaw, &a.Labels); err != nil {
		return nil, fmt.Errorf("unmarshaling labels: %w", err)
	}
	if err := json.Unmarshal(fpRaw, &a.FingerprintProfile); err != nil {
		return nil, fmt.Errorf("unmarshaling fingerprint_profile: %w", err)
	}
	return &a, nil
}

func scanAccounts(rows rowsIterator) ([]*SocialAccount, error) {
	var out []*SocialAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
