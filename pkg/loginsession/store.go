package loginsession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// Store handles database operations for login sessions.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store with the given connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// Create inserts a new LoginSession in status created.
func (s *Store) Create(ctx context.Context, workspaceID, socialAccountID uuid.UUID, platformKey string, expiresAt time.Time, createdBy *uuid.UUID) (*LoginSession, error) {
	row := s.dbtx.QueryRow(ctx,
		`INSERT INTO login_sessions (workspace_id, social_account_id, platform_key, status, expires_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, workspace_id, social_account_id, platform_key, status, remote_url,
		           expires_at, created_by, created_at, updated_at`,
		workspaceID, socialAccountID, platformKey, StatusCreated, expiresAt, createdBy,
	)
	return scanSession(row)
}

// GetByID returns a LoginSession by id, or (nil, nil) if it doesn't exist.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*LoginSession, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, workspace_id, social_account_id, platform_key, status, remote_url,
		        expires_at, created_by, created_at, updated_at
		 FROM login_sessions WHERE id = $1`,
		id,
	)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting login session: %w", err)
	}
	return session, nil
}

// SetStatus transitions the session to the given status.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE login_sessions SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setting login session status: %w", err)
	}
	return nil
}

// SetRemoteURL records the worker-provided public VNC URL.
func (s *Store) SetRemoteURL(ctx context.Context, id uuid.UUID, remoteURL string) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE login_sessions SET remote_url = $1, status = $2, updated_at = now() WHERE id = $3`,
		remoteURL, StatusActive, id,
	)
	if err != nil {
		return fmt.Errorf("setting login session remote url: %w", err)
	}
	return nil
}

func scanSession(row interface{ Scan(dest ...any) error }) (*LoginSession, error) {
	var s LoginSession
	err := row.Scan(&s.ID, &s.WorkspaceID, &s.SocialAccountID, &s.PlatformKey, &s.Status,
		&s.RemoteURL, &s.ExpiresAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
