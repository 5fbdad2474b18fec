package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// Store handles database operations for strategies.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store with the given connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// GetByID returns a strategy by id, scoped to a workspace. Returns
// (nil, nil) when not found so callers can distinguish "missing" from a
// transport error without sentinel-matching pgx.ErrNoRows.
func (s *Store) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*Strategy, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, workspace_id, name, platform_key, version, config, created_at, updated_at
		 FROM strategies WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)

	var st Strategy
	var configRaw []byte
	err := row.Scan(&st.ID, &st.WorkspaceID, &st.Name, &st.PlatformKey, &st.Version,
		&configRaw, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting strategy: %w", err)
	}
	if err := json.Unmarshal(configRaw, &st.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling strategy config: %w", err)
	}
	return &st, nil
}
