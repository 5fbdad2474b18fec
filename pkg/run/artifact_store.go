package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// ArtifactStore handles database operations for Artifacts.
type ArtifactStore struct {
	dbtx db.DBTX
}

// NewArtifactStore creates an ArtifactStore with the given connection.
func NewArtifactStore(dbtx db.DBTX) *ArtifactStore {
	return &ArtifactStore{dbtx: dbtx}
}

// Create inserts a new Artifact row.
func (s *ArtifactStore) Create(ctx context.Context, workspaceID, actionID uuid.UUID, artifactType, storageKey string, size int64) (*Artifact, error) {
	row := s.dbtx.QueryRow(ctx,
		`INSERT INTO artifacts (workspace_id, action_id, type, storage_key, size)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, workspace_id, action_id, type, storage_key, size, created_at`,
		workspaceID, actionID, artifactType, storageKey, size,
	)
	var a Artifact
	if err := row.Scan(&a.ID, &a.WorkspaceID, &a.ActionID, &a.Type, &a.StorageKey, &a.Size, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("creating artifact: %w", err)
	}
	return &a, nil
}

// OlderThanBatch returns up to limit artifacts created before cutoff, for
// the retention sweeper to delete.
func (s *ArtifactStore) OlderThanBatch(ctx context.Context, workspaceID uuid.UUID, cutoff time.Time, limit int) ([]*Artifact, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, workspace_id, action_id, type, storage_key, size, created_at
		 FROM artifacts WHERE workspace_id = $1 AND created_at < $2
		 ORDER BY created_at ASC LIMIT $3`,
		workspaceID, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting artifacts older than cutoff: %w", err)
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.WorkspaceID, &a.ActionID, &a.Type, &a.StorageKey, &a.Size, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Delete removes an artifact row by id.
func (s *ArtifactStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `DELETE FROM artifacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting artifact: %w", err)
	}
	return nil
}
