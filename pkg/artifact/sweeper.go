// Package artifact implements the periodic retention sweeper that deletes
// screenshot artifacts (row and file) older than a workspace's configured
// retention window.
package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/telemetry"
	"github.com/xxrenzhe/syncsocial/pkg/run"
	"github.com/xxrenzhe/syncsocial/pkg/workspace"
)

// batchSize bounds how many artifacts the sweeper deletes per workspace per
// pass, so one workspace with a huge backlog doesn't starve the others.
const batchSize = 200

// defaultRetentionDays is used for workspaces with no subscription row, or
// whose subscription does not override it.
const defaultRetentionDays = 30

// Sweeper periodically deletes artifacts (row + best-effort file) older
// than their owning workspace's artifact_retention_days.
type Sweeper struct {
	Workspaces   *workspace.Store
	Artifacts    *run.ArtifactStore
	ArtifactsDir string
	Logger       *slog.Logger
}

// SweepWorkspace deletes up to batchSize expired artifacts for one
// workspace and reports how many were removed.
func (s *Sweeper) SweepWorkspace(ctx context.Context, workspaceID uuid.UUID, now time.Time) (int, error) {
	retentionDays := defaultRetentionDays
	sub, err := s.Workspaces.GetSubscription(ctx, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("loading subscription: %w", err)
	}
	if sub != nil && sub.ArtifactRetentionDays > 0 {
		retentionDays = sub.ArtifactRetentionDays
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	artifacts, err := s.Artifacts.OlderThanBatch(ctx, workspaceID, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing expired artifacts: %w", err)
	}

	removed := 0
	for _, a := range artifacts {
		path := filepath.Join(s.ArtifactsDir, a.StorageKey)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.Logger.Warn("removing artifact file", "error", err, "artifact_id", a.ID)
		}

		if err := s.Artifacts.Delete(ctx, a.ID); err != nil {
			s.Logger.Error("deleting artifact row", "error", err, "artifact_id", a.ID)
			continue
		}
		removed++
	}

	telemetry.ArtifactsSweptTotal.Add(float64(removed))
	return removed, nil
}

// SweepAllWorkspaces runs SweepWorkspace for every given workspace id,
// logging but not aborting on a per-workspace error.
func (s *Sweeper) SweepAllWorkspaces(ctx context.Context, workspaceIDs []uuid.UUID, now time.Time) {
	for _, id := range workspaceIDs {
		if _, err := s.SweepWorkspace(ctx, id, now); err != nil {
			s.Logger.Error("sweeping workspace artifacts", "error", err, "workspace_id", id)
		}
	}
}
