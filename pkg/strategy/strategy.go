// Package strategy models a declarative automation configuration consumed
// by the action planner.
package strategy

import (
	"time"

	"github.com/google/uuid"
)

// Strategy is a declarative configuration that the action planner consumes
// to build an action list. Version bumps on config update; idempotency keys
// for platform actions embed the version so a config change mints fresh
// actions rather than reusing stale ones.
type Strategy struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Name        string
	PlatformKey string
	Version     int
	Config      map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
