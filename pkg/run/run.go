// Package run models the three-level execution hierarchy: a Run spans
// multiple accounts, an AccountRun executes a plan for one account, and an
// Action is one operation against the browser-node worker.
package run

import (
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// AccountRun statuses.
const (
	AccountRunStatusQueued       = "queued"
	AccountRunStatusRunning      = "running"
	AccountRunStatusRetryWaiting = "retry_waiting"
	AccountRunStatusSucceeded    = "succeeded"
	AccountRunStatusFailed       = "failed"
)

// Action statuses.
const (
	ActionStatusQueued    = "queued"
	ActionStatusRunning   = "running"
	ActionStatusSucceeded = "succeeded"
	ActionStatusSkipped   = "skipped"
	ActionStatusFailed    = "failed"
)

// ArtifactTypeScreenshot is the only artifact type currently produced.
const ArtifactTypeScreenshot = "screenshot"

// TriggerSchedule and TriggerManual label RunsCreatedTotal and distinguish
// how a Run was materialized.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Run spans multiple accounts executing the same strategy.
type Run struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	ScheduleID  *uuid.UUID
	StrategyID  uuid.UUID
	TriggeredBy *uuid.UUID
	Status      string
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsTerminal reports whether the Run has reached succeeded or failed.
func (r *Run) IsTerminal() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}

// AccountRun executes a plan for one account within a Run.
type AccountRun struct {
	ID              uuid.UUID
	WorkspaceID     uuid.UUID
	RunID           uuid.UUID
	SocialAccountID uuid.UUID
	Status          string
	ErrorCode       *string
	StartedAt       *time.Time
	FinishedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsTerminal reports whether the AccountRun has reached a terminal status.
func (ar *AccountRun) IsTerminal() bool {
	switch ar.Status {
	case AccountRunStatusSucceeded, AccountRunStatusFailed:
		return true
	default:
		return false
	}
}

// Action is one operation against the browser-node worker.
type Action struct {
	ID               uuid.UUID
	WorkspaceID      uuid.UUID
	AccountRunID     uuid.UUID
	ActionType       string
	PlatformKey      string
	TargetExternalID *string
	TargetURL        *string
	IdempotencyKey   string
	Status           string
	ErrorCode        *string
	Metadata         map[string]any
	StartedAt        *time.Time
	FinishedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Artifact is a file (currently only screenshots) written alongside an
// Action result.
type Artifact struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	ActionID    uuid.UUID
	Type        string
	StorageKey  string
	Size        int64
	CreatedAt   time.Time
}
