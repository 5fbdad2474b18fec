// Package workspace models the tenant root entity and its subscription and
// monthly usage accounting.
package workspace

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant boundary; every business entity is scoped by a
// workspace id.
type Workspace struct {
	ID        uuid.UUID
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscription is the read-only quota/billing gate consumed by the executor.
type Subscription struct {
	ID                     uuid.UUID
	WorkspaceID            uuid.UUID
	Status                 string
	PlanKey                string
	Seats                  int
	MaxSocialAccounts      *int
	MaxParallelSessions    *int
	AutomationRuntimeHours *int
	ArtifactRetentionDays  int
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsActive reports whether the workspace's subscription currently permits
// automation runs: status must be trial or active, and (when set) the
// current billing period must not have already ended.
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil {
		return true
	}
	status := strings.ToLower(strings.TrimSpace(s.Status))
	if status != "trial" && status != "active" {
		return false
	}
	if s.CurrentPeriodEnd != nil && !s.CurrentPeriodEnd.After(now.UTC()) {
		return false
	}
	return true
}

// UsageMonthly tracks automation runtime seconds consumed in one UTC month.
type UsageMonthly struct {
	ID                       uuid.UUID
	WorkspaceID              uuid.UUID
	PeriodStart              time.Time
	AutomationRuntimeSeconds int64
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// PeriodStart returns the first instant of t's UTC month, the normative
// period key for WorkspaceUsageMonthly.
func PeriodStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
