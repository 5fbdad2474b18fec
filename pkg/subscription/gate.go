// Package subscription provides read-only gate checks against a
// workspace's subscription, consumed by the run executor to decide whether
// automation work may proceed. It does not own billing state; workspace
// subscriptions are read via pkg/workspace.
package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/pkg/usage"
	"github.com/xxrenzhe/syncsocial/pkg/workspace"
)

// Gate answers automation eligibility questions against a workspace's
// subscription and accrued usage.
type Gate struct {
	Workspaces *workspace.Store
	Usage      *usage.Store
}

// NewGate creates a Gate with the given stores.
func NewGate(workspaces *workspace.Store, usage *usage.Store) *Gate {
	return &Gate{Workspaces: workspaces, Usage: usage}
}

// IsActive reports whether the workspace's subscription currently permits
// automation runs. A workspace with no subscription row is treated as
// active, since subscriptions are optional billing metadata layered on top
// of the core automation model.
func (g *Gate) IsActive(ctx context.Context, workspaceID uuid.UUID, now time.Time) (bool, error) {
	sub, err := g.Workspaces.GetSubscription(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return true, nil
	}
	return sub.IsActive(now), nil
}

// RuntimeQuotaExceeded reports whether the workspace has exceeded its
// automation_runtime_hours quota for the current UTC month. A subscription
// with no configured quota (nil AutomationRuntimeHours) never exceeds.
func (g *Gate) RuntimeQuotaExceeded(ctx context.Context, workspaceID uuid.UUID, now time.Time) (bool, error) {
	sub, err := g.Workspaces.GetSubscription(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	if sub == nil || sub.AutomationRuntimeHours == nil {
		return false, nil
	}

	seconds, err := g.Usage.SecondsForPeriod(ctx, workspaceID, workspace.PeriodStart(now))
	if err != nil {
		return false, err
	}

	quotaSeconds := int64(*sub.AutomationRuntimeHours) * 3600
	if quotaSeconds <= 0 {
		return false, nil
	}
	return seconds >= quotaSeconds, nil
}
