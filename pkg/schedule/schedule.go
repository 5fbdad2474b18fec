// Package schedule implements the schedule planner and the tick dispatcher
// that materializes Runs and AccountRuns from due schedules.
package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Frequency enumerates the supported firing policies.
type Frequency string

const (
	FrequencyManual   Frequency = "manual"
	FrequencyInterval Frequency = "interval"
	FrequencyDaily    Frequency = "daily"
)

// Schedule is a firing policy attached to one strategy.
type Schedule struct {
	ID              uuid.UUID
	WorkspaceID     uuid.UUID
	StrategyID      uuid.UUID
	Enabled         bool
	Frequency       Frequency
	ScheduleSpec    map[string]any
	RandomConfig    map[string]any
	AccountSelector map[string]any
	MaxParallel     int
	NextRunAt       *time.Time
	LastRunAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
