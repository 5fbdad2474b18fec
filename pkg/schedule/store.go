package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// Store handles database operations for schedules.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store with the given connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// GetByID returns a schedule by id, scoped to a workspace.
func (s *Store) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*Schedule, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, workspace_id, strategy_id, enabled, frequency, schedule_spec, random_config,
		        account_selector, max_parallel, next_run_at, last_run_at, created_at, updated_at
		 FROM schedules WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID,
	)
	sched, err := scanSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("getting schedule: %w", err)
	}
	return sched, nil
}

// DueForTick returns enabled, non-manual schedules whose next_run_at is due,
// locked FOR UPDATE SKIP LOCKED so concurrent dispatcher replicas do not
// double-fire the same schedule.
func (s *Store) DueForTick(ctx context.Context, now time.Time) ([]*Schedule, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, workspace_id, strategy_id, enabled, frequency, schedule_spec, random_config,
		        account_selector, max_parallel, next_run_at, last_run_at, created_at, updated_at
		 FROM schedules
		 WHERE enabled = true AND frequency != 'manual'
		   AND next_run_at IS NOT NULL AND next_run_at <= $1
		 ORDER BY created_at ASC
		 FOR UPDATE SKIP LOCKED`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting due schedules: %w", err)
	}
	defer rows.Close()

	var out []*Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning due schedule: %w", err)
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

// PendingNextRunAt returns enabled, non-manual schedules with no next_run_at
// stamped yet.
func (s *Store) PendingNextRunAt(ctx context.Context) ([]*Schedule, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id, workspace_id, strategy_id, enabled, frequency, schedule_spec, random_config,
		        account_selector, max_parallel, next_run_at, last_run_at, created_at, updated_at
		 FROM schedules
		 WHERE enabled = true AND frequency != 'manual' AND next_run_at IS NULL
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting schedules pending next_run_at: %w", err)
	}
	defer rows.Close()

	var out []*Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

// HasNonTerminalRun reports whether any Run for this schedule is still
// queued or running (back-pressure check). retry_waiting is intentionally
// excluded: the core never produces it automatically (see DESIGN.md).
func (s *Store) HasNonTerminalRun(ctx context.Context, scheduleID uuid.UUID) (bool, error) {
	var count int
	err := s.dbtx.QueryRow(ctx,
		`SELECT count(*) FROM runs WHERE schedule_id = $1 AND status IN ('queued', 'running')`,
		scheduleID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("counting non-terminal runs: %w", err)
	}
	return count > 0, nil
}

// StampFire advances next_run_at and last_run_at without creating a Run
// (used for skip/strategy-missing paths).
func (s *Store) StampFire(ctx context.Context, id uuid.UUID, nextRunAt *time.Time, lastRunAt time.Time) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE schedules SET next_run_at = $1, last_run_at = $2, updated_at = now() WHERE id = $3`,
		nextRunAt, lastRunAt, id,
	)
	if err != nil {
		return fmt.Errorf("stamping schedule fire: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var sched Schedule
	var specRaw, randomRaw, selectorRaw []byte
	var freq string

	err := row.Scan(
		&sched.ID, &sched.WorkspaceID, &sched.StrategyID, &sched.Enabled, &freq,
		&specRaw, &randomRaw, &selectorRaw, &sched.MaxParallel,
		&sched.NextRunAt, &sched.LastRunAt, &sched.CreatedAt, &sched.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sched.Frequency = Frequency(freq)

	if err := json.Unmarshal(specRaw, &sched.ScheduleSpec); err != nil {
		return nil, fmt.Errorf("unmarshaling schedule_spec: %w", err)
	}
	if err := json.Unmarshal(randomRaw, &sched.RandomConfig); err != nil {
		return nil, fmt.Errorf("unmarshaling random_config: %w", err)
	}
	if err := json.Unmarshal(selectorRaw, &sched.AccountSelector); err != nil {
		return nil, fmt.Errorf("unmarshaling account_selector: %w", err)
	}

	return &sched, nil
}
