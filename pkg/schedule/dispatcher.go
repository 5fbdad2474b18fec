package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xxrenzhe/syncsocial/internal/db"
	"github.com/xxrenzhe/syncsocial/internal/queue"
	"github.com/xxrenzhe/syncsocial/internal/telemetry"
	"github.com/xxrenzhe/syncsocial/pkg/run"
	"github.com/xxrenzhe/syncsocial/pkg/socialaccount"
	"github.com/xxrenzhe/syncsocial/pkg/strategy"
)

// AccountRunTask is the payload enqueued for the worker queue consumer to
// pick up and hand to the run executor.
type AccountRunTask struct {
	AccountRunID uuid.UUID `json:"account_run_id"`
}

// Dispatcher runs one tick pass: stamp pending schedules, claim due
// schedules, and materialize Runs for the ones that should fire.
type Dispatcher struct {
	Pool   *pgxpool.Pool
	Queue  *queue.Queue
	Logger *slog.Logger
}

// Tick performs one dispatcher pass inside a single transaction, so a crash
// mid-pass leaves every schedule either fully advanced or fully untouched.
func (d *Dispatcher) Tick(ctx context.Context) error {
	start := time.Now()
	defer func() {
		telemetry.TickDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var enqueued []uuid.UUID
	err := db.WithTx(ctx, d.Pool, func(tx pgx.Tx) error {
		schedules := NewStore(tx)
		strategies := strategy.NewStore(tx)
		accounts := socialaccount.NewStore(tx)
		runs := run.NewRunStore(tx)
		accountRuns := run.NewAccountRunStore(tx)

		now := time.Now().UTC()

		if err := d.stampPending(ctx, schedules, now); err != nil {
			return fmt.Errorf("stamping pending schedules: %w", err)
		}

		due, err := schedules.DueForTick(ctx, now)
		if err != nil {
			return fmt.Errorf("selecting due schedules: %w", err)
		}
		telemetry.TickSchedulesDueTotal.Add(float64(len(due)))

		for _, sched := range due {
			ids, err := d.processDue(ctx, sched, schedules, strategies, accounts, runs, accountRuns, now)
			if err != nil {
				return fmt.Errorf("processing schedule %s: %w", sched.ID, err)
			}
			enqueued = append(enqueued, ids...)
		}

		return nil
	})
	if err != nil {
		return err
	}

	// Enqueue after the transaction commits so a queue hiccup never aborts
	// the DB commit; persistence is the source of truth per spec.
	for _, id := range enqueued {
		if err := d.Queue.Push(ctx, AccountRunTask{AccountRunID: id}); err != nil {
			d.Logger.Warn("enqueueing account run task", "error", err, "account_run_id", id)
		}
	}
	return nil
}

func (d *Dispatcher) stampPending(ctx context.Context, schedules *Store, now time.Time) error {
	pending, err := schedules.PendingNextRunAt(ctx)
	if err != nil {
		return err
	}
	for _, sched := range pending {
		next := NextFire(sched.Frequency, sched.ScheduleSpec, sched.RandomConfig, now)
		if err := schedules.StampFire(ctx, sched.ID, next, now); err != nil {
			return err
		}
	}
	return nil
}

// processDue handles one due schedule: back-pressure, strategy-missing,
// should-skip, or full materialization. Returns the AccountRun ids to
// enqueue (nil for every non-materializing path).
func (d *Dispatcher) processDue(
	ctx context.Context,
	sched *Schedule,
	schedules *Store,
	strategies *strategy.Store,
	accounts *socialaccount.Store,
	runs *run.RunStore,
	accountRuns *run.AccountRunStore,
	now time.Time,
) ([]uuid.UUID, error) {
	nonTerminal, err := schedules.HasNonTerminalRun(ctx, sched.ID)
	if err != nil {
		return nil, err
	}
	if nonTerminal {
		telemetry.TickSchedulesSkippedTotal.WithLabelValues("back_pressure").Inc()
		return nil, nil
	}

	strat, err := strategies.GetByID(ctx, sched.WorkspaceID, sched.StrategyID)
	if err != nil {
		return nil, err
	}
	if strat == nil {
		telemetry.TickSchedulesSkippedTotal.WithLabelValues("strategy_missing").Inc()
		return nil, d.advance(ctx, schedules, sched, now)
	}

	if ShouldSkip(sched.RandomConfig) {
		telemetry.TickSchedulesSkippedTotal.WithLabelValues("random_skip").Inc()
		return nil, d.advance(ctx, schedules, sched, now)
	}

	resolved, err := resolveAccounts(ctx, accounts, sched.WorkspaceID, sched.AccountSelector)
	if err != nil {
		return nil, err
	}

	newRun, err := runs.Create(ctx, sched.WorkspaceID, &sched.ID, strat.ID, nil)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(resolved))
	for _, acc := range resolved {
		ar, err := accountRuns.Create(ctx, sched.WorkspaceID, newRun.ID, acc.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, ar.ID)
	}

	telemetry.RunsCreatedTotal.WithLabelValues(run.TriggerSchedule).Inc()

	if err := d.advance(ctx, schedules, sched, now); err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *Dispatcher) advance(ctx context.Context, schedules *Store, sched *Schedule, now time.Time) error {
	next := NextFire(sched.Frequency, sched.ScheduleSpec, sched.RandomConfig, now)
	return schedules.StampFire(ctx, sched.ID, next, now)
}

// resolveAccounts implements the account-selector resolution order:
// explicit ids, then all:true, then default to healthy accounts.
func resolveAccounts(ctx context.Context, accounts *socialaccount.Store, workspaceID uuid.UUID, selector map[string]any) ([]*socialaccount.SocialAccount, error) {
	if ids := parseAccountIDs(selector); len(ids) > 0 {
		return accounts.ByIDs(ctx, workspaceID, ids)
	}

	if all, ok := selector["all"].(bool); ok && all {
		return accounts.All(ctx, workspaceID)
	}

	return accounts.Healthy(ctx, workspaceID)
}

// parseAccountIDs extracts and parses selector["ids"], skipping any entry
// that isn't a string or doesn't parse as a UUID. Returns nil if the
// selector carries no usable ids, so callers fall through to the next
// resolution step.
func parseAccountIDs(selector map[string]any) []uuid.UUID {
	rawIDs, ok := selector["ids"].([]any)
	if !ok || len(rawIDs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
