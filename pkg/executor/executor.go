package executor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/crypto"
	"github.com/xxrenzhe/syncsocial/internal/telemetry"
	"github.com/xxrenzhe/syncsocial/pkg/credential"
	"github.com/xxrenzhe/syncsocial/pkg/run"
	"github.com/xxrenzhe/syncsocial/pkg/socialaccount"
	"github.com/xxrenzhe/syncsocial/pkg/strategy"
	"github.com/xxrenzhe/syncsocial/pkg/subscription"
	"github.com/xxrenzhe/syncsocial/pkg/usage"
	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
	"github.com/xxrenzhe/syncsocial/pkg/workspace"
)

// ErrSubscriptionInactive is the executor-synthesized gate failure when a
// workspace's subscription no longer permits automation runs.
const ErrSubscriptionInactive = "SUBSCRIPTION_INACTIVE"

// ErrRuntimeQuotaExceeded is the executor-synthesized gate failure when a
// workspace has exhausted its automation_runtime_hours quota.
const ErrRuntimeQuotaExceeded = "RUNTIME_QUOTA_EXCEEDED"

// actionFailedFallback is used when an AccountRun fails but every failing
// Action's error code is ABORTED (shouldn't normally happen, since at least
// one Action must have actually failed to trigger the abort cascade).
const actionFailedFallback = "ACTION_FAILED"

// Executor drives one AccountRun to completion: sanity gates, action plan
// construction, idempotent materialization, batch execution against the
// worker, artifact persistence, account health mutation, and Run rollup.
type Executor struct {
	Runs           *run.RunStore
	AccountRuns    *run.AccountRunStore
	Actions        *run.ActionStore
	Artifacts      *run.ArtifactStore
	Strategies     *strategy.Store
	SocialAccounts *socialaccount.Store
	Credentials    *credential.Store
	Usage          *usage.Store
	Subscriptions  *subscription.Gate
	Vault          *crypto.Vault
	Worker         workerclient.Client
	ArtifactsDir   string
	BandwidthMode  string
	Logger         *slog.Logger
}

// Execute runs the entry guard, sanity gates, action plan, and batch
// execution for one AccountRun, then rolls the parent Run up. Returns
// silently (nil error) whenever the entry guard or a sanity gate resolves
// the AccountRun without needing the worker.
func (e *Executor) Execute(ctx context.Context, accountRunID uuid.UUID) error {
	now := time.Now().UTC()

	accountRun, err := e.AccountRuns.GetByID(ctx, accountRunID)
	if err != nil {
		return fmt.Errorf("loading account run: %w", err)
	}
	if accountRun.Status != run.AccountRunStatusQueued && accountRun.Status != run.AccountRunStatusRetryWaiting {
		return nil
	}

	claimed, err := e.AccountRuns.MarkRunning(ctx, accountRunID, now)
	if err != nil {
		return fmt.Errorf("claiming account run: %w", err)
	}
	if !claimed {
		return nil
	}
	accountRun.StartedAt = &now

	parentRun, err := e.Runs.GetByID(ctx, accountRun.WorkspaceID, accountRun.RunID)
	if err != nil {
		return fmt.Errorf("loading parent run: %w", err)
	}
	if err := e.Runs.MarkRunning(ctx, parentRun.ID, now); err != nil {
		return fmt.Errorf("advancing parent run: %w", err)
	}

	if e.Subscriptions != nil {
		active, err := e.Subscriptions.IsActive(ctx, accountRun.WorkspaceID, now)
		if err != nil {
			return fmt.Errorf("checking subscription status: %w", err)
		}
		if !active {
			return e.failAccountRun(ctx, accountRun, ErrSubscriptionInactive)
		}

		exceeded, err := e.Subscriptions.RuntimeQuotaExceeded(ctx, accountRun.WorkspaceID, now)
		if err != nil {
			return fmt.Errorf("checking runtime quota: %w", err)
		}
		if exceeded {
			return e.failAccountRun(ctx, accountRun, ErrRuntimeQuotaExceeded)
		}
	}

	strat, err := e.Strategies.GetByID(ctx, accountRun.WorkspaceID, parentRun.StrategyID)
	if err != nil {
		return fmt.Errorf("loading strategy: %w", err)
	}
	if strat == nil {
		return e.failAccountRun(ctx, accountRun, workerclient.ErrStrategyNotFound)
	}

	account, err := e.SocialAccounts.GetByID(ctx, accountRun.WorkspaceID, accountRun.SocialAccountID)
	if err != nil {
		return fmt.Errorf("loading social account: %w", err)
	}
	if account == nil {
		return e.failAccountRun(ctx, accountRun, workerclient.ErrAccountNotFound)
	}

	cred, err := e.Credentials.GetBySocialAccount(ctx, account.ID, credential.TypeStorageState)
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}
	if !account.IsHealthy() || cred == nil {
		return e.failAccountRun(ctx, accountRun, workerclient.ErrAuthRequired)
	}

	var storageState map[string]any
	if err := e.Vault.DecryptJSON(cred.EncryptedBlob, &storageState); err != nil {
		return e.failAccountRun(ctx, accountRun, workerclient.ErrCredentialDecryptFailed)
	}

	plan := e.buildFullPlan(ctx, accountRun, parentRun, strat, account, storageState)

	actions, toExecute, err := e.materializeActions(ctx, accountRun, strat, plan)
	if err != nil {
		return fmt.Errorf("materializing actions: %w", err)
	}

	if len(toExecute) > 0 {
		if err := e.executeBatch(ctx, accountRun, account, strat, storageState, actions, toExecute); err != nil {
			return fmt.Errorf("executing batch: %w", err)
		}
	}

	return e.finishAccountRun(ctx, accountRun)
}

// buildFullPlan constructs the complete ordered action list: health_check,
// then either a like/repost plan or a search-then-act plan (which requires
// executing the phase-1 search_collect action inline to harvest candidates
// before building phase 2).
func (e *Executor) buildFullPlan(ctx context.Context, accountRun *run.AccountRun, parentRun *run.Run, strat *strategy.Strategy, account *socialaccount.SocialAccount, storageState map[string]any) []ActionSpec {
	plan := []ActionSpec{{
		ActionType:   "health_check",
		PlatformKey:  strat.PlatformKey,
		StableTarget: parentRun.ID.String(),
	}}

	if !IsSearchThenAct(strat.Config) {
		plan = append(plan, BuildPlan(strat.PlatformKey, strat.Config)...)
		return plan
	}

	collectSpecs := BuildPlan(strat.PlatformKey, strat.Config)
	if len(collectSpecs) == 0 {
		return plan
	}
	collectSpec := collectSpecs[0]

	candidates, err := e.collectSearchCandidates(ctx, accountRun, strat, account, collectSpec, storageState)
	if err != nil {
		e.Logger.Warn("search collect phase failed", "error", err, "account_run_id", accountRun.ID)
		plan = append(plan, collectSpec)
		return plan
	}

	plan = append(plan, collectSpec)
	strategyType, _ := strat.Config["type"].(string)
	plan = append(plan, BuildSearchActPlan(strategyType, strat.Config, candidates)...)
	return plan
}

// collectSearchCandidates materializes and executes the phase-1
// x_search_collect action by itself (its own idempotent Action row), and
// parses metadata.candidates from the result.
func (e *Executor) collectSearchCandidates(ctx context.Context, accountRun *run.AccountRun, strat *strategy.Strategy, account *socialaccount.SocialAccount, spec ActionSpec, storageState map[string]any) ([]SearchCandidate, error) {
	key := spec.IdempotencyKey(accountRun.WorkspaceID, accountRun.SocialAccountID, strat.Version)

	existing, err := e.Actions.GetByIdempotencyKey(ctx, accountRun.WorkspaceID, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && (existing.Status == run.ActionStatusSucceeded || existing.Status == run.ActionStatusSkipped) {
		return parseCandidates(existing.Metadata), nil
	}

	action, err := e.Actions.Insert(ctx, &run.Action{
		WorkspaceID:      accountRun.WorkspaceID,
		AccountRunID:     accountRun.ID,
		ActionType:       spec.ActionType,
		PlatformKey:      spec.PlatformKey,
		TargetURL:        strPtr(spec.TargetURL),
		TargetExternalID: strPtrOrNil(spec.TargetExternalID),
		IdempotencyKey:   key,
		Metadata:         map[string]any{"strategy_id": strat.ID, "strategy_version": strat.Version},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := e.Actions.MarkRunning(ctx, []uuid.UUID{action.ID}, now); err != nil {
		return nil, err
	}

	results, err := e.Worker.ExecuteBatch(ctx, workerclient.ExecuteBatchRequest{
		PlatformKey:        strat.PlatformKey,
		StorageState:       storageState,
		BandwidthMode:      e.BandwidthMode,
		FingerprintProfile: account.FingerprintProfile,
		Actions: []workerclient.ActionSpec{{
			ActionType:       spec.ActionType,
			TargetURL:        spec.TargetURL,
			TargetExternalID: spec.TargetExternalID,
			ActionParams:     spec.Params,
		}},
	})
	if err != nil || len(results) != 1 {
		msg := "transport error"
		if err != nil {
			msg = err.Error()
		}
		e.persistResult(ctx, action, workerclient.BrowserNodeErrorResults(1, msg)[0], now)
		return nil, errors.New("search collect batch failed")
	}

	e.persistResult(ctx, action, results[0], now)
	return parseCandidates(results[0].Metadata), nil
}

func parseCandidates(metadata map[string]any) []SearchCandidate {
	raw, ok := metadata["candidates"].([]any)
	if !ok {
		return nil
	}
	out := make([]SearchCandidate, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tweetID, _ := m["tweet_id"].(string)
		u, _ := m["url"].(string)
		verified, _ := m["is_verified"].(bool)
		out = append(out, SearchCandidate{TweetID: tweetID, URL: u, IsVerified: verified})
	}
	return out
}

// materializeActions looks up or inserts an Action row per planned spec,
// returning the full ordered Action list alongside the subset of those
// Actions that still needs to run.
func (e *Executor) materializeActions(ctx context.Context, accountRun *run.AccountRun, strat *strategy.Strategy, plan []ActionSpec) ([]*run.Action, []*run.Action, error) {
	actions := make([]*run.Action, 0, len(plan))
	var toExecute []*run.Action

	for _, spec := range plan {
		var key string
		if spec.ActionType == "health_check" {
			key = HealthCheckIdempotencyKey(accountRun.WorkspaceID, accountRun.SocialAccountID, accountRun.RunID)
		} else {
			key = spec.IdempotencyKey(accountRun.WorkspaceID, accountRun.SocialAccountID, strat.Version)
		}

		existing, err := e.Actions.GetByIdempotencyKey(ctx, accountRun.WorkspaceID, key)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			actions = append(actions, existing)
			if existing.Status != run.ActionStatusSucceeded && existing.Status != run.ActionStatusSkipped {
				toExecute = append(toExecute, existing)
			}
			continue
		}

		a, err := e.Actions.Insert(ctx, &run.Action{
			WorkspaceID:      accountRun.WorkspaceID,
			AccountRunID:     accountRun.ID,
			ActionType:       spec.ActionType,
			PlatformKey:      spec.PlatformKey,
			TargetURL:        strPtrOrNil(spec.TargetURL),
			TargetExternalID: strPtrOrNil(spec.TargetExternalID),
			IdempotencyKey:   key,
			Metadata:         map[string]any{"strategy_id": strat.ID, "strategy_version": strat.Version},
		})
		if err != nil {
			return nil, nil, err
		}
		actions = append(actions, a)
		toExecute = append(toExecute, a)
	}

	return actions, toExecute, nil
}

// executeBatch marks the chosen Actions running, calls the worker, and
// persists per-action results. Deriving the AccountRun's failure code and
// flipping the account to needs_login are left to finishAccountRun.
func (e *Executor) executeBatch(ctx context.Context, accountRun *run.AccountRun, account *socialaccount.SocialAccount, strat *strategy.Strategy, storageState map[string]any, allActions []*run.Action, toExecute []*run.Action) error {
	now := time.Now().UTC()

	ids := make([]uuid.UUID, len(toExecute))
	for i, a := range toExecute {
		ids[i] = a.ID
	}
	if err := e.Actions.MarkRunning(ctx, ids, now); err != nil {
		return err
	}

	specs := make([]workerclient.ActionSpec, len(toExecute))
	for i, a := range toExecute {
		specs[i] = workerclient.ActionSpec{
			ActionType:       a.ActionType,
			TargetURL:        derefStr(a.TargetURL),
			TargetExternalID: derefStr(a.TargetExternalID),
		}
	}

	results, err := e.Worker.ExecuteBatch(ctx, workerclient.ExecuteBatchRequest{
		PlatformKey:        strat.PlatformKey,
		StorageState:       storageState,
		BandwidthMode:      e.BandwidthMode,
		Actions:            specs,
		FingerprintProfile: account.FingerprintProfile,
	})

	if err != nil {
		results = workerclient.BrowserNodeErrorResults(len(toExecute), err.Error())
	} else if len(results) != len(toExecute) {
		results = workerclient.BrowserNodeErrorResults(len(toExecute), "worker returned mismatched result count")
	}

	for i, a := range toExecute {
		e.persistResult(ctx, a, results[i], now)
	}

	return nil
}

// persistResult maps one worker result onto its Action, writes the
// screenshot artifact (best-effort), and records the metric.
func (e *Executor) persistResult(ctx context.Context, action *run.Action, result workerclient.ExecuteActionResult, at time.Time) {
	status := result.Status
	switch status {
	case workerclient.StatusSucceeded, workerclient.StatusSkipped, workerclient.StatusFailed:
	default:
		status = workerclient.StatusFailed
	}

	metadata := map[string]any{}
	for k, v := range action.Metadata {
		metadata[k] = v
	}
	if result.ErrorCode != "" {
		metadata["error_code"] = result.ErrorCode
	}
	if result.Message != "" {
		metadata["message"] = result.Message
	}
	if result.CurrentURL != "" {
		metadata["current_url"] = result.CurrentURL
	}
	for k, v := range result.Metadata {
		metadata[k] = v
	}

	var errorCode *string
	if result.ErrorCode != "" {
		errorCode = &result.ErrorCode
	}

	if result.ScreenshotBase64 != "" {
		e.writeScreenshot(ctx, action, result.ScreenshotBase64)
	}

	if err := e.Actions.Finish(ctx, action.ID, status, errorCode, metadata, at); err != nil {
		e.Logger.Error("persisting action result", "error", err, "action_id", action.ID)
	}
	telemetry.ActionsFinishedTotal.WithLabelValues(action.ActionType, status, result.ErrorCode).Inc()
}

func (e *Executor) writeScreenshot(ctx context.Context, action *run.Action, encoded string) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		e.Logger.Warn("decoding screenshot", "error", err, "action_id", action.ID)
		return
	}

	dir := filepath.Join(e.ArtifactsDir, action.WorkspaceID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.Logger.Warn("creating artifacts dir", "error", err, "action_id", action.ID)
		return
	}

	storageKey := fmt.Sprintf("%s/%s-screenshot.png", action.WorkspaceID, action.ID)
	path := filepath.Join(e.ArtifactsDir, storageKey)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.Logger.Warn("writing screenshot", "error", err, "action_id", action.ID)
		return
	}

	if _, err := e.Artifacts.Create(ctx, action.WorkspaceID, action.ID, run.ArtifactTypeScreenshot, storageKey, int64(len(data))); err != nil {
		e.Logger.Warn("creating artifact row", "error", err, "action_id", action.ID)
		return
	}
	telemetry.ArtifactBytesWrittenTotal.Add(float64(len(data)))
}

// finishAccountRun recomputes the AccountRun's terminal status from its
// Actions, flips the account to needs_login on AUTH_REQUIRED, accrues usage,
// and rolls the parent Run up.
func (e *Executor) finishAccountRun(ctx context.Context, accountRun *run.AccountRun) error {
	actions, err := e.actionsForAccountRun(ctx, accountRun)
	if err != nil {
		return err
	}

	var firstFailureCode *string
	authRequired := false
	anyFailed := false
	for _, a := range actions {
		if a.Status != run.ActionStatusFailed {
			continue
		}
		anyFailed = true
		code := actionFailedFallback
		if a.ErrorCode != nil && *a.ErrorCode != "" {
			code = *a.ErrorCode
		}
		if code == workerclient.ErrAuthRequired {
			authRequired = true
		}
		if code != workerclient.ErrAborted && firstFailureCode == nil {
			c := code
			firstFailureCode = &c
		}
	}
	if anyFailed && firstFailureCode == nil {
		c := actionFailedFallback
		firstFailureCode = &c
	}

	now := time.Now().UTC()
	if authRequired {
		if err := e.SocialAccounts.SetNeedsLogin(ctx, accountRun.SocialAccountID, now); err != nil {
			e.Logger.Error("setting account needs_login", "error", err, "social_account_id", accountRun.SocialAccountID)
		}
	}

	status := run.AccountRunStatusSucceeded
	if firstFailureCode != nil {
		status = run.AccountRunStatusFailed
	}
	if err := e.AccountRuns.Finish(ctx, accountRun.ID, status, firstFailureCode, now); err != nil {
		return fmt.Errorf("finishing account run: %w", err)
	}

	errCodeLabel := ""
	if firstFailureCode != nil {
		errCodeLabel = *firstFailureCode
	}
	telemetry.AccountRunsFinishedTotal.WithLabelValues(status, errCodeLabel).Inc()

	if accountRun.StartedAt != nil {
		seconds := int64(now.Sub(*accountRun.StartedAt).Seconds())
		if seconds < 0 {
			seconds = 0
		}
		if err := e.Usage.UpsertSeconds(ctx, accountRun.WorkspaceID, workspace.PeriodStart(now), seconds); err != nil {
			e.Logger.Error("accruing workspace usage", "error", err, "workspace_id", accountRun.WorkspaceID)
		}
	}

	return e.rollUpRun(ctx, accountRun.WorkspaceID, accountRun.RunID)
}

// failAccountRun fails an AccountRun immediately for a sanity-gate error
// (no Actions attempted) and rolls the parent Run up.
func (e *Executor) failAccountRun(ctx context.Context, accountRun *run.AccountRun, errorCode string) error {
	now := time.Now().UTC()
	if err := e.AccountRuns.Finish(ctx, accountRun.ID, run.AccountRunStatusFailed, &errorCode, now); err != nil {
		return fmt.Errorf("failing account run: %w", err)
	}
	telemetry.AccountRunsFinishedTotal.WithLabelValues(run.AccountRunStatusFailed, errorCode).Inc()
	return e.rollUpRun(ctx, accountRun.WorkspaceID, accountRun.RunID)
}

// rollUpRun recomputes the parent Run's status once all of its AccountRuns
// are terminal.
func (e *Executor) rollUpRun(ctx context.Context, workspaceID, runID uuid.UUID) error {
	nonTerminal, err := e.Runs.CountNonTerminalAccountRuns(ctx, runID)
	if err != nil {
		return err
	}
	if nonTerminal > 0 {
		return nil
	}

	failed, err := e.Runs.CountFailedAccountRuns(ctx, runID)
	if err != nil {
		return err
	}

	status := run.RunStatusSucceeded
	if failed > 0 {
		status = run.RunStatusFailed
	}
	return e.Runs.Finish(ctx, runID, status, time.Now().UTC())
}

func (e *Executor) actionsForAccountRun(ctx context.Context, accountRun *run.AccountRun) ([]*run.Action, error) {
	return e.Actions.ListByAccountRun(ctx, accountRun.ID)
}

func strPtr(s string) *string {
	return &s
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
