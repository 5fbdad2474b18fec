// Package app wires the control plane's four runtime modes (migrate, api,
// dispatcher, seed) from a parsed config.Config: constructing the
// ambient stack (DB pool, Redis client, logger, metrics) and handing it
// to the packages that do the actual work.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/browsernode/action"
	"github.com/xxrenzhe/syncsocial/internal/browsernode/localclient"
	"github.com/xxrenzhe/syncsocial/internal/browsernode/session"
	"github.com/xxrenzhe/syncsocial/internal/config"
	"github.com/xxrenzhe/syncsocial/internal/crypto"
	"github.com/xxrenzhe/syncsocial/internal/httpserver"
	"github.com/xxrenzhe/syncsocial/internal/platform"
	"github.com/xxrenzhe/syncsocial/internal/queue"
	"github.com/xxrenzhe/syncsocial/internal/telemetry"
	"github.com/xxrenzhe/syncsocial/pkg/artifact"
	"github.com/xxrenzhe/syncsocial/pkg/credential"
	"github.com/xxrenzhe/syncsocial/pkg/executor"
	"github.com/xxrenzhe/syncsocial/pkg/loginsession"
	"github.com/xxrenzhe/syncsocial/pkg/run"
	"github.com/xxrenzhe/syncsocial/pkg/schedule"
	"github.com/xxrenzhe/syncsocial/pkg/socialaccount"
	"github.com/xxrenzhe/syncsocial/pkg/strategy"
	"github.com/xxrenzhe/syncsocial/pkg/subscription"
	"github.com/xxrenzhe/syncsocial/pkg/usage"
	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
	"github.com/xxrenzhe/syncsocial/pkg/workspace"
)

// accountRunQueueKey names the Redis list the dispatcher enqueues onto and
// the account-run worker loop consumes from.
const accountRunQueueKey = "account_run_tasks"

// Run starts the control plane in the mode named by cfg.Mode, blocking
// until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)

	switch cfg.Mode {
	case "migrate":
		return platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir)
	case "api":
		return runAPI(ctx, cfg, logger)
	case "dispatcher":
		return runDispatcher(ctx, cfg, logger)
	case "seed":
		return runSeed(ctx, cfg, logger)
	default:
		return fmt.Errorf("app: unknown mode %q (want migrate, api, dispatcher, or seed)", cfg.Mode)
	}
}

func newWorkerClient(cfg *config.Config, logger *slog.Logger) workerclient.Client {
	if cfg.RemoteWorker() {
		return workerclient.NewHTTPClient(cfg.BrowserNodeAPIBaseURL, cfg.BrowserNodeInternalToken, cfg.WorkerCallTimeout)
	}
	sessions := session.NewManager(cfg.BrowserHeadless, cfg.NoVNCPublicURL)
	actions := &action.Executor{Headless: cfg.BrowserHeadless}
	return localclient.New(sessions, actions)
}

// runAPI serves health/ready/metrics plus the login-session lifecycle
// endpoints: creating an interactive login session, and the
// human-triggered finalize call that captures its storage state.
func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	metrics := telemetry.NewMetricsRegistry()
	server := httpserver.NewServer(cfg.CORSAllowedOrigins, logger, pool, rdb, metrics)

	vault := crypto.NewVault(cfg.CredentialEncryptionKey)
	worker := newWorkerClient(cfg, logger)

	h := &apiHandler{
		sessions:       loginsession.NewStore(pool),
		socialAccounts: socialaccount.NewStore(pool),
		autoCapture: &loginsession.AutoCapture{
			Sessions:       loginsession.NewStore(pool),
			Credentials:    credential.NewStore(pool),
			SocialAccounts: socialaccount.NewStore(pool),
			Vault:          vault,
			VaultKey:       cfg.CredentialEncryptionKey,
			Worker:         worker,
			Enabled:        cfg.LoginSessionAutoCapture,
			PollInterval:   cfg.AutoCapturePollInterval,
			Logger:         logger,
		},
		worker:   worker,
		loginTTL: cfg.LoginSessionTTL,
		logger:   logger,
	}
	h.mount(server.Router)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: server,
	}

	logger.Info("starting control plane api", "addr", cfg.ListenAddr())
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// apiHandler owns the control plane's small interactive HTTP surface:
// starting a login session against the worker and finalizing it.
type apiHandler struct {
	sessions       *loginsession.Store
	socialAccounts *socialaccount.Store
	autoCapture    *loginsession.AutoCapture
	worker         workerclient.Client
	loginTTL       time.Duration
	logger         *slog.Logger
}

func (h *apiHandler) mount(r chi.Router) {
	r.Route("/login-sessions", func(r chi.Router) {
		r.Post("/", h.start)
		r.Post("/{id}/finalize", h.finalize)
	})
}

type startLoginSessionBody struct {
	WorkspaceID     uuid.UUID `json:"workspace_id" validate:"required"`
	SocialAccountID uuid.UUID `json:"social_account_id" validate:"required"`
	PlatformKey     string    `json:"platform_key" validate:"required"`
}

func (h *apiHandler) start(w http.ResponseWriter, r *http.Request) {
	var body startLoginSessionBody
	if !httpserver.DecodeAndValidate(w, r, &body) {
		return
	}

	ctx := r.Context()
	expiresAt := time.Now().UTC().Add(h.loginTTL)
	loginSession, err := h.sessions.Create(ctx, body.WorkspaceID, body.SocialAccountID, body.PlatformKey, expiresAt, nil)
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "create_login_session_failed", err.Error())
		return
	}

	account, err := h.socialAccounts.GetByID(ctx, body.WorkspaceID, body.SocialAccountID)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "social_account_not_found", err.Error())
		return
	}

	resp, err := h.worker.StartLoginSession(ctx, workerclient.StartLoginSessionRequest{
		LoginSessionID:     loginSession.ID.String(),
		PlatformKey:        body.PlatformKey,
		FingerprintProfile: account.FingerprintProfile,
	})
	if err != nil {
		httpserver.RespondError(w, http.StatusBadGateway, "start_login_session_failed", err.Error())
		return
	}

	if err := h.sessions.SetRemoteURL(ctx, loginSession.ID, resp.RemoteURL); err != nil {
		h.logger.Error("recording login session remote url", "error", err, "login_session_id", loginSession.ID)
	}

	h.autoCapture.Start(loginSession.ID)

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"id":         loginSession.ID,
		"remote_url": resp.RemoteURL,
	})
}

func (h *apiHandler) finalize(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_login_session_id", err.Error())
		return
	}

	ctx := r.Context()
	loginSession, err := h.sessions.GetByID(ctx, id)
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "load_login_session_failed", err.Error())
		return
	}
	if loginSession == nil {
		httpserver.RespondError(w, http.StatusNotFound, "login_session_not_found", "login session not found")
		return
	}

	if err := h.autoCapture.FinalizeInteractive(ctx, loginSession); err != nil {
		if errors.Is(err, loginsession.ErrNotLoggedIn) {
			httpserver.RespondError(w, http.StatusConflict, "not_logged_in", "the worker does not report this session as logged in yet")
			return
		}
		httpserver.RespondError(w, http.StatusBadGateway, "finalize_failed", err.Error())
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": loginsession.StatusSucceeded})
}

// runDispatcher runs the tick loop, the account-run worker loop, and the
// artifact-retention sweeper loop concurrently until ctx is canceled.
func runDispatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer rdb.Close()

	q := queue.New(rdb, accountRunQueueKey)
	vault := crypto.NewVault(cfg.CredentialEncryptionKey)
	worker := newWorkerClient(cfg, logger)

	dispatcher := &schedule.Dispatcher{Pool: pool, Queue: q, Logger: logger}

	workspaces := workspace.NewStore(pool)
	exec := &executor.Executor{
		Runs:           run.NewRunStore(pool),
		AccountRuns:    run.NewAccountRunStore(pool),
		Actions:        run.NewActionStore(pool),
		Artifacts:      run.NewArtifactStore(pool),
		Strategies:     strategy.NewStore(pool),
		SocialAccounts: socialaccount.NewStore(pool),
		Credentials:    credential.NewStore(pool),
		Usage:          usage.NewStore(pool),
		Subscriptions:  subscription.NewGate(workspaces, usage.NewStore(pool)),
		Vault:          vault,
		Worker:         worker,
		ArtifactsDir:   cfg.ArtifactsDir,
		BandwidthMode:  "balanced",
		Logger:         logger,
	}

	sweeper := &artifact.Sweeper{
		Workspaces:   workspaces,
		Artifacts:    run.NewArtifactStore(pool),
		ArtifactsDir: cfg.ArtifactsDir,
		Logger:       logger,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runTickLoop(ctx, dispatcher, cfg.TickInterval, logger)
	}()
	go runAccountRunLoop(ctx, q, exec, logger)
	go runSweepLoop(ctx, workspaces, sweeper, cfg.ArtifactCleanupInterval, logger)

	<-ctx.Done()
	<-done
	return nil
}

func runTickLoop(ctx context.Context, dispatcher *schedule.Dispatcher, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := dispatcher.Tick(ctx); err != nil {
				logger.Error("tick failed", "error", err)
			}
		}
	}
}

func runAccountRunLoop(ctx context.Context, q *queue.Queue, exec *executor.Executor, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var task schedule.AccountRunTask
		if err := q.Pop(ctx, 5*time.Second, &task); err != nil {
			if errors.Is(err, queue.ErrEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			logger.Error("popping account run task", "error", err)
			continue
		}

		if err := exec.Execute(ctx, task.AccountRunID); err != nil {
			logger.Error("executing account run", "error", err, "account_run_id", task.AccountRunID)
		}
	}
}

func runSweepLoop(ctx context.Context, workspaces *workspace.Store, sweeper *artifact.Sweeper, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := workspaces.ListIDs(ctx)
			if err != nil {
				logger.Error("listing workspaces for artifact sweep", "error", err)
				continue
			}
			sweeper.SweepAllWorkspaces(ctx, ids, time.Now().UTC())
		}
	}
}

// runSeed inserts a minimal development workspace, social account,
// strategy, and schedule so a fresh environment has something for the
// dispatcher to fire on. It is a dev convenience, not a migration: running
// it twice produces two workspaces.
func runSeed(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	var workspaceID uuid.UUID
	if err := pool.QueryRow(ctx,
		`INSERT INTO workspaces (name, status) VALUES ($1, 'active') RETURNING id`,
		"Dev Workspace",
	).Scan(&workspaceID); err != nil {
		return fmt.Errorf("seeding workspace: %w", err)
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO workspace_subscriptions (workspace_id, status, plan_key, seats, artifact_retention_days)
		 VALUES ($1, 'active', 'dev', 1, 30)`,
		workspaceID,
	); err != nil {
		return fmt.Errorf("seeding subscription: %w", err)
	}

	var socialAccountID uuid.UUID
	if err := pool.QueryRow(ctx,
		`INSERT INTO social_accounts (workspace_id, platform_key, handle, status)
		 VALUES ($1, 'x', '@dev_account', 'needs_login') RETURNING id`,
		workspaceID,
	).Scan(&socialAccountID); err != nil {
		return fmt.Errorf("seeding social account: %w", err)
	}

	strategyConfig := map[string]any{
		"type":        "like",
		"targets":     []string{"https://x.com/x/status/1"},
		"max_per_run": 1,
	}
	configJSON, err := json.Marshal(strategyConfig)
	if err != nil {
		return fmt.Errorf("marshaling seed strategy config: %w", err)
	}

	var strategyID uuid.UUID
	if err := pool.QueryRow(ctx,
		`INSERT INTO strategies (workspace_id, name, platform_key, version, config)
		 VALUES ($1, 'Dev Like Strategy', 'x', 1, $2) RETURNING id`,
		workspaceID, configJSON,
	).Scan(&strategyID); err != nil {
		return fmt.Errorf("seeding strategy: %w", err)
	}

	accountSelector, err := json.Marshal(map[string]any{"all": true})
	if err != nil {
		return fmt.Errorf("marshaling seed account selector: %w", err)
	}
	scheduleSpec, err := json.Marshal(map[string]any{"interval_minutes": 60})
	if err != nil {
		return fmt.Errorf("marshaling seed schedule spec: %w", err)
	}

	if _, err := pool.Exec(ctx,
		`INSERT INTO schedules (workspace_id, strategy_id, enabled, frequency, schedule_spec, account_selector, max_parallel)
		 VALUES ($1, $2, true, 'interval', $3, $4, 1)`,
		workspaceID, strategyID, scheduleSpec, accountSelector,
	); err != nil {
		return fmt.Errorf("seeding schedule: %w", err)
	}

	logger.Info("seeded development data", "workspace_id", workspaceID, "social_account_id", socialAccountID, "strategy_id", strategyID)
	return nil
}
