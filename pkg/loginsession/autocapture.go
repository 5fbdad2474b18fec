package loginsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/crypto"
	"github.com/xxrenzhe/syncsocial/internal/telemetry"
	"github.com/xxrenzhe/syncsocial/pkg/credential"
	"github.com/xxrenzhe/syncsocial/pkg/socialaccount"
	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
)

// AutoCapture watches a freshly started LoginSession's worker runtime until
// it reports logged-in, then captures and encrypts its storage state.
type AutoCapture struct {
	Sessions        *Store
	Credentials     *credential.Store
	SocialAccounts  *socialaccount.Store
	Vault           *crypto.Vault
	VaultKey        string
	Worker          workerclient.Client
	Enabled         bool
	PollInterval    time.Duration
	Logger          *slog.Logger
}

// Start spawns a detached goroutine polling the given session until it
// reaches a terminal state. It is a no-op if auto-capture is disabled or
// the encryption key is unset, matching the guardrail in spec.
func (a *AutoCapture) Start(loginSessionID uuid.UUID) {
	if !a.Enabled || a.VaultKey == "" {
		return
	}
	go a.run(context.Background(), loginSessionID)
}

func (a *AutoCapture) run(ctx context.Context, loginSessionID uuid.UUID) {
	for {
		session, err := a.Sessions.GetByID(ctx, loginSessionID)
		if err != nil {
			a.Logger.Error("loading login session", "error", err, "login_session_id", loginSessionID)
			return
		}
		if session == nil || session.IsTerminal() {
			return
		}

		now := time.Now().UTC()
		if !session.ExpiresAt.After(now) {
			a.expire(ctx, session)
			return
		}

		loggedIn, err := a.Worker.IsLoggedIn(ctx, loginSessionID.String())
		if err != nil {
			if errors.Is(err, workerclient.ErrSessionNotFound) {
				return
			}
			time.Sleep(a.PollInterval)
			continue
		}

		if !loggedIn {
			time.Sleep(a.PollInterval)
			continue
		}

		a.finalize(ctx, session)
		return
	}
}

func (a *AutoCapture) expire(ctx context.Context, session *LoginSession) {
	if err := a.Sessions.SetStatus(ctx, session.ID, StatusExpired); err != nil {
		a.Logger.Error("expiring login session", "error", err, "login_session_id", session.ID)
	}
	_ = a.Worker.StopLoginSession(ctx, session.ID.String())
	telemetry.AutoCaptureOutcomesTotal.WithLabelValues(StatusExpired).Inc()
}

// finalize performs the capture-and-persist transaction once: export
// storage state, encrypt, upsert credential, mark account healthy, mark
// session succeeded, then stops the worker runtime. Used by the polling
// loop; the interactive finalize endpoint goes through FinalizeInteractive,
// which calls Finalize.
func (a *AutoCapture) finalize(ctx context.Context, session *LoginSession) {
	if err := a.Finalize(ctx, session); err != nil {
		a.Logger.Warn("finalizing login session capture", "error", err, "login_session_id", session.ID)
		_ = a.Sessions.SetStatus(ctx, session.ID, StatusFailed)
		_ = a.Worker.StopLoginSession(ctx, session.ID.String())
		telemetry.AutoCaptureOutcomesTotal.WithLabelValues(StatusFailed).Inc()
		return
	}
	_ = a.Worker.StopLoginSession(ctx, session.ID.String())
	telemetry.AutoCaptureOutcomesTotal.WithLabelValues(StatusSucceeded).Inc()
}

// ErrNotLoggedIn is returned by FinalizeInteractive when the worker still
// reports the session as not logged in.
var ErrNotLoggedIn = errors.New("loginsession: not logged in")

// FinalizeInteractive performs the user-triggered variant of capture: it
// probes is_logged_in once and errors if the worker reports not-logged-in
// or the runtime is missing, instead of sleeping and retrying.
func (a *AutoCapture) FinalizeInteractive(ctx context.Context, session *LoginSession) error {
	loggedIn, err := a.Worker.IsLoggedIn(ctx, session.ID.String())
	if err != nil {
		return fmt.Errorf("probing login status: %w", err)
	}
	if !loggedIn {
		return ErrNotLoggedIn
	}

	if err := a.Finalize(ctx, session); err != nil {
		return err
	}
	_ = a.Worker.StopLoginSession(ctx, session.ID.String())
	telemetry.AutoCaptureOutcomesTotal.WithLabelValues(StatusSucceeded).Inc()
	return nil
}

// Finalize runs the capture-and-persist transaction and returns an error if
// any step fails. It does not stop the worker runtime; callers do that
// themselves so they can distinguish "capture failed" cleanup paths.
func (a *AutoCapture) Finalize(ctx context.Context, session *LoginSession) error {
	storageState, err := a.Worker.ExportStorageState(ctx, session.ID.String())
	if err != nil {
		return fmt.Errorf("exporting storage state: %w", err)
	}

	encryptedBlob, err := a.Vault.EncryptJSON(storageState)
	if err != nil {
		return fmt.Errorf("encrypting storage state: %w", err)
	}

	if err := a.Sessions.SetStatus(ctx, session.ID, StatusCapturing); err != nil {
		return fmt.Errorf("marking session capturing: %w", err)
	}

	now := time.Now().UTC()
	if err := a.Credentials.Upsert(ctx, session.SocialAccountID, credential.TypeStorageState, encryptedBlob, 1, now); err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}

	if err := a.SocialAccounts.SetHealthy(ctx, session.SocialAccountID, now); err != nil {
		return fmt.Errorf("marking account healthy: %w", err)
	}

	if err := a.Sessions.SetStatus(ctx, session.ID, StatusSucceeded); err != nil {
		return fmt.Errorf("marking session succeeded: %w", err)
	}

	return nil
}
