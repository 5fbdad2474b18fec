// Package httpapi wires the browser-node's login-session and automation
// endpoints behind the shared internal-token middleware.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/browsernode/action"
	"github.com/xxrenzhe/syncsocial/internal/browsernode/session"
	"github.com/xxrenzhe/syncsocial/internal/httpserver"
	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
)

// Handler implements spec.md's control-plane-to-browser-node HTTP contract.
type Handler struct {
	Sessions *session.Manager
	Actions  *action.Executor
	Logger   *slog.Logger
}

// Mount registers every endpoint on r, gated by tokenHash (the SHA-256 hex
// digest of the expected x-internal-token).
func (h *Handler) Mount(r chi.Router, tokenHash string) {
	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(httpserver.InternalToken(tokenHash))

		r.Post("/login-sessions", h.createLoginSession)
		r.Get("/login-sessions/{id}/is-logged-in", h.isLoggedIn)
		r.Get("/login-sessions/{id}/storage-state", h.storageState)
		r.Post("/login-sessions/{id}/stop", h.stopLoginSession)
		r.Post("/automation/actions/execute", h.executeAction)
		r.Post("/automation/actions/execute-batch", h.executeBatch)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createLoginSession(w http.ResponseWriter, r *http.Request) {
	var req workerclient.StartLoginSessionRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	id, err := uuid.Parse(req.LoginSessionID)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_login_session_id", err.Error())
		return
	}

	remoteURL, err := h.Sessions.Start(id, req.PlatformKey, req.FingerprintProfile)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "start_login_session_failed", err.Error())
		return
	}

	httpserver.Respond(w, http.StatusOK, workerclient.StartLoginSessionResponse{RemoteURL: remoteURL})
}

func (h *Handler) isLoggedIn(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_login_session_id", err.Error())
		return
	}

	loggedIn, err := h.Sessions.IsLoggedIn(id)
	if errors.Is(err, session.ErrNotFound) {
		httpserver.RespondError(w, http.StatusNotFound, "login_session_not_found", "login session not found")
		return
	}
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "is_logged_in_failed", err.Error())
		return
	}

	httpserver.Respond(w, http.StatusOK, workerclient.IsLoggedInResponse{LoggedIn: loggedIn})
}

func (h *Handler) storageState(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_login_session_id", err.Error())
		return
	}

	state, err := h.Sessions.ExportStorageState(id)
	if errors.Is(err, session.ErrNotFound) {
		httpserver.RespondError(w, http.StatusNotFound, "login_session_not_found", "login session not found")
		return
	}
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "export_storage_state_failed", err.Error())
		return
	}

	httpserver.Respond(w, http.StatusOK, state)
}

func (h *Handler) stopLoginSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_login_session_id", err.Error())
		return
	}

	h.Sessions.Stop(id)
	httpserver.Respond(w, http.StatusOK, workerclient.StopResponse{OK: true})
}

func (h *Handler) executeAction(w http.ResponseWriter, r *http.Request) {
	var req workerclient.ExecuteActionRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	results := h.Actions.ExecuteBatch(req.PlatformKey, req.StorageState, req.BandwidthMode, []workerclient.ActionSpec{{
		ActionType:       req.ActionType,
		TargetURL:        req.TargetURL,
		TargetExternalID: req.TargetExternalID,
		ActionParams:     req.ActionParams,
	}}, req.FingerprintProfile)

	httpserver.Respond(w, http.StatusOK, results[0])
}

func (h *Handler) executeBatch(w http.ResponseWriter, r *http.Request) {
	var req workerclient.ExecuteBatchRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	results := h.Actions.ExecuteBatch(req.PlatformKey, req.StorageState, req.BandwidthMode, req.Actions, req.FingerprintProfile)
	httpserver.Respond(w, http.StatusOK, workerclient.ExecuteBatchResponse{Results: results})
}
