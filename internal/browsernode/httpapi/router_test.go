package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/xxrenzhe/syncsocial/internal/browsernode/action"
	"github.com/xxrenzhe/syncsocial/internal/browsernode/session"
)

func newTestRouter(tokenHash string) chi.Router {
	h := &Handler{
		Sessions: session.NewManager(true, ""),
		Actions:  &action.Executor{Headless: true},
		Logger:   slog.Default(),
	}
	r := chi.NewRouter()
	h.Mount(r, tokenHash)
	return r
}

func tokenHashFor(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func TestHealth_NoTokenRequired(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestInternalToken_MissingHeader(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodPost, "/login-sessions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestInternalToken_WrongToken(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodPost, "/login-sessions", strings.NewReader(`{}`))
	req.Header.Set("x-internal-token", "not-the-secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", rec.Code)
	}
}

func TestInternalToken_NotConfigured(t *testing.T) {
	r := newTestRouter("")
	req := httptest.NewRequest(http.MethodPost, "/login-sessions", strings.NewReader(`{}`))
	req.Header.Set("x-internal-token", "anything")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("got status %d, want 503", rec.Code)
	}
}

func TestCreateLoginSession_InvalidBody(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodPost, "/login-sessions", strings.NewReader(`not json`))
	req.Header.Set("x-internal-token", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestCreateLoginSession_InvalidID(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodPost, "/login-sessions", strings.NewReader(`{"login_session_id":"not-a-uuid","platform_key":"x"}`))
	req.Header.Set("x-internal-token", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want 422 (login_session_id fails uuid validation before the handler ever calls uuid.Parse)", rec.Code)
	}
}

func TestCreateLoginSession_MissingFields(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodPost, "/login-sessions", strings.NewReader(`{}`))
	req.Header.Set("x-internal-token", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want 422", rec.Code)
	}
}

func TestIsLoggedIn_InvalidID(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodGet, "/login-sessions/not-a-uuid/is-logged-in", nil)
	req.Header.Set("x-internal-token", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestIsLoggedIn_NotFound(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodGet, "/login-sessions/"+"00000000-0000-0000-0000-000000000000"+"/is-logged-in", nil)
	req.Header.Set("x-internal-token", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestExecuteAction_InvalidBody(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodPost, "/automation/actions/execute", strings.NewReader(`not json`))
	req.Header.Set("x-internal-token", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestExecuteBatch_InvalidBody(t *testing.T) {
	r := newTestRouter(tokenHashFor("secret"))
	req := httptest.NewRequest(http.MethodPost, "/automation/actions/execute-batch", strings.NewReader(`not json`))
	req.Header.Set("x-internal-token", "secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}
