// Package session manages the in-process Playwright runtimes backing
// interactive login sessions: one browser/context/page triple per
// login_session_id, guarded by a mutex and torn down on stop.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/xxrenzhe/syncsocial/internal/browsernode/platform"
)

// ErrNotFound is returned when a login_session_id has no runtime, either
// because it was never started or was already stopped.
var ErrNotFound = fmt.Errorf("session: login session runtime not found")

// Runtime is the live Playwright state backing one login session.
type Runtime struct {
	PlatformKey string
	CreatedAt   time.Time
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	page        playwright.Page
}

// Manager holds every live login-session runtime for this worker process.
type Manager struct {
	mu       sync.Mutex
	runtimes map[uuid.UUID]*Runtime
	headless bool
	novncURL string
}

// NewManager creates a Manager. headless controls whether launched browsers
// run headless; novncURL is returned by Start as the remote_url so an
// operator can watch the interactive login.
func NewManager(headless bool, novncURL string) *Manager {
	return &Manager{
		runtimes: make(map[uuid.UUID]*Runtime),
		headless: headless,
		novncURL: novncURL,
	}
}

// Start launches a browser, navigates to the platform's login URL, and
// registers the runtime. Calling Start again for an id that is already
// running is a no-op that just returns the same remote_url.
// fingerprintProfile is the account's assigned fingerprint_profile; only
// the fields platform.ContextOptionsForFingerprint whitelists are applied
// to the new browser context.
func (m *Manager) Start(loginSessionID uuid.UUID, platformKey string, fingerprintProfile map[string]any) (string, error) {
	m.mu.Lock()
	if _, ok := m.runtimes[loginSessionID]; ok {
		m.mu.Unlock()
		return m.novncURL, nil
	}
	m.mu.Unlock()

	loginURL, err := platform.LoginURL(platformKey)
	if err != nil {
		return "", err
	}

	pw, err := playwright.Run()
	if err != nil {
		return "", fmt.Errorf("starting playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.headless),
	})
	if err != nil {
		_ = pw.Stop()
		return "", fmt.Errorf("launching browser: %w", err)
	}

	ctx, err := browser.NewContext(platform.ContextOptionsForFingerprint(fingerprintProfile))
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return "", fmt.Errorf("creating browser context: %w", err)
	}

	page, err := ctx.NewPage()
	if err != nil {
		_ = ctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return "", fmt.Errorf("creating page: %w", err)
	}

	if _, err := page.Goto(loginURL); err != nil {
		_ = ctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return "", fmt.Errorf("navigating to login url: %w", err)
	}

	runtime := &Runtime{
		PlatformKey: platformKey,
		CreatedAt:   time.Now().UTC(),
		pw:          pw,
		browser:     browser,
		context:     ctx,
		page:        page,
	}

	m.mu.Lock()
	m.runtimes[loginSessionID] = runtime
	m.mu.Unlock()

	return m.novncURL, nil
}

// IsLoggedIn reports whether the runtime's cookie jar carries the
// platform's authentication cookie.
func (m *Manager) IsLoggedIn(loginSessionID uuid.UUID) (bool, error) {
	runtime, err := m.get(loginSessionID)
	if err != nil {
		return false, err
	}

	origin, err := platform.CookieOrigin(runtime.PlatformKey)
	if err != nil {
		return false, err
	}

	cookies, err := runtime.context.Cookies(origin)
	if err != nil {
		return false, fmt.Errorf("reading cookies: %w", err)
	}

	names := make([]platform.Cookie, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, platform.Cookie{Name: c.Name})
	}
	return platform.IsLoggedIn(runtime.PlatformKey, names)
}

// ExportStorageState returns the runtime's storage state (cookies + origin
// local storage) as a generic map, ready to hand to the action executor or
// persist (encrypted) as a Credential.
func (m *Manager) ExportStorageState(loginSessionID uuid.UUID) (map[string]any, error) {
	runtime, err := m.get(loginSessionID)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "syncsocial-storage-state-*.json")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	if _, err := runtime.context.StorageState(path); err != nil {
		return nil, fmt.Errorf("exporting storage state: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading storage state file: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding storage state: %w", err)
	}
	return out, nil
}

// Stop tears down and forgets the runtime for loginSessionID. A no-op if no
// runtime is registered.
func (m *Manager) Stop(loginSessionID uuid.UUID) {
	m.mu.Lock()
	runtime, ok := m.runtimes[loginSessionID]
	if ok {
		delete(m.runtimes, loginSessionID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	_ = runtime.context.Close()
	_ = runtime.browser.Close()
	_ = runtime.pw.Stop()
}

func (m *Manager) get(loginSessionID uuid.UUID) (*Runtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runtime, ok := m.runtimes[loginSessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return runtime, nil
}
