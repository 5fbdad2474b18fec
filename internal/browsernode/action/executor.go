// Package action implements the browser-node's action executor: it takes a
// storage state and a batch of action specs and drives a headless (or
// headed) Chromium session through the platform's UI, one action type at a
// time, aborting the rest of the batch on the first failure.
package action

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/xxrenzhe/syncsocial/internal/browsernode/platform"
	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
)

// Recognized action_type aliases, mirrored from the worker's dispatch
// table: several historical names route to the same handler.
var (
	healthCheckTypes = set("health_check", "x_health_check")
	likeTypes        = set("x_like", "like")
	repostTypes      = set("x_repost", "x_retweet", "retweet", "repost")
	searchTypes      = set("x_search_collect", "search_collect")
	replyTypes       = set("x_reply", "reply", "comment", "x_comment")
	quoteTypes       = set("x_quote", "quote")
)

func set(vals ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}

// Executor drives one headless browsing session per call; it does not hold
// any state between calls (unlike session.Manager, which keeps interactive
// login runtimes alive across calls).
type Executor struct {
	Headless bool
}

// ExecuteBatch runs each action against the same browser context in order,
// stopping at the first failure: that action keeps its own error code and
// every remaining action is reported failed with ABORTED, per spec.
// fingerprintProfile carries the account's whitelisted fingerprint fields
// (see platform.ContextOptionsForFingerprint) into the new browser context
// alongside the restored storage state.
func (e *Executor) ExecuteBatch(platformKey string, storageState map[string]any, bandwidthMode string, actions []workerclient.ActionSpec, fingerprintProfile map[string]any) []workerclient.ExecuteActionResult {
	if strings.ToLower(strings.TrimSpace(platformKey)) != "x" {
		return unsupportedPlatformResults(platformKey, len(actions))
	}

	pw, err := playwright.Run()
	if err != nil {
		return browserErrorResults(len(actions), fmt.Sprintf("starting playwright: %v", err))
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.Headless),
	})
	if err != nil {
		return browserErrorResults(len(actions), fmt.Sprintf("launching browser: %v", err))
	}
	defer browser.Close()

	ctxOpts, cleanup, err := contextOptionsForStorageState(storageState)
	if err != nil {
		return browserErrorResults(len(actions), fmt.Sprintf("preparing storage state: %v", err))
	}
	defer cleanup()
	applyFingerprint(ctxOpts, fingerprintProfile)

	browserContext, err := browser.NewContext(*ctxOpts)
	if err != nil {
		return browserErrorResults(len(actions), fmt.Sprintf("creating browser context: %v", err))
	}
	defer browserContext.Close()

	installBandwidthMode(browserContext, bandwidthMode)

	page, err := browserContext.NewPage()
	if err != nil {
		return browserErrorResults(len(actions), fmt.Sprintf("creating page: %v", err))
	}
	page.SetDefaultTimeout(15_000)
	page.SetDefaultNavigationTimeout(30_000)

	results := make([]workerclient.ExecuteActionResult, 0, len(actions))
	aborted := false
	for _, spec := range actions {
		if aborted {
			results = append(results, workerclient.ExecuteActionResult{
				Status:     workerclient.StatusFailed,
				ErrorCode:  workerclient.ErrAborted,
				Message:    "previous action failed",
				CurrentURL: page.URL(),
			})
			continue
		}

		res := executeOne(page, spec)
		results = append(results, res)
		if res.Status == workerclient.StatusFailed {
			aborted = true
		}
	}

	return results
}

// installBandwidthMode mirrors the Python route filter: eco drops
// images/media, balanced drops only media, and both always drop known
// tracker hosts. full (or unrecognized modes) install no filter.
func installBandwidthMode(ctx playwright.BrowserContext, mode string) {
	normalized := strings.ToLower(strings.TrimSpace(mode))
	if normalized != workerclient.BandwidthEco && normalized != workerclient.BandwidthBalanced {
		return
	}

	_ = ctx.Route("**/*", func(route playwright.Route) {
		req := route.Request()
		resourceType := req.ResourceType()
		url := req.URL()

		if normalized == workerclient.BandwidthEco && (resourceType == "image" || resourceType == "media") {
			_ = route.Abort()
			return
		}
		if normalized == workerclient.BandwidthBalanced && resourceType == "media" {
			_ = route.Abort()
			return
		}
		if strings.Contains(url, "doubleclick.net") || strings.Contains(url, "google-analytics.com") {
			_ = route.Abort()
			return
		}
		_ = route.Continue()
	})
}

// contextOptionsForStorageState writes storageState to a temp file and
// returns NewContext options pointing at it, since the Go binding accepts
// storage state as a file path rather than an inline struct. cleanup must
// be called once the context using the path has been created.
func contextOptionsForStorageState(storageState map[string]any) (*playwright.BrowserNewContextOptions, func(), error) {
	noop := func() {}
	if len(storageState) == 0 {
		return &playwright.BrowserNewContextOptions{}, noop, nil
	}

	raw, err := json.Marshal(storageState)
	if err != nil {
		return nil, noop, fmt.Errorf("marshaling storage state: %w", err)
	}

	tmp, err := os.CreateTemp("", "syncsocial-load-storage-state-*.json")
	if err != nil {
		return nil, noop, fmt.Errorf("creating temp file: %w", err)
	}
	path := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(path)
		return nil, noop, fmt.Errorf("writing storage state: %w", err)
	}
	tmp.Close()

	return &playwright.BrowserNewContextOptions{StorageStatePath: &path}, func() { os.Remove(path) }, nil
}

// applyFingerprint overlays the account's whitelisted fingerprint fields onto
// opts in place, leaving the storage-state path (if any) untouched.
func applyFingerprint(opts *playwright.BrowserNewContextOptions, fingerprintProfile map[string]any) {
	fp := platform.ContextOptionsForFingerprint(fingerprintProfile)
	storageStatePath := opts.StorageStatePath
	*opts = fp
	opts.StorageStatePath = storageStatePath
}

func executeOne(page playwright.Page, spec workerclient.ActionSpec) workerclient.ExecuteActionResult {
	actionType := strings.ToLower(strings.TrimSpace(spec.ActionType))
	params := spec.ActionParams
	if params == nil {
		params = map[string]any{}
	}

	switch {
	case inSet(healthCheckTypes, actionType):
		return xHealthCheck(page)
	case inSet(likeTypes, actionType):
		return xLike(page, spec.TargetURL, spec.TargetExternalID)
	case inSet(repostTypes, actionType):
		return xRepost(page, spec.TargetURL, spec.TargetExternalID)
	case inSet(searchTypes, actionType):
		return xSearchCollect(page, spec.TargetURL, params)
	case inSet(replyTypes, actionType):
		return xReply(page, spec.TargetURL, spec.TargetExternalID, params)
	case inSet(quoteTypes, actionType):
		return xQuote(page, spec.TargetURL, spec.TargetExternalID, params)
	default:
		return workerclient.ExecuteActionResult{
			Status:     workerclient.StatusFailed,
			ErrorCode:  workerclient.ErrUnsupportedAction,
			Message:    fmt.Sprintf("unsupported action_type: %s", spec.ActionType),
			CurrentURL: page.URL(),
			ScreenshotBase64: safeScreenshot(page),
		}
	}
}

func inSet(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}

func unsupportedPlatformResults(platformKey string, n int) []workerclient.ExecuteActionResult {
	out := make([]workerclient.ExecuteActionResult, n)
	for i := range out {
		out[i] = workerclient.ExecuteActionResult{
			Status:    workerclient.StatusFailed,
			ErrorCode: workerclient.ErrUnsupportedPlatform,
			Message:   fmt.Sprintf("unsupported platform: %s", platformKey),
		}
	}
	return out
}

func browserErrorResults(n int, message string) []workerclient.ExecuteActionResult {
	out := make([]workerclient.ExecuteActionResult, n)
	for i := range out {
		out[i] = workerclient.ExecuteActionResult{
			Status:    workerclient.StatusFailed,
			ErrorCode: workerclient.ErrBrowserError,
			Message:   message,
		}
	}
	return out
}

func safeScreenshot(page playwright.Page) string {
	png, err := page.Screenshot(playwright.PageScreenshotOptions{
		Type:     playwright.ScreenshotTypePng,
		FullPage: playwright.Bool(false),
	})
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(png)
}

// --- x platform action handlers, one per action_type family ---

func xIsLoggedIn(page playwright.Page) bool {
	url := page.URL()
	if strings.Contains(url, "/i/flow/login") || strings.Contains(url, "/login") {
		return false
	}

	if count, err := page.Locator("[data-testid='loginButton']").Count(); err == nil && count > 0 {
		return false
	}
	if count, err := page.Locator("a[href='/login'], a[href*='/i/flow/login']").Count(); err == nil && count > 0 {
		return false
	}

	for _, selector := range []string{
		"[data-testid='SideNav_NewTweet_Button']",
		"[data-testid='AppTabBar_Profile_Link']",
	} {
		if err := page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(2_500),
		}); err == nil {
			return true
		}
	}
	return false
}

func xHealthCheck(page playwright.Page) workerclient.ExecuteActionResult {
	if _, err := page.Goto("https://x.com/home", playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return timeoutOrBrowserError(page, err)
	}

	if xIsLoggedIn(page) {
		return workerclient.ExecuteActionResult{
			Status:     workerclient.StatusSucceeded,
			CurrentURL: page.URL(),
			Metadata:   map[string]any{"logged_in": true},
		}
	}
	return workerclient.ExecuteActionResult{
		Status:           workerclient.StatusFailed,
		ErrorCode:        workerclient.ErrAuthRequired,
		Message:          "not logged in",
		CurrentURL:       page.URL(),
		ScreenshotBase64: safeScreenshot(page),
		Metadata:         map[string]any{"logged_in": false},
	}
}

func articleForTweet(page playwright.Page, tweetID string) playwright.Locator {
	if strings.TrimSpace(tweetID) != "" {
		return page.Locator("article").Filter(playwright.LocatorFilterOptions{
			Has: page.Locator(fmt.Sprintf("a[href*='/status/%s']", tweetID)),
		}).First()
	}
	return page.Locator("article").First()
}

func xLike(page playwright.Page, targetURL, tweetID string) workerclient.ExecuteActionResult {
	if strings.TrimSpace(targetURL) == "" {
		return invalidTarget("x_like")
	}
	if _, err := page.Goto(targetURL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}); err != nil {
		return timeoutOrBrowserError(page, err)
	}
	if !xIsLoggedIn(page) {
		return authRequired(page)
	}

	article := articleForTweet(page, tweetID)
	if err := article.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiSelectorChanged(page, "tweet article not found")
	}

	if count, _ := article.Locator("button[data-testid='unlike']").Count(); count > 0 {
		return workerclient.ExecuteActionResult{
			Status:     workerclient.StatusSkipped,
			Message:    "already liked",
			CurrentURL: page.URL(),
			Metadata:   map[string]any{"already_liked": true},
		}
	}

	likeButton := article.Locator("button[data-testid='like']").First()
	if err := likeButton.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiIntercepted(page, "like button not clickable")
	}
	_ = likeButton.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: playwright.Float(5_000)})
	if err := likeButton.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}

	if err := article.Locator("button[data-testid='unlike']").First().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(5_000),
	}); err != nil {
		return workerclient.ExecuteActionResult{
			Status:           workerclient.StatusFailed,
			ErrorCode:        workerclient.ErrPostValidationFail,
			Message:          "like action not confirmed (unlike not visible)",
			CurrentURL:       page.URL(),
			ScreenshotBase64: safeScreenshot(page),
			Metadata:         map[string]any{"already_liked": false},
		}
	}
	return workerclient.ExecuteActionResult{
		Status:     workerclient.StatusSucceeded,
		CurrentURL: page.URL(),
		Metadata:   map[string]any{"already_liked": false},
	}
}

func xRepost(page playwright.Page, targetURL, tweetID string) workerclient.ExecuteActionResult {
	if strings.TrimSpace(targetURL) == "" {
		return invalidTarget("x_repost")
	}
	if _, err := page.Goto(targetURL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}); err != nil {
		return timeoutOrBrowserError(page, err)
	}
	if !xIsLoggedIn(page) {
		return authRequired(page)
	}

	article := articleForTweet(page, tweetID)
	if err := article.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiSelectorChanged(page, "tweet article not found")
	}

	if count, _ := article.Locator("button[data-testid='unretweet']").Count(); count > 0 {
		return workerclient.ExecuteActionResult{
			Status:     workerclient.StatusSkipped,
			Message:    "already reposted",
			CurrentURL: page.URL(),
			Metadata:   map[string]any{"already_reposted": true},
		}
	}

	repostButton := article.Locator("button[data-testid='retweet']").First()
	if err := repostButton.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiIntercepted(page, "repost button not clickable")
	}
	_ = repostButton.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: playwright.Float(5_000)})
	if err := repostButton.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}

	confirm := page.Locator("[data-testid='retweetConfirm']").First()
	if err := confirm.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(5_000)}); err != nil {
		return uiSelectorChanged(page, "repost confirm not found")
	}
	if err := confirm.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}

	if err := article.Locator("button[data-testid='unretweet']").First().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(5_000),
	}); err != nil {
		return workerclient.ExecuteActionResult{
			Status:           workerclient.StatusFailed,
			ErrorCode:        workerclient.ErrPostValidationFail,
			Message:          "repost action not confirmed (unretweet not visible)",
			CurrentURL:       page.URL(),
			ScreenshotBase64: safeScreenshot(page),
			Metadata:         map[string]any{"already_reposted": false},
		}
	}
	return workerclient.ExecuteActionResult{
		Status:     workerclient.StatusSucceeded,
		CurrentURL: page.URL(),
		Metadata:   map[string]any{"already_reposted": false},
	}
}

func xHasReplyRestriction(page playwright.Page) bool {
	loc := page.Locator("text=/Who can reply|who can reply|Mentioned|mentioned/").First()
	count, err := loc.Count()
	if err != nil || count == 0 {
		return false
	}
	visible, err := loc.IsVisible()
	return err == nil && visible
}

func xDismissReplyRestriction(page playwright.Page) {
	for _, label := range []string{"Got it", "got it", "OK", "Ok"} {
		btn := page.Locator(fmt.Sprintf("button:has-text('%s')", label)).First()
		if count, err := btn.Count(); err == nil && count > 0 {
			_ = btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(2_000)})
			return
		}
	}
}

func xReply(page playwright.Page, targetURL, tweetID string, params map[string]any) workerclient.ExecuteActionResult {
	if strings.TrimSpace(targetURL) == "" {
		return invalidTarget("x_reply")
	}
	text := strings.TrimSpace(stringParam(params, "text"))
	if text == "" {
		return invalidParams("action_params.text is required for x_reply")
	}

	if _, err := page.Goto(targetURL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}); err != nil {
		return timeoutOrBrowserError(page, err)
	}
	if !xIsLoggedIn(page) {
		return authRequired(page)
	}

	article := articleForTweet(page, tweetID)
	if err := article.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiSelectorChanged(page, "tweet article not found")
	}

	replyButton := article.Locator("button[data-testid='reply']").First()
	if err := replyButton.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiIntercepted(page, "reply button not clickable")
	}
	_ = replyButton.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: playwright.Float(5_000)})
	if err := replyButton.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}
	page.WaitForTimeout(float64(900 + rand.Intn(700)))

	if xHasReplyRestriction(page) {
		xDismissReplyRestriction(page)
		return workerclient.ExecuteActionResult{
			Status:     workerclient.StatusSkipped,
			ErrorCode:  workerclient.ErrReplyRestricted,
			Message:    "reply restricted by author",
			CurrentURL: page.URL(),
		}
	}

	scope := dialogScope(page)
	textarea := scope.Locator("[data-testid='tweetTextarea_0']").First()
	if err := textarea.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(12_000)}); err != nil {
		return uiSelectorChanged(page, "reply textarea not found")
	}
	if err := textarea.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}
	typeText(page, text)

	postButton := scope.Locator("[data-testid='tweetButton'], [data-testid='tweetButtonInline']").First()
	if err := postButton.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiIntercepted(page, "reply submit not clickable")
	}
	if err := postButton.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}

	return workerclient.ExecuteActionResult{
		Status:     workerclient.StatusSucceeded,
		CurrentURL: page.URL(),
	}
}

func xQuote(page playwright.Page, targetURL, tweetID string, params map[string]any) workerclient.ExecuteActionResult {
	if strings.TrimSpace(targetURL) == "" {
		return invalidTarget("x_quote")
	}
	text := strings.TrimSpace(stringParam(params, "text"))
	if text == "" {
		return invalidParams("action_params.text is required for x_quote")
	}

	if _, err := page.Goto(targetURL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}); err != nil {
		return timeoutOrBrowserError(page, err)
	}
	if !xIsLoggedIn(page) {
		return authRequired(page)
	}

	article := articleForTweet(page, tweetID)
	if err := article.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiSelectorChanged(page, "tweet article not found")
	}

	if count, _ := article.Locator("button[data-testid='unretweet']").Count(); count > 0 {
		return workerclient.ExecuteActionResult{
			Status:     workerclient.StatusSkipped,
			Message:    "already reposted",
			CurrentURL: page.URL(),
			Metadata:   map[string]any{"already_reposted": true},
		}
	}

	repostButton := article.Locator("button[data-testid='retweet']").First()
	if err := repostButton.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiIntercepted(page, "repost button not clickable")
	}
	if err := repostButton.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}

	dropdown := page.Locator("[data-testid='Dropdown'], [role='menu']").First()
	if err := dropdown.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(6_000)}); err != nil {
		return uiSelectorChanged(page, "quote option not found")
	}
	quoteOption := dropdown.Locator("a[href*='/compose/post'], a[href*='/compose'], [data-testid='retweetWithComment']").First()
	if err := quoteOption.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}
	page.WaitForTimeout(float64(900 + rand.Intn(700)))

	textarea := page.Locator("[data-testid='tweetTextarea_0']").First()
	if err := textarea.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(20_000)}); err != nil {
		return uiSelectorChanged(page, "quote textarea not found")
	}
	if err := textarea.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return uiIntercepted(page, "cannot type quote text")
	}
	typeText(page, text)

	postButton := page.Locator("[data-testid='tweetButton'], [data-testid='tweetButtonInline']").First()
	if err := postButton.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10_000)}); err != nil {
		return uiIntercepted(page, "quote submit not clickable")
	}
	if err := postButton.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5_000)}); err != nil {
		return browserErrorOne(page, err)
	}
	page.WaitForTimeout(float64(1200 + rand.Intn(1000)))

	return workerclient.ExecuteActionResult{
		Status:     workerclient.StatusSucceeded,
		CurrentURL: page.URL(),
	}
}

func dialogScope(page playwright.Page) playwright.Locator {
	dialog := page.Locator("div[role='dialog'][aria-modal='true']").First()
	if count, err := dialog.Count(); err == nil && count > 0 {
		return dialog
	}
	return page.Locator("body")
}

func typeText(page playwright.Page, text string) {
	const maxChunk = 160
	for start := 0; start < len(text); start += maxChunk {
		end := start + maxChunk
		if end > len(text) {
			end = len(text)
		}
		_ = page.Keyboard().Type(text[start:end], playwright.KeyboardTypeOptions{
			Delay: playwright.Float(float64(35 + rand.Intn(40))),
		})
		page.WaitForTimeout(float64(120 + rand.Intn(140)))
	}
}

func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func invalidTarget(actionType string) workerclient.ExecuteActionResult {
	return workerclient.ExecuteActionResult{
		Status:    workerclient.StatusFailed,
		ErrorCode: workerclient.ErrInvalidTarget,
		Message:   fmt.Sprintf("target_url is required for %s", actionType),
	}
}

func invalidParams(message string) workerclient.ExecuteActionResult {
	return workerclient.ExecuteActionResult{
		Status:    workerclient.StatusFailed,
		ErrorCode: workerclient.ErrInvalidParams,
		Message:   message,
	}
}

func authRequired(page playwright.Page) workerclient.ExecuteActionResult {
	return workerclient.ExecuteActionResult{
		Status:           workerclient.StatusFailed,
		ErrorCode:        workerclient.ErrAuthRequired,
		Message:          "not logged in",
		CurrentURL:       page.URL(),
		ScreenshotBase64: safeScreenshot(page),
		Metadata:         map[string]any{"logged_in": false},
	}
}

func uiSelectorChanged(page playwright.Page, message string) workerclient.ExecuteActionResult {
	return workerclient.ExecuteActionResult{
		Status:           workerclient.StatusFailed,
		ErrorCode:        workerclient.ErrUISelectorChanged,
		Message:          message,
		CurrentURL:       page.URL(),
		ScreenshotBase64: safeScreenshot(page),
	}
}

func uiIntercepted(page playwright.Page, message string) workerclient.ExecuteActionResult {
	return workerclient.ExecuteActionResult{
		Status:           workerclient.StatusFailed,
		ErrorCode:        workerclient.ErrUIIntercepted,
		Message:          message,
		CurrentURL:       page.URL(),
		ScreenshotBase64: safeScreenshot(page),
	}
}

func browserErrorOne(page playwright.Page, err error) workerclient.ExecuteActionResult {
	return workerclient.ExecuteActionResult{
		Status:           workerclient.StatusFailed,
		ErrorCode:        workerclient.ErrBrowserError,
		Message:          err.Error(),
		CurrentURL:       page.URL(),
		ScreenshotBase64: safeScreenshot(page),
	}
}

func timeoutOrBrowserError(page playwright.Page, err error) workerclient.ExecuteActionResult {
	if strings.Contains(err.Error(), "Timeout") {
		return workerclient.ExecuteActionResult{
			Status:           workerclient.StatusFailed,
			ErrorCode:        workerclient.ErrNetworkTimeout,
			Message:          "navigation timeout",
			ScreenshotBase64: safeScreenshot(page),
		}
	}
	return browserErrorOne(page, err)
}

// --- x_search_collect ---

var tweetIDFromHref = regexp.MustCompile(`/status/(\d+)`)

func xSearchCollect(page playwright.Page, searchURL string, params map[string]any) workerclient.ExecuteActionResult {
	if strings.TrimSpace(searchURL) == "" {
		return invalidTarget("x_search_collect")
	}

	maxCandidates := intParam(params, "max_candidates", 20, 1, 200)
	scrollLimit := intParam(params, "scroll_limit", 6, 0, 50)
	verifiedOnlyDOM, _ := params["verified_only_dom"].(bool)

	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}); err != nil {
		return timeoutOrBrowserError(page, err)
	}
	if !xIsLoggedIn(page) {
		return authRequired(page)
	}

	if err := page.Locator("article").First().WaitFor(playwright.LocatorWaitForOptions{Timeout: playwright.Float(10_000)}); err != nil {
		return workerclient.ExecuteActionResult{
			Status:           workerclient.StatusSkipped,
			Message:          "no search results",
			CurrentURL:       page.URL(),
			ScreenshotBase64: safeScreenshot(page),
			Metadata:         map[string]any{"candidates": []any{}, "collected": 0},
		}
	}

	candidates := map[string]map[string]any{}
	for i := 0; i <= scrollLimit; i++ {
		articles := page.Locator("article")
		count, _ := articles.Count()
		for idx := 0; idx < count; idx++ {
			if len(candidates) >= maxCandidates {
				break
			}
			article := articles.Nth(idx)
			href, err := article.Locator("a[href*='/status/']").First().GetAttribute("href")
			if err != nil || href == "" {
				continue
			}
			m := tweetIDFromHref.FindStringSubmatch(href)
			if m == nil {
				continue
			}
			tweetID := m[1]
			if _, seen := candidates[tweetID]; seen {
				continue
			}

			isVerified := false
			if vc, err := article.Locator("[data-testid='icon-verified']").Count(); err == nil && vc > 0 {
				isVerified = true
			}
			if verifiedOnlyDOM && !isVerified {
				continue
			}

			candidates[tweetID] = map[string]any{
				"tweet_id":    tweetID,
				"url":         normalizeXURL(href),
				"is_verified": isVerified,
			}
		}

		if len(candidates) >= maxCandidates {
			break
		}
		page.Mouse().Wheel(0, float64(900+rand.Intn(500)))
		page.WaitForTimeout(float64(450 + rand.Intn(450)))
	}

	if len(candidates) == 0 {
		return workerclient.ExecuteActionResult{
			Status:     workerclient.StatusSkipped,
			Message:    "no candidates found",
			CurrentURL: page.URL(),
			Metadata:   map[string]any{"candidates": []any{}, "collected": 0},
		}
	}

	list := make([]any, 0, len(candidates))
	for _, c := range candidates {
		list = append(list, c)
	}
	return workerclient.ExecuteActionResult{
		Status:     workerclient.StatusSucceeded,
		CurrentURL: page.URL(),
		Metadata:   map[string]any{"candidates": list, "collected": len(list)},
	}
}

func normalizeXURL(href string) string {
	raw := strings.TrimSpace(href)
	cut := func(s string) string {
		if i := strings.Index(s, "?"); i >= 0 {
			return s[:i]
		}
		return s
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return cut(raw)
	}
	if strings.HasPrefix(raw, "/") {
		return cut("https://x.com" + raw)
	}
	return cut("https://x.com/" + raw)
}

func intParam(params map[string]any, key string, def, min, max int) int {
	raw, ok := params[key]
	if !ok {
		return clamp(def, min, max)
	}
	var parsed int
	switch v := raw.(type) {
	case float64:
		parsed = int(v)
	case int:
		parsed = v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return clamp(def, min, max)
		}
		parsed = n
	default:
		return clamp(def, min, max)
	}
	return clamp(parsed, min, max)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
