package workerclient

import (
	"context"
	"fmt"
)

// Client is the control plane's view of the browser-node worker: starting
// and probing login-session runtimes, and executing action batches. Both
// the HTTP client (remote mode) and the in-process adapter (local mode)
// implement this interface so the run executor and login-session
// auto-capture loop do not care which transport is in play.
type Client interface {
	StartLoginSession(ctx context.Context, req StartLoginSessionRequest) (*StartLoginSessionResponse, error)
	IsLoggedIn(ctx context.Context, loginSessionID string) (bool, error)
	ExportStorageState(ctx context.Context, loginSessionID string) (map[string]any, error)
	StopLoginSession(ctx context.Context, loginSessionID string) error
	ExecuteBatch(ctx context.Context, req ExecuteBatchRequest) ([]ExecuteActionResult, error)
}

// ErrSessionNotFound is returned when the worker no longer knows a
// login-session id (runtime missing). The auto-capture loop treats this as
// "stop silently" rather than a retryable transport error.
var ErrSessionNotFound = fmt.Errorf("workerclient: login session runtime not found")

// BrowserNodeErrorResults synthesizes a failed result for every submitted
// action, used when a batch call fails at the transport level or returns a
// mismatched result count (spec: both map to BROWSER_NODE_ERROR).
func BrowserNodeErrorResults(n int, message string) []ExecuteActionResult {
	out := make([]ExecuteActionResult, n)
	for i := range out {
		out[i] = ExecuteActionResult{
			Status:    StatusFailed,
			ErrorCode: ErrBrowserNodeError,
			Message:   message,
		}
	}
	return out
}
