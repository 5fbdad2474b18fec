package workerclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient calls a remote browser-node worker over the internal API
// described in spec.md section 6. Every call carries the x-internal-token
// header and is bounded by a fixed per-call timeout; transport failures are
// the caller's responsibility to map to BROWSER_NODE_ERROR.
type HTTPClient struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
}

// NewHTTPClient builds an HTTPClient with the given call timeout.
func NewHTTPClient(baseURL, internalToken string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:       baseURL,
		internalToken: internalToken,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-internal-token", c.internalToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling browser node: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("browser node returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshaling response body: %w", err)
	}
	return nil
}

// StartLoginSession implements Client.
func (c *HTTPClient) StartLoginSession(ctx context.Context, req StartLoginSessionRequest) (*StartLoginSessionResponse, error) {
	var resp StartLoginSessionResponse
	if err := c.do(ctx, http.MethodPost, "/login-sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsLoggedIn implements Client.
func (c *HTTPClient) IsLoggedIn(ctx context.Context, loginSessionID string) (bool, error) {
	var resp IsLoggedInResponse
	path := fmt.Sprintf("/login-sessions/%s/is-logged-in", loginSessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.LoggedIn, nil
}

// ExportStorageState implements Client.
func (c *HTTPClient) ExportStorageState(ctx context.Context, loginSessionID string) (map[string]any, error) {
	var resp map[string]any
	path := fmt.Sprintf("/login-sessions/%s/storage-state", loginSessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// StopLoginSession implements Client.
func (c *HTTPClient) StopLoginSession(ctx context.Context, loginSessionID string) error {
	var resp StopResponse
	path := fmt.Sprintf("/login-sessions/%s/stop", loginSessionID)
	return c.do(ctx, http.MethodPost, path, nil, &resp)
}

// ExecuteBatch implements Client.
func (c *HTTPClient) ExecuteBatch(ctx context.Context, req ExecuteBatchRequest) ([]ExecuteActionResult, error) {
	var resp ExecuteBatchResponse
	if err := c.do(ctx, http.MethodPost, "/automation/actions/execute-batch", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// HashInternalToken returns the hex-encoded SHA-256 digest of token, the
// form the browser node's InternalToken middleware compares against.
func HashInternalToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
