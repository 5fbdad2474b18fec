// Package localclient adapts the in-process session manager and action
// executor to the workerclient.Client interface, for
// BROWSER_CLUSTER_MODE=local deployments that run the control plane and
// browser node in one binary without an HTTP hop.
package localclient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/internal/browsernode/action"
	"github.com/xxrenzhe/syncsocial/internal/browsernode/session"
	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
)

// Client implements workerclient.Client directly over a session.Manager and
// action.Executor living in the same process.
type Client struct {
	Sessions *session.Manager
	Actions  *action.Executor
}

// New returns a local Client.
func New(sessions *session.Manager, actions *action.Executor) *Client {
	return &Client{Sessions: sessions, Actions: actions}
}

func (c *Client) StartLoginSession(ctx context.Context, req workerclient.StartLoginSessionRequest) (*workerclient.StartLoginSessionResponse, error) {
	id, err := uuid.Parse(req.LoginSessionID)
	if err != nil {
		return nil, err
	}
	remoteURL, err := c.Sessions.Start(id, req.PlatformKey, req.FingerprintProfile)
	if err != nil {
		return nil, err
	}
	return &workerclient.StartLoginSessionResponse{RemoteURL: remoteURL}, nil
}

func (c *Client) IsLoggedIn(ctx context.Context, loginSessionID string) (bool, error) {
	id, err := uuid.Parse(loginSessionID)
	if err != nil {
		return false, err
	}
	loggedIn, err := c.Sessions.IsLoggedIn(id)
	if errors.Is(err, session.ErrNotFound) {
		return false, workerclient.ErrSessionNotFound
	}
	return loggedIn, err
}

func (c *Client) ExportStorageState(ctx context.Context, loginSessionID string) (map[string]any, error) {
	id, err := uuid.Parse(loginSessionID)
	if err != nil {
		return nil, err
	}
	state, err := c.Sessions.ExportStorageState(id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, workerclient.ErrSessionNotFound
	}
	return state, err
}

func (c *Client) StopLoginSession(ctx context.Context, loginSessionID string) error {
	id, err := uuid.Parse(loginSessionID)
	if err != nil {
		return err
	}
	c.Sessions.Stop(id)
	return nil
}

func (c *Client) ExecuteBatch(ctx context.Context, req workerclient.ExecuteBatchRequest) ([]workerclient.ExecuteActionResult, error) {
	return c.Actions.ExecuteBatch(req.PlatformKey, req.StorageState, req.BandwidthMode, req.Actions, req.FingerprintProfile), nil
}

var _ workerclient.Client = (*Client)(nil)
