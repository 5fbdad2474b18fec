package localclient

import (
	"context"
	"errors"
	"testing"

	"github.com/xxrenzhe/syncsocial/internal/browsernode/action"
	"github.com/xxrenzhe/syncsocial/internal/browsernode/session"
	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
)

func newTestClient() *Client {
	return New(session.NewManager(true, ""), &action.Executor{Headless: true})
}

func TestStartLoginSession_InvalidID(t *testing.T) {
	c := newTestClient()
	_, err := c.StartLoginSession(context.Background(), workerclient.StartLoginSessionRequest{
		LoginSessionID: "not-a-uuid",
		PlatformKey:    "x",
	})
	if err == nil {
		t.Fatal("expected an error for an invalid login session id")
	}
}

func TestIsLoggedIn_InvalidID(t *testing.T) {
	c := newTestClient()
	_, err := c.IsLoggedIn(context.Background(), "not-a-uuid")
	if err == nil {
		t.Fatal("expected an error for an invalid login session id")
	}
}

func TestIsLoggedIn_NotFoundMapsToSessionNotFound(t *testing.T) {
	c := newTestClient()
	_, err := c.IsLoggedIn(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, workerclient.ErrSessionNotFound) {
		t.Fatalf("got %v, want workerclient.ErrSessionNotFound", err)
	}
}

func TestExportStorageState_NotFoundMapsToSessionNotFound(t *testing.T) {
	c := newTestClient()
	_, err := c.ExportStorageState(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, workerclient.ErrSessionNotFound) {
		t.Fatalf("got %v, want workerclient.ErrSessionNotFound", err)
	}
}

func TestStopLoginSession_InvalidID(t *testing.T) {
	c := newTestClient()
	err := c.StopLoginSession(context.Background(), "not-a-uuid")
	if err == nil {
		t.Fatal("expected an error for an invalid login session id")
	}
}

func TestStopLoginSession_UnknownIDIsNoOp(t *testing.T) {
	c := newTestClient()
	if err := c.StopLoginSession(context.Background(), "00000000-0000-0000-0000-000000000000"); err != nil {
		t.Fatalf("unexpected error stopping an unregistered session: %v", err)
	}
}

func TestExecuteBatch_UnsupportedPlatform(t *testing.T) {
	c := newTestClient()
	results, err := c.ExecuteBatch(context.Background(), workerclient.ExecuteBatchRequest{
		PlatformKey: "instagram",
		Actions: []workerclient.ActionSpec{
			{ActionType: "x_like", TargetURL: "https://example.com"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ErrorCode != workerclient.ErrUnsupportedPlatform {
		t.Fatalf("got %+v, want a single unsupported-platform result", results)
	}
}
