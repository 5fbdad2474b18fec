package loginsession

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
)

// fakeWorker implements workerclient.Client with canned responses, so
// AutoCapture's worker-facing decisions can be tested without a browser
// node or a database.
type fakeWorker struct {
	loggedIn    bool
	isLoggedErr error
}

func (f *fakeWorker) StartLoginSession(ctx context.Context, req workerclient.StartLoginSessionRequest) (*workerclient.StartLoginSessionResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeWorker) IsLoggedIn(ctx context.Context, loginSessionID string) (bool, error) {
	return f.loggedIn, f.isLoggedErr
}

func (f *fakeWorker) ExportStorageState(ctx context.Context, loginSessionID string) (map[string]any, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeWorker) StopLoginSession(ctx context.Context, loginSessionID string) error {
	return nil
}

func (f *fakeWorker) ExecuteBatch(ctx context.Context, req workerclient.ExecuteBatchRequest) ([]workerclient.ExecuteActionResult, error) {
	return nil, errors.New("not implemented")
}

var _ workerclient.Client = (*fakeWorker)(nil)

func TestFinalizeInteractive_NotLoggedIn(t *testing.T) {
	a := &AutoCapture{Worker: &fakeWorker{loggedIn: false}}
	session := &LoginSession{ID: uuid.New(), Status: StatusActive}

	err := a.FinalizeInteractive(context.Background(), session)
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("got %v, want ErrNotLoggedIn", err)
	}
}

func TestFinalizeInteractive_ProbeError(t *testing.T) {
	probeErr := errors.New("transport down")
	a := &AutoCapture{Worker: &fakeWorker{isLoggedErr: probeErr}}
	session := &LoginSession{ID: uuid.New(), Status: StatusActive}

	err := a.FinalizeInteractive(context.Background(), session)
	if err == nil || !errors.Is(err, probeErr) {
		t.Fatalf("got %v, want a wrapped %v", err, probeErr)
	}
}

func TestStart_NoOpWhenDisabled(t *testing.T) {
	a := &AutoCapture{Enabled: false, VaultKey: "k", Worker: &fakeWorker{}}
	// Start should return immediately without touching Sessions (nil here,
	// which would panic if run() were reached).
	a.Start(uuid.New())
}

func TestStart_NoOpWhenVaultKeyUnset(t *testing.T) {
	a := &AutoCapture{Enabled: true, VaultKey: "", Worker: &fakeWorker{}}
	a.Start(uuid.New())
}
