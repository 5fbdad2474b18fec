package platform

import (
	"errors"
	"testing"
)

func TestLoginURL_X(t *testing.T) {
	url, err := LoginURL("X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://x.com/i/flow/login" {
		t.Errorf("got %q", url)
	}
}

func TestLoginURL_Unsupported(t *testing.T) {
	_, err := LoginURL("instagram")
	if err == nil {
		t.Fatal("expected an error")
	}
	var unsupported *ErrUnsupported
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *ErrUnsupported, got %T", err)
	}
	if unsupported.PlatformKey != "instagram" {
		t.Errorf("got platform key %q", unsupported.PlatformKey)
	}
}

func TestCookieOrigin_X(t *testing.T) {
	origin, err := CookieOrigin("x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if origin != "https://x.com" {
		t.Errorf("got %q", origin)
	}
}

func TestIsLoggedIn_X(t *testing.T) {
	tests := []struct {
		name    string
		cookies []Cookie
		want    bool
	}{
		{"has auth_token", []Cookie{{Name: "guest_id"}, {Name: "auth_token"}}, true},
		{"no auth_token", []Cookie{{Name: "guest_id"}}, false},
		{"no cookies", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsLoggedIn("x", tt.cookies)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsLoggedIn_Unsupported(t *testing.T) {
	_, err := IsLoggedIn("bluesky", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
}
