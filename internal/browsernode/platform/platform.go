// Package platform holds the per-platform_key adapter contract the
// browser-node worker dispatches on: where to start a login, which origin
// owns the session cookie, and how to recognize a logged-in session from
// its cookie jar.
package platform

import (
	"fmt"
	"strings"
)

// ErrUnsupported is returned by every lookup below for an unknown
// platform_key.
type ErrUnsupported struct {
	PlatformKey string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.PlatformKey)
}

// Cookie is the subset of a browser cookie the login predicate needs.
type Cookie struct {
	Name string
}

// LoginURL returns the URL a fresh login-session runtime should navigate
// to, or an ErrUnsupported error.
func LoginURL(platformKey string) (string, error) {
	switch normalize(platformKey) {
	case "x":
		return "https://x.com/i/flow/login", nil
	default:
		return "", &ErrUnsupported{PlatformKey: platformKey}
	}
}

// CookieOrigin returns the origin whose cookie jar determines login state.
func CookieOrigin(platformKey string) (string, error) {
	switch normalize(platformKey) {
	case "x":
		return "https://x.com", nil
	default:
		return "", &ErrUnsupported{PlatformKey: platformKey}
	}
}

// IsLoggedIn inspects the session cookie jar for the platform's
// authentication cookie.
func IsLoggedIn(platformKey string, cookies []Cookie) (bool, error) {
	switch normalize(platformKey) {
	case "x":
		for _, c := range cookies {
			if c.Name == "auth_token" {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, &ErrUnsupported{PlatformKey: platformKey}
	}
}

func normalize(platformKey string) string {
	return strings.ToLower(strings.TrimSpace(platformKey))
}
