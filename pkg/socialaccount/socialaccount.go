// Package socialaccount models an identity on an external platform and its
// health-status lifecycle.
package socialaccount

import (
	"time"

	"github.com/google/uuid"
)

// Status values for SocialAccount.Status.
const (
	StatusNeedsLogin = "needs_login"
	StatusHealthy    = "healthy"
)

// SocialAccount is an identity on an external platform (currently only "x").
type SocialAccount struct {
	ID                 uuid.UUID
	WorkspaceID        uuid.UUID
	PlatformKey        string
	Handle             string
	Status             string
	Labels             map[string]any
	FingerprintProfile map[string]any
	LastHealthCheckAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsHealthy reports whether the account currently holds a valid session.
func (a *SocialAccount) IsHealthy() bool {
	return a.Status == StatusHealthy
}
