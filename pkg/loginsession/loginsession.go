// Package loginsession models the interactive login flow by which a
// SocialAccount acquires a fresh storage-state credential, and the
// background capture loop that watches a worker runtime for completion.
package loginsession

import (
	"time"

	"github.com/google/uuid"
)

// Status values for LoginSession.Status. Terminal: succeeded, failed,
// expired, canceled.
const (
	StatusCreated   = "created"
	StatusActive    = "active"
	StatusCapturing = "capturing"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
	StatusCanceled  = "canceled"
)

// LoginSession is one interactive login attempt for a social account.
type LoginSession struct {
	ID              uuid.UUID
	WorkspaceID     uuid.UUID
	SocialAccountID uuid.UUID
	PlatformKey     string
	Status          string
	RemoteURL       *string
	ExpiresAt       time.Time
	CreatedBy       *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsTerminal reports whether the session has reached a status that the
// auto-capture loop and any reader should stop advancing.
func (s *LoginSession) IsTerminal() bool {
	switch s.Status {
	case StatusSucceeded, StatusFailed, StatusExpired, StatusCanceled:
		return true
	default:
		return false
	}
}
