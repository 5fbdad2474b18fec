// Package credential stores and retrieves encrypted per-account storage
// state, the opaque cookie+origin blob captured after interactive login.
package credential

import (
	"time"

	"github.com/google/uuid"
)

// TypeStorageState is the only credential_type currently produced.
const TypeStorageState = "storage_state"

// Credential is one encrypted secret scoped to a social account and type.
type Credential struct {
	ID              uuid.UUID
	SocialAccountID uuid.UUID
	CredentialType  string
	EncryptedBlob   string
	KeyVersion      int
	ValidatedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
