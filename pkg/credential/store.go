package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xxrenzhe/syncsocial/internal/db"
)

// Store handles database operations for credentials.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store with the given connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// GetBySocialAccount returns the credential of the given type for a social
// account, or (nil, nil) if none exists yet.
func (s *Store) GetBySocialAccount(ctx context.Context, socialAccountID uuid.UUID, credentialType string) (*Credential, error) {
	row := s.dbtx.QueryRow(ctx,
		`SELECT id, social_account_id, credential_type, encrypted_blob, key_version, validated_at, created_at, updated_at
		 FROM credentials WHERE social_account_id = $1 AND credential_type = $2`,
		socialAccountID, credentialType,
	)

	var c Credential
	err := row.Scan(&c.ID, &c.SocialAccountID, &c.CredentialType, &c.EncryptedBlob,
		&c.KeyVersion, &c.ValidatedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential: %w", err)
	}
	return &c, nil
}

// Upsert inserts or replaces the credential for (social_account_id,
// credential_type), stamping validated_at to now.
func (s *Store) Upsert(ctx context.Context, socialAccountID uuid.UUID, credentialType, encryptedBlob string, keyVersion int, validatedAt time.Time) error {
	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO credentials (social_account_id, credential_type, encrypted_blob, key_version, validated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (social_account_id, credential_type)
		 DO UPDATE SET encrypted_blob = EXCLUDED.encrypted_blob,
		               key_version = EXCLUDED.key_version,
		               validated_at = EXCLUDED.validated_at,
		               updated_at = now()`,
		socialAccountID, credentialType, encryptedBlob, keyVersion, validatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}
	return nil
}
