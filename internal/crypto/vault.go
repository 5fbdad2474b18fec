// Package crypto implements the credential vault: AES-256-GCM envelope
// encryption for storage-state blobs at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// Vault encrypts and decrypts JSON-serializable credential payloads with a
// key derived from a configured secret. The key is never stored; only the
// hex-encoded ciphertext is persisted.
type Vault struct {
	key [32]byte
}

// NewVault derives a 256-bit key from secret via SHA-256, matching the
// encryptAES256GCM key-derivation scheme. An empty secret is not rejected:
// it yields a working key (the SHA-256 of the empty string), so callers
// gate on IsConfigured.
func NewVault(secret string) *Vault {
	return &Vault{key: sha256.Sum256([]byte(secret))}
}

// IsConfigured reports whether secret is non-empty. It inspects its
// argument, not v: a Vault does not record the secret it was built from.
func (v *Vault) IsConfigured(secret string) bool {
	return secret != ""
}

// EncryptJSON marshals payload to JSON and returns its hex-encoded
// AES-256-GCM ciphertext, with a freshly generated nonce prepended.
func (v *Vault) EncryptJSON(payload any) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling credential payload: %w", err)
	}

	block, err := aes.NewCipher(v.key[:])
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return hex.EncodeToString(ciphertext), nil
}

// DecryptJSON reverses EncryptJSON, unmarshaling the recovered plaintext
// into out.
func (v *Vault) DecryptJSON(encoded string, out any) error {
	ciphertext, err := hex.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(v.key[:])
	if err != nil {
		return fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("creating GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return fmt.Errorf("ciphertext shorter than nonce size")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return fmt.Errorf("decrypting credential payload: %w", err)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("unmarshaling credential payload: %w", err)
	}

	return nil
}
