package driven

import (
	"context"
	"errors"
	"fmt"
)

// Keys under which the credential repository persists its state.
const (
	KeyCredential = "credential"
	KeyToken      = "token"
)

var (
	// ErrStorage matches every StorageError.
	ErrStorage = errors.New("secret storage failure")

	// ErrCorrupt reports a stored value that failed integrity checks on decrypt:
	// tampered or truncated ciphertext, or a value sealed under a different key.
	ErrCorrupt = errors.New("stored secret is corrupt or was sealed with a different key")

	// ErrEncryptionKeyNotSet is returned when no sealer is configured.
	ErrEncryptionKeyNotSet = errors.New(
		"encryption key not configured: set BITBROWSE_SECRET_KEY, BITBROWSE_SECRET_KEY_FILE, BITBROWSE_PASSPHRASE or BITBROWSE_KMS_KEY_ID")
)

// StorageError is returned by SecretStore operations that fail.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("secret store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("secret store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// SecretStore defines the driven port for encrypted-at-rest key/value
// persistence. Values are encrypted before write and decrypted after read by
// the adapter; this interface operates on plaintext at the domain boundary.
// Each key's Store and Load is atomic.
type SecretStore interface {
	// Store encrypts and persists plaintext under key, replacing any prior value.
	Store(ctx context.Context, key string, plaintext []byte) error

	// Load returns the decrypted value for key. ok is false when nothing is
	// stored under key. A value that fails decryption yields a StorageError
	// wrapping ErrCorrupt.
	Load(ctx context.Context, key string) (plaintext []byte, ok bool, err error)

	// Clear removes key. Clearing an absent key is not an error.
	Clear(ctx context.Context, key string) error

	// ClearAll removes every stored key.
	ClearAll(ctx context.Context) error
}
