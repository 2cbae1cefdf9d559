package driven

import "context"

// Sealer encrypts and authenticates values for a SecretStore. Implementations
// bind the sealed blob to their algorithm and key so that a blob sealed by a
// different sealer fails Open with ErrCorrupt instead of decrypting garbage.
type Sealer interface {
	Seal(ctx context.Context, plaintext []byte) ([]byte, error)
	Open(ctx context.Context, sealed []byte) ([]byte, error)

	// Algorithm names the cipher, e.g. "aes-256-gcm" or "aws-kms".
	Algorithm() string
	// KeyID identifies the key without revealing it.
	KeyID() string
}
