// Package sealer provides driven.Sealer implementations: AES-256-GCM with a
// local or passphrase-derived key, and AWS KMS.
package sealer

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

const (
	// AlgorithmAESGCM names blobs sealed by AESGCM.
	AlgorithmAESGCM = "aes-256-gcm"

	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// Compile-time interface satisfaction check.
var _ driven.Sealer = (*AESGCM)(nil)

// AESGCM seals values with AES-256-GCM. The envelope header is bound to the
// ciphertext as additional authenticated data.
type AESGCM struct {
	aead  cipher.AEAD
	keyID string
}

// NewAESGCM creates an AESGCM sealer. key must be exactly 32 bytes.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes for AES-256, got %d bytes", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return &AESGCM{aead: aead, keyID: Fingerprint(key)}, nil
}

// Fingerprint returns a short, non-reversible identifier for key.
func Fingerprint(key []byte) string {
	sum := sha256.Sum256(key)
	return fmt.Sprintf("sha256:%x", sum[:8])
}

// KeyFromBase64 decodes a base64 (standard encoding) 32-byte key.
func KeyFromBase64(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must decode to %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// KeyFromFile reads a raw 32-byte key from path.
func KeyFromFile(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encryption key file: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key file must hold %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// DeriveKey derives a 32-byte key from a passphrase and salt using scrypt.
// Both inputs are NFKC-normalized so visually identical passphrases typed
// on different platforms derive the same key.
func DeriveKey(passphrase, salt string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is empty")
	}
	key, err := scrypt.Key(
		[]byte(norm.NFKC.String(passphrase)),
		[]byte(norm.NFKC.String(salt)),
		scryptN, scryptR, scryptP, KeySize,
	)
	if err != nil {
		return nil, fmt.Errorf("scrypt key derivation: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext. The result is header || nonce || ciphertext || tag.
func (s *AESGCM) Seal(_ context.Context, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("rand nonce: %w", err)
	}

	h := header(AlgorithmAESGCM, s.keyID)
	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	payload := s.aead.Seal(nonce, nonce, plaintext, h)
	return wrap(AlgorithmAESGCM, s.keyID, payload), nil
}

// Open authenticates and decrypts a blob produced by Seal. Any integrity
// failure is reported as driven.ErrCorrupt.
func (s *AESGCM) Open(_ context.Context, sealed []byte) ([]byte, error) {
	alg, keyID, payload, err := unwrap(sealed)
	if err != nil {
		return nil, err
	}
	if alg != AlgorithmAESGCM || keyID != s.keyID {
		return nil, fmt.Errorf("sealed with %s key %s, have %s key %s: %w",
			alg, keyID, AlgorithmAESGCM, s.keyID, driven.ErrCorrupt)
	}

	nonceSize := s.aead.NonceSize()
	if len(payload) < nonceSize+s.aead.Overhead() {
		return nil, fmt.Errorf("ciphertext too short: %w", driven.ErrCorrupt)
	}

	nonce, ciphertext := payload[:nonceSize], payload[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, header(alg, keyID))
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", driven.ErrCorrupt)
	}
	return plaintext, nil
}

func (s *AESGCM) Algorithm() string { return AlgorithmAESGCM }

func (s *AESGCM) KeyID() string { return s.keyID }
