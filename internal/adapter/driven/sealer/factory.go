package sealer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// Options selects and configures a sealer. Fields map one-to-one to the
// BITBROWSE_* encryption settings.
type Options struct {
	KMSKeyID       string
	KMSRegion      string
	SecretKey      string // base64
	SecretKeyFile  string
	Passphrase     string
	PassphraseSalt string
}

// New builds the configured sealer. Priority: KMS, then a local key (inline
// or file), then a passphrase-derived key. It returns a nil Sealer and no
// error when nothing is configured; stores treat a nil Sealer as
// driven.ErrEncryptionKeyNotSet and never write plaintext.
func New(ctx context.Context, opts Options) (driven.Sealer, error) {
	switch {
	case opts.KMSKeyID != "":
		s, err := NewKMS(ctx, opts.KMSKeyID, opts.KMSRegion)
		if err != nil {
			return nil, fmt.Errorf("create KMS sealer: %w", err)
		}
		slog.Info("secret encryption configured", "algorithm", AlgorithmKMS, "key_id", s.KeyID(), "region", opts.KMSRegion)
		return s, nil

	case opts.SecretKey != "" || opts.SecretKeyFile != "":
		var key []byte
		var err error
		if opts.SecretKey != "" {
			key, err = KeyFromBase64(opts.SecretKey)
		} else {
			key, err = KeyFromFile(opts.SecretKeyFile)
		}
		if err != nil {
			return nil, err
		}
		return newLocal(key, "local key")

	case opts.Passphrase != "":
		key, err := DeriveKey(opts.Passphrase, opts.PassphraseSalt)
		if err != nil {
			return nil, err
		}
		return newLocal(key, "passphrase")
	}

	slog.Warn("no secret encryption configured; credential storage disabled")
	return nil, nil
}

func newLocal(key []byte, source string) (driven.Sealer, error) {
	s, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}
	slog.Info("secret encryption configured", "algorithm", AlgorithmAESGCM, "key_id", s.KeyID(), "source", source)
	return s, nil
}
