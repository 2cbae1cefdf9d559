// Package boltstore implements the SecretStore port on a single bbolt file.
package boltstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

const (
	dirPerm     = fs.FileMode(0o700)
	filePerm    = fs.FileMode(0o600)
	openTimeout = 5 * time.Second
)

var secretsBucket = []byte("secrets")

// Compile-time interface satisfaction check.
var _ driven.SecretStore = (*SecretStore)(nil)

// SecretStore keeps sealed values in the "secrets" bucket. Each operation is
// a single bbolt transaction. Sealing and opening happen outside the
// transaction so a slow sealer (KMS) never holds the database lock.
type SecretStore struct {
	db     *bolt.DB
	sealer driven.Sealer
}

// Open opens or creates the bbolt database at path. A nil sealer disables
// value reads and writes (driven.ErrEncryptionKeyNotSet).
func Open(path string, sealer driven.Sealer) (*SecretStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("create secret store directory: %w", err)
	}

	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open secret store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(secretsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize secret store: %w", err)
	}

	return &SecretStore{db: db, sealer: sealer}, nil
}

// Close releases the database file lock.
func (s *SecretStore) Close() error {
	return s.db.Close()
}

func (s *SecretStore) Store(ctx context.Context, key string, plaintext []byte) error {
	if s.sealer == nil {
		return &driven.StorageError{Op: "store", Key: key, Err: driven.ErrEncryptionKeyNotSet}
	}

	sealed, err := s.sealer.Seal(ctx, plaintext)
	if err != nil {
		return &driven.StorageError{Op: "seal", Key: key, Err: err}
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Put([]byte(key), sealed)
	})
	if err != nil {
		return &driven.StorageError{Op: "store", Key: key, Err: err}
	}
	return nil
}

func (s *SecretStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if s.sealer == nil {
		return nil, false, &driven.StorageError{Op: "load", Key: key, Err: driven.ErrEncryptionKeyNotSet}
	}

	var sealed []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// Values returned by Get are only valid for the life of the transaction.
		if v := tx.Bucket(secretsBucket).Get([]byte(key)); v != nil {
			sealed = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, &driven.StorageError{Op: "load", Key: key, Err: err}
	}
	if sealed == nil {
		return nil, false, nil
	}

	plaintext, err := s.sealer.Open(ctx, sealed)
	if err != nil {
		return nil, false, &driven.StorageError{Op: "open", Key: key, Err: err}
	}
	return plaintext, true, nil
}

func (s *SecretStore) Clear(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Delete([]byte(key))
	})
	if err != nil {
		return &driven.StorageError{Op: "clear", Key: key, Err: err}
	}
	return nil
}

func (s *SecretStore) ClearAll(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(secretsBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(secretsBucket)
		return err
	})
	if err != nil {
		return &driven.StorageError{Op: "clear all", Err: err}
	}
	return nil
}
