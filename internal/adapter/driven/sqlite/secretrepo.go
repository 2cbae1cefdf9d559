package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretStore = (*SecretRepo)(nil)

// SecretRepo is the SQLite implementation of the SecretStore port.
// Values are sealed before write and opened after read; the table never
// holds plaintext.
type SecretRepo struct {
	db     *DB
	sealer driven.Sealer // nil when encryption is not configured.
}

// NewSecretRepo creates a SecretRepo. A nil sealer disables secret storage:
// every operation that reads or writes a value returns a StorageError
// wrapping driven.ErrEncryptionKeyNotSet.
func NewSecretRepo(db *DB, sealer driven.Sealer) *SecretRepo {
	return &SecretRepo{db: db, sealer: sealer}
}

// Store seals plaintext and replaces any value held under key.
func (r *SecretRepo) Store(ctx context.Context, key string, plaintext []byte) error {
	if r.sealer == nil {
		return &driven.StorageError{Op: "store", Key: key, Err: driven.ErrEncryptionKeyNotSet}
	}

	sealed, err := r.sealer.Seal(ctx, plaintext)
	if err != nil {
		return &driven.StorageError{Op: "seal", Key: key, Err: err}
	}

	const query = `INSERT OR REPLACE INTO secrets (key, value, algorithm, key_id, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`
	_, err = r.db.Writer.ExecContext(ctx, query, key, sealed, r.sealer.Algorithm(), r.sealer.KeyID())
	if err != nil {
		return &driven.StorageError{Op: "store", Key: key, Err: err}
	}
	return nil
}

// Load returns the opened value for key, or ok=false if none is stored.
func (r *SecretRepo) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if r.sealer == nil {
		return nil, false, &driven.StorageError{Op: "load", Key: key, Err: driven.ErrEncryptionKeyNotSet}
	}

	const query = `SELECT value FROM secrets WHERE key = ?`
	var sealed []byte
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &driven.StorageError{Op: "load", Key: key, Err: err}
	}

	plaintext, err := r.sealer.Open(ctx, sealed)
	if err != nil {
		return nil, false, &driven.StorageError{Op: "open", Key: key, Err: err}
	}
	return plaintext, true, nil
}

// Clear removes key. Removing an absent key succeeds.
func (r *SecretRepo) Clear(ctx context.Context, key string) error {
	const query = `DELETE FROM secrets WHERE key = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, key); err != nil {
		return &driven.StorageError{Op: "clear", Key: key, Err: err}
	}
	return nil
}

// ClearAll removes every stored secret.
func (r *SecretRepo) ClearAll(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM secrets`); err != nil {
		return &driven.StorageError{Op: "clear all", Err: err}
	}
	return nil
}
