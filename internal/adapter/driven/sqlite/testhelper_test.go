package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/sealer"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() ensures isolation between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it cannot be read as DSN query parameters.
	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", safeName)

	writer, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "open test db writer")
	writer.SetMaxOpenConns(1)
	require.NoError(t, writer.PingContext(t.Context()), "ping test db writer")

	reader, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "open test db reader")
	reader.SetMaxOpenConns(4)
	require.NoError(t, reader.PingContext(t.Context()), "ping test db reader")

	db := &DB{Writer: writer, Reader: reader, path: dsn}
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db.Writer), "run migrations")

	return db
}

// newTestSealer returns an AES-GCM sealer with a fixed key.
func newTestSealer(t *testing.T) *sealer.AESGCM {
	t.Helper()

	key := make([]byte, sealer.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	s, err := sealer.NewAESGCM(key)
	require.NoError(t, err)
	return s
}
