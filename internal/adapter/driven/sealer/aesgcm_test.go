package sealer

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestAESGCM_SealOpenRoundTrip(t *testing.T) {
	s, err := NewAESGCM(testKey(t))
	require.NoError(t, err)
	ctx := context.Background()

	sealed, err := s.Seal(ctx, []byte(`{"identifier":"alice","secret":"hunter2"}`))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "hunter2")
	assert.True(t, bytes.HasPrefix(sealed, []byte("aes-256-gcm:sha256:")))

	plaintext, err := s.Open(ctx, sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"identifier":"alice","secret":"hunter2"}`, string(plaintext))
}

func TestAESGCM_SealUsesFreshNonce(t *testing.T) {
	s, err := NewAESGCM(testKey(t))
	require.NoError(t, err)

	a, err := s.Seal(context.Background(), []byte("same"))
	require.NoError(t, err)
	b, err := s.Seal(context.Background(), []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestAESGCM_OpenRejectsTampering(t *testing.T) {
	s, err := NewAESGCM(testKey(t))
	require.NoError(t, err)
	ctx := context.Background()

	sealed, err := s.Seal(ctx, []byte("payload"))
	require.NoError(t, err)

	tests := []struct {
		name string
		blob []byte
	}{
		{name: "flipped last byte", blob: func() []byte {
			b := bytes.Clone(sealed)
			b[len(b)-1] ^= 0xff
			return b
		}()},
		{name: "truncated", blob: sealed[:len(sealed)-20]},
		{name: "no header", blob: []byte("garbage")},
		{name: "empty", blob: nil},
		{name: "header edited", blob: bytes.Replace(bytes.Clone(sealed), []byte("aes-256-gcm"), []byte("aes-256-xyz"), 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Open(ctx, tt.blob)
			require.Error(t, err)
			assert.ErrorIs(t, err, driven.ErrCorrupt)
		})
	}
}

func TestAESGCM_OpenRejectsOtherKey(t *testing.T) {
	ctx := context.Background()
	a, err := NewAESGCM(testKey(t))
	require.NoError(t, err)
	b, err := NewAESGCM(testKey(t))
	require.NoError(t, err)

	sealed, err := a.Seal(ctx, []byte("payload"))
	require.NoError(t, err)

	_, err = b.Open(ctx, sealed)
	assert.ErrorIs(t, err, driven.ErrCorrupt)
}

func TestNewAESGCM_RejectsWrongKeySize(t *testing.T) {
	_, err := NewAESGCM([]byte("too short"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be 32 bytes")
}

func TestKeyFromBase64(t *testing.T) {
	key := testKey(t)

	got, err := KeyFromBase64(base64.StdEncoding.EncodeToString(key) + "\n")
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = KeyFromBase64(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)

	_, err = KeyFromBase64("not base64!")
	assert.Error(t, err)
}

func TestKeyFromFile(t *testing.T) {
	key := testKey(t)
	path := filepath.Join(t.TempDir(), "secret.key")
	require.NoError(t, os.WriteFile(path, key, 0o600))

	got, err := KeyFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = KeyFromFile(filepath.Join(t.TempDir(), "missing.key"))
	assert.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey("correct horse", "bitbrowse")
	require.NoError(t, err)
	assert.Len(t, a, KeySize)

	again, err := DeriveKey("correct horse", "bitbrowse")
	require.NoError(t, err)
	assert.Equal(t, a, again)

	otherSalt, err := DeriveKey("correct horse", "elsewhere")
	require.NoError(t, err)
	assert.NotEqual(t, a, otherSalt)

	// U+FB01 (ﬁ ligature) normalizes to "fi" under NFKC.
	ligature, err := DeriveKey("ﬁle", "bitbrowse")
	require.NoError(t, err)
	plain, err := DeriveKey("file", "bitbrowse")
	require.NoError(t, err)
	assert.Equal(t, plain, ligature)

	_, err = DeriveKey("", "bitbrowse")
	assert.Error(t, err)
}
