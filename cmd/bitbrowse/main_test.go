package main

import (
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/oauth"
	"github.com/ericfisherdev/bitbrowse/internal/config"
	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

func testKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestBootstrap_StoresCredentialsEncrypted(t *testing.T) {
	for _, driver := range []string{config.StoreSQLite, config.StoreBolt} {
		t.Run(driver, func(t *testing.T) {
			t.Setenv("BITBROWSE_STORE_DRIVER", driver)
			t.Setenv("BITBROWSE_DB_PATH", filepath.Join(t.TempDir(), "secrets"))
			t.Setenv("BITBROWSE_SECRET_KEY", testKey())
			t.Setenv("BITBROWSE_AUTH_MODE", "basic")

			app, err := bootstrap(t.Context())
			require.NoError(t, err)
			t.Cleanup(func() { _ = app.Session.Close() })

			assert.Equal(t, model.AuthModeBasic, app.Mode)
			assert.Equal(t, config.HostBitbucket, app.Host)

			creds := app.Session.Credentials()
			require.NoError(t, creds.StoreCredentials(t.Context(), model.Credential{Identifier: "alice", Secret: "pw"}))
			assert.True(t, app.Session.LoggedIn(t.Context()))
		})
	}
}

func TestBootstrap_NoKeyDisablesStorage(t *testing.T) {
	t.Setenv("BITBROWSE_DB_PATH", filepath.Join(t.TempDir(), "secrets.db"))
	t.Setenv("BITBROWSE_STORE_DRIVER", "sqlite")
	t.Setenv("BITBROWSE_SECRET_KEY", "")
	t.Setenv("BITBROWSE_SECRET_KEY_FILE", "")
	t.Setenv("BITBROWSE_PASSPHRASE", "")
	t.Setenv("BITBROWSE_KMS_KEY_ID", "")

	app, err := bootstrap(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Session.Close() })

	err = app.Session.Credentials().StoreCredentials(t.Context(), model.Credential{Identifier: "a", Secret: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, driven.ErrEncryptionKeyNotSet))
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	t.Setenv("BITBROWSE_AUTH_MODE", "token")
	t.Setenv("BITBROWSE_CLIENT_ID", "")
	t.Setenv("BITBROWSE_CLIENT_SECRET", "")

	_, err := bootstrap(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BITBROWSE_CLIENT_ID")
}

func TestTokenURL(t *testing.T) {
	assert.Equal(t, oauth.DefaultTokenURL, tokenURL(&config.Config{Host: config.HostBitbucket}))
	assert.Equal(t, githubTokenURL, tokenURL(&config.Config{Host: config.HostGitHub}))
	assert.Equal(t, "https://sso.example/token", tokenURL(&config.Config{Host: config.HostGitHub, TokenURL: "https://sso.example/token"}))
}
