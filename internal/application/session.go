package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// Session is the authenticated state of one configured client: the
// credential repository, the Git host reached through the authenticating
// transport, and the account last verified against that host.
type Session struct {
	credentials *CredentialRepository
	host        driven.GitHost
	closer      io.Closer

	mu   sync.RWMutex
	user *model.User
}

// NewSession creates a Session. closer releases the secret store and may be nil.
func NewSession(credentials *CredentialRepository, host driven.GitHost, closer io.Closer) *Session {
	return &Session{
		credentials: credentials,
		host:        host,
		closer:      closer,
	}
}

// Login stores cred and verifies it by fetching the current user. If the host
// or token issuer rejects the credential, the stored credential is cleared
// again and the rejection is returned.
func (s *Session) Login(ctx context.Context, cred model.Credential) (model.User, error) {
	if err := s.credentials.StoreCredentials(ctx, cred); err != nil {
		return model.User{}, err
	}

	user, err := s.host.CurrentUser(ctx)
	if err != nil {
		if rejected(err) {
			if clearErr := s.credentials.ClearStorage(ctx); clearErr != nil {
				slog.Error("clear rejected credentials failed", "error", clearErr)
			}
			s.setUser(nil)
		}
		return model.User{}, fmt.Errorf("verify credentials: %w", err)
	}

	s.setUser(&user)
	slog.Info("logged in", "username", user.Username)
	return user, nil
}

// Logout forgets the stored credential and token.
func (s *Session) Logout(ctx context.Context) error {
	s.setUser(nil)
	return s.credentials.ClearStorage(ctx)
}

// CurrentUser returns the verified account, fetching it from the host when
// this session has not verified one yet.
func (s *Session) CurrentUser(ctx context.Context) (model.User, error) {
	s.mu.RLock()
	cached := s.user
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	user, err := s.host.CurrentUser(ctx)
	if err != nil {
		return model.User{}, err
	}
	s.setUser(&user)
	return user, nil
}

// LoggedIn reports whether a credential is stored. It does not contact the host.
func (s *Session) LoggedIn(ctx context.Context) bool {
	return s.credentials.HasCredentials(ctx)
}

// Credentials exposes the repository for token diagnostics.
func (s *Session) Credentials() *CredentialRepository {
	return s.credentials
}

// Close releases the secret store.
func (s *Session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Session) setUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// rejected reports whether err means the credential itself is bad, as
// opposed to a network, server or storage failure. An unreachable token
// endpoint is a RefreshFailed AuthError too, so only a refused grant counts.
func rejected(err error) bool {
	return errors.Is(err, model.ErrNoCredential) ||
		errors.Is(err, driven.ErrUnauthorized) ||
		errors.Is(err, driven.ErrGrantRejected)
}
