package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// DefaultTokenLeeway is how long before its expiry a token stops being served.
const DefaultTokenLeeway = 30 * time.Second

var (
	// ErrInvalidCredential is returned when storing a credential with an empty half.
	ErrInvalidCredential = errors.New("credential identifier and secret must both be set")

	// ErrNoIssuer is the refresh failure cause when no token issuer is configured.
	ErrNoIssuer = errors.New("no token issuer configured")

	errIncomplete = errors.New("decoded value is incomplete")
)

// CredentialRepository owns the stored credential and the bearer token
// derived from it. It is the only component that calls the TokenIssuer.
//
// Concurrent GetValidToken callers that find no usable token share a single
// in-flight refresh. Every refresh belongs to a clear generation; ClearStorage
// and StoreCredentials start a new generation, and a refresh that finishes
// under an older generation is discarded. At most one issuer call is
// outstanding at any time, across generations.
type CredentialRepository struct {
	store  driven.SecretStore
	issuer driven.TokenIssuer
	now    func() time.Time
	leeway time.Duration

	flights singleflight.Group

	// writeMu serializes changes to persisted state: storing credentials,
	// committing a refreshed token and clearing.
	writeMu sync.Mutex

	// issueMu is held around issuer calls. A flight for a newer generation
	// waits here until an older flight's call has returned.
	issueMu sync.Mutex

	// mu guards the cache below and is never held across I/O.
	mu          sync.Mutex
	generation  uint64
	credential  *model.Credential
	credLoaded  bool
	token       *model.Token
	tokenLoaded bool
	invalidated bool
}

// CredentialRepositoryOption configures a CredentialRepository.
type CredentialRepositoryOption func(*CredentialRepository)

// WithTokenLeeway treats tokens expiring within d as already expired.
func WithTokenLeeway(d time.Duration) CredentialRepositoryOption {
	return func(r *CredentialRepository) { r.leeway = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CredentialRepositoryOption {
	return func(r *CredentialRepository) { r.now = now }
}

// NewCredentialRepository creates a repository over store. issuer may be nil
// in basic mode, where no token is ever requested.
func NewCredentialRepository(
	store driven.SecretStore,
	issuer driven.TokenIssuer,
	opts ...CredentialRepositoryOption,
) *CredentialRepository {
	r := &CredentialRepository{
		store:  store,
		issuer: issuer,
		now:    time.Now,
		leeway: DefaultTokenLeeway,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StoreCredentials persists cred, replacing any stored credential. It does not
// contact the issuer. Any token obtained for the previous credential is
// dropped, and a refresh still running for it will be discarded.
func (r *CredentialRepository) StoreCredentials(ctx context.Context, cred model.Credential) error {
	if !cred.Valid() {
		return ErrInvalidCredential
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.store.Store(ctx, driven.KeyCredential, data); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	old := r.resetLocked(&cred)
	r.flights.Forget(flightKey(old))

	if err := r.store.Clear(ctx, driven.KeyToken); err != nil {
		return fmt.Errorf("drop previous token: %w", err)
	}

	slog.Info("credentials stored", "credential", cred)
	return nil
}

// LoadCredentials returns the stored credential, or nil if none is stored.
// When the stored value cannot be read, it returns nil together with the
// StorageError; callers treat that as "no credential".
func (r *CredentialRepository) LoadCredentials(ctx context.Context) (*model.Credential, error) {
	r.mu.Lock()
	if r.credLoaded {
		cred := copyCredential(r.credential)
		r.mu.Unlock()
		return cred, nil
	}
	gen := r.generation
	r.mu.Unlock()

	data, ok, err := r.store.Load(ctx, driven.KeyCredential)
	if err != nil {
		slog.Warn("stored credential unreadable; treating as absent", "key", driven.KeyCredential, "error", err)
		return nil, err
	}

	var cred *model.Credential
	if ok {
		var c model.Credential
		err := json.Unmarshal(data, &c)
		if err == nil && !c.Valid() {
			err = errIncomplete
		}
		if err != nil {
			storageErr := &driven.StorageError{Op: "decode", Key: driven.KeyCredential, Err: errors.Join(driven.ErrCorrupt, err)}
			slog.Warn("stored credential unreadable; treating as absent", "key", driven.KeyCredential, "error", storageErr)
			return nil, storageErr
		}
		cred = &c
	}

	r.mu.Lock()
	if r.generation == gen && !r.credLoaded {
		r.credential = cred
		r.credLoaded = true
	}
	r.mu.Unlock()

	return copyCredential(cred), nil
}

// HasCredentials reports whether a readable credential is stored.
func (r *CredentialRepository) HasCredentials(ctx context.Context) bool {
	cred, _ := r.LoadCredentials(ctx)
	return cred != nil
}

// GetValidToken returns a token that is neither expired (allowing for the
// leeway) nor invalidated. If none is cached it joins the in-flight refresh
// or starts one. Failures are *model.AuthError values.
//
// If ctx ends first, GetValidToken returns ctx.Err(); the refresh itself
// keeps running and its result is cached for later callers.
func (r *CredentialRepository) GetValidToken(ctx context.Context) (model.Token, error) {
	r.mu.Lock()
	if tok, ok := r.usableLocked(); ok {
		r.mu.Unlock()
		return tok, nil
	}
	gen := r.generation
	r.mu.Unlock()

	refreshCtx := context.WithoutCancel(ctx)
	ch := r.flights.DoChan(flightKey(gen), func() (any, error) {
		return r.acquire(refreshCtx, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.Token{}, res.Err
		}
		return res.Val.(model.Token), nil
	case <-ctx.Done():
		return model.Token{}, ctx.Err()
	}
}

// InvalidateToken marks the cached token as unusable. The credential is kept;
// the next GetValidToken performs one refresh.
func (r *CredentialRepository) InvalidateToken(_ context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invalidated = true
	slog.Debug("bearer token invalidated")
}

// ClearStorage forgets the credential and token, both cached and persisted.
// A refresh in flight when ClearStorage runs is discarded when it completes
// and its waiters receive a RefreshFailed error wrapping model.ErrCleared.
// Calling ClearStorage repeatedly is harmless.
func (r *CredentialRepository) ClearStorage(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	old := r.resetLocked(nil)
	r.flights.Forget(flightKey(old))

	err := errors.Join(
		r.store.Clear(ctx, driven.KeyCredential),
		r.store.Clear(ctx, driven.KeyToken),
	)
	if err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}

	slog.Info("credential storage cleared")
	return nil
}

// LastToken returns the most recent token held by the repository, even when
// it is expired or invalidated, for diagnostics. It never triggers a refresh
// and returns nil when no token is held.
func (r *CredentialRepository) LastToken() *model.Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token == nil {
		return nil
	}
	tok := *r.token
	return &tok
}

// TokenUsable reports whether a cached token would be served without a refresh.
func (r *CredentialRepository) TokenUsable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.usableLocked()
	return ok
}

// resetLocked starts a new generation holding cred (nil after a clear) and no
// token. It returns the previous generation. Callers hold writeMu.
func (r *CredentialRepository) resetLocked(cred *model.Credential) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.generation
	r.generation++
	r.credential = copyCredential(cred)
	r.credLoaded = true
	r.token = nil
	r.tokenLoaded = true
	r.invalidated = false
	return old
}

// usableLocked returns the cached token if it may be served. Callers hold mu.
func (r *CredentialRepository) usableLocked() (model.Token, bool) {
	if !r.tokenLoaded || r.token == nil || r.invalidated {
		return model.Token{}, false
	}
	if r.token.ExpiresWithin(r.now(), r.leeway) {
		return model.Token{}, false
	}
	return *r.token, true
}

// acquire is the body of a refresh flight for generation gen.
func (r *CredentialRepository) acquire(ctx context.Context, gen uint64) (model.Token, error) {
	// A flight that finished between the caller's cache check and DoChan
	// may already have produced a usable token.
	r.mu.Lock()
	if tok, ok := r.usableLocked(); ok && r.generation == gen {
		r.mu.Unlock()
		return tok, nil
	}
	r.mu.Unlock()

	// A fresh process starts from the persisted token, if any.
	if tok, ok := r.restore(ctx, gen); ok {
		return tok, nil
	}

	r.mu.Lock()
	var refreshToken string
	if r.token != nil {
		refreshToken = r.token.RefreshToken
	}
	r.mu.Unlock()

	cred, _ := r.LoadCredentials(ctx)
	if refreshToken == "" && cred == nil {
		return model.Token{}, model.NoCredentialError(nil)
	}
	if r.issuer == nil {
		return model.Token{}, model.RefreshFailedError(ErrNoIssuer)
	}

	issued, err := r.issue(ctx, gen, refreshToken, cred)
	if err != nil {
		if !errors.Is(err, model.ErrCleared) {
			slog.Error("token refresh failed", "error", err)
		}
		return model.Token{}, model.RefreshFailedError(err)
	}

	tok := model.Token{
		Value:        issued.Value,
		RefreshToken: issued.RefreshToken,
		ObtainedAt:   r.now(),
		Expiry:       issued.Expiry,
	}
	if err := r.commit(ctx, gen, tok); err != nil {
		return model.Token{}, model.RefreshFailedError(err)
	}

	slog.Info("bearer token refreshed", "token", tok)
	return tok, nil
}

// issue calls the issuer with the refresh token, falling back to the stored
// credential when the refresh is rejected. Only one issue runs at a time.
func (r *CredentialRepository) issue(
	ctx context.Context,
	gen uint64,
	refreshToken string,
	cred *model.Credential,
) (driven.IssuedToken, error) {
	r.issueMu.Lock()
	defer r.issueMu.Unlock()

	r.mu.Lock()
	stale := r.generation != gen
	r.mu.Unlock()
	if stale {
		return driven.IssuedToken{}, model.ErrCleared
	}

	if refreshToken == "" {
		return r.issuer.Issue(ctx, driven.IssueRequest{Credential: cred})
	}
	issued, err := r.issuer.Issue(ctx, driven.IssueRequest{RefreshToken: refreshToken})
	if err != nil && cred != nil {
		slog.Warn("token refresh rejected; exchanging stored credential", "error", err)
		return r.issuer.Issue(ctx, driven.IssueRequest{Credential: cred})
	}
	return issued, err
}

// restore loads the persisted token into the cache on first use and reports
// whether it can be served.
func (r *CredentialRepository) restore(ctx context.Context, gen uint64) (model.Token, bool) {
	r.mu.Lock()
	loaded := r.tokenLoaded
	r.mu.Unlock()
	if loaded {
		return model.Token{}, false
	}

	var persisted *model.Token
	data, ok, err := r.store.Load(ctx, driven.KeyToken)
	switch {
	case err != nil:
		slog.Warn("stored token unreadable; treating as absent", "key", driven.KeyToken, "error", err)
	case ok:
		var tok model.Token
		err := json.Unmarshal(data, &tok)
		if err == nil && tok.Value == "" {
			err = errIncomplete
		}
		if err != nil {
			slog.Warn("stored token unreadable; treating as absent", "key", driven.KeyToken, "error", err)
		} else {
			persisted = &tok
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen || r.tokenLoaded {
		return model.Token{}, false
	}
	r.token = persisted
	r.tokenLoaded = true
	return r.usableLocked()
}

// commit persists tok and then publishes it to the cache, unless generation
// gen has been superseded.
func (r *CredentialRepository) commit(ctx context.Context, gen uint64, tok model.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	stale := r.generation != gen
	r.mu.Unlock()
	if stale {
		slog.Info("discarding token refreshed before storage was cleared")
		return model.ErrCleared
	}

	if err := r.store.Store(ctx, driven.KeyToken, data); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	r.mu.Lock()
	r.token = &tok
	r.tokenLoaded = true
	r.invalidated = false
	r.mu.Unlock()
	return nil
}

func flightKey(gen uint64) string {
	return "token-" + strconv.FormatUint(gen, 10)
}

func copyCredential(c *model.Credential) *model.Credential {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
