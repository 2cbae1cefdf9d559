package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ericfisherdev/bitbrowse/internal/application"
	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// --- Mock implementations ---

type memStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	loadErr  map[string]error
	storeErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte), loadErr: make(map[string]error)}
}

func (m *memStore) Store(_ context.Context, key string, plaintext []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return &driven.StorageError{Op: "store", Key: key, Err: m.storeErr}
	}
	m.data[key] = append([]byte(nil), plaintext...)
	return nil
}

func (m *memStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadErr[key]; err != nil {
		return nil, false, &driven.StorageError{Op: "open", Key: key, Err: err}
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.data)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// fakeIssuer counts calls. When release is non-nil every call blocks until it
// is closed; entered receives one value per call.
type fakeIssuer struct {
	mu      sync.Mutex
	calls   []driven.IssueRequest
	ctxErrs []error
	entered chan struct{}
	release chan struct{}
	issue   func(n int, req driven.IssueRequest) (driven.IssuedToken, error)
}

func newBlockingIssuer() *fakeIssuer {
	return &fakeIssuer{entered: make(chan struct{}, 100), release: make(chan struct{})}
}

func (f *fakeIssuer) Issue(ctx context.Context, req driven.IssueRequest) (driven.IssuedToken, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	issue := f.issue
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()

	if issue != nil {
		return issue(n, req)
	}
	return driven.IssuedToken{Value: fmt.Sprintf("token-%d", n)}, nil
}

func (f *fakeIssuer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeIssuer) request(i int) driven.IssueRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeHost struct {
	mu           sync.Mutex
	user         model.User
	userErr      error
	userCalls    int
	repos        []model.Repository
	snippets     []model.Snippet
	created      []model.NewSnippet
	deleted      []string
	sourcePaths  []string
	listedSpaces []string
}

func (h *fakeHost) CurrentUser(_ context.Context) (model.User, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.userCalls++
	return h.user, h.userErr
}

func (h *fakeHost) ListRepositories(_ context.Context, workspace string) ([]model.Repository, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listedSpaces = append(h.listedSpaces, workspace)
	return h.repos, nil
}

func (h *fakeHost) GetRepository(_ context.Context, workspace, repo string) (model.Repository, error) {
	for _, r := range h.repos {
		if r.Workspace == workspace && r.Slug == repo {
			return r, nil
		}
	}
	return model.Repository{}, driven.ErrNotFound
}

func (h *fakeHost) ListCommits(_ context.Context, _, _, _ string) ([]model.Commit, error) {
	return []model.Commit{{Hash: "abc123", Message: "init"}}, nil
}

func (h *fakeHost) ListSource(_ context.Context, _, _, _, path string) ([]model.RepoFile, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sourcePaths = append(h.sourcePaths, path)
	return []model.RepoFile{{Path: "README.md", Type: model.RepoFileTypeFile}}, nil
}

func (h *fakeHost) GetSourceFile(_ context.Context, _, _, _, path string) ([]byte, error) {
	return []byte("contents of " + path), nil
}

func (h *fakeHost) ListSnippets(_ context.Context) ([]model.Snippet, error) {
	return h.snippets, nil
}

func (h *fakeHost) CreateSnippet(_ context.Context, s model.NewSnippet) (model.Snippet, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, s)
	return model.Snippet{ID: "new", Title: s.Title, IsPrivate: s.IsPrivate}, nil
}

func (h *fakeHost) DeleteSnippet(_ context.Context, workspace, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, workspace+"/"+id)
	return nil
}

// tokenHost obtains a bearer token before answering CurrentUser, the way the
// authenticating transport does.
type tokenHost struct {
	fakeHost
	repo *application.CredentialRepository
}

func (h *tokenHost) CurrentUser(ctx context.Context) (model.User, error) {
	if _, err := h.repo.GetValidToken(ctx); err != nil {
		return model.User{}, fmt.Errorf("GET /user: %w", err)
	}
	return h.fakeHost.CurrentUser(ctx)
}
