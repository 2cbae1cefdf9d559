package bitbucket_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/auth"
	"github.com/ericfisherdev/bitbrowse/internal/adapter/driven/bitbucket"
	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

type tokenFunc func(ctx context.Context) (model.Token, error)

func (f tokenFunc) GetValidToken(ctx context.Context) (model.Token, error) { return f(ctx) }

func staticToken(value string) tokenFunc {
	return func(context.Context) (model.Token, error) {
		return model.Token{Value: value}, nil
	}
}

func newTestClient(t *testing.T, handler http.Handler, tokens auth.TokenSource) *bitbucket.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rt := auth.NewTransport(auth.NewTokenStrategy(tokens), http.DefaultTransport)
	return bitbucket.NewClient(&http.Client{Transport: rt, Timeout: 5 * time.Second}, bitbucket.Options{
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
		Burst:             1000,
		RetryWaitTime:     time.Millisecond,
	})
}

func TestCurrentUser(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"username":"alice","display_name":"Alice A","account_id":"557058:1"}`)
	})

	c := newTestClient(t, mux, staticToken("tok"))
	u, err := c.CurrentUser(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, model.User{Username: "alice", DisplayName: "Alice A", AccountID: "557058:1"}, u)
}

func TestListRepositories_FollowsNextLinks(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/acme", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"values":[{"full_name":"acme/two","slug":"two","workspace":{"slug":"acme"},"name":"two"}]}`)
			return
		}
		assert.Equal(t, "100", r.URL.Query().Get("pagelen"))
		_, _ = io.WriteString(w, `{"values":[{"full_name":"acme/one","slug":"one","workspace":{"slug":"acme"},"name":"one",
			"is_private":true,"mainbranch":{"name":"main"},"links":{"html":{"href":"https://bitbucket.org/acme/one"}},
			"updated_on":"2026-02-01T10:00:00.000000+00:00"}],
			"next":"`+srvURL+`/repositories/acme?page=2"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	c := bitbucket.NewClient(srv.Client(), bitbucket.Options{BaseURL: srv.URL})
	repos, err := c.ListRepositories(t.Context(), "acme")
	require.NoError(t, err)
	require.Len(t, repos, 2)

	assert.Equal(t, "acme/one", repos[0].FullName)
	assert.True(t, repos[0].IsPrivate)
	assert.Equal(t, "main", repos[0].MainBranch)
	assert.Equal(t, "https://bitbucket.org/acme/one", repos[0].HTMLURL)
	assert.Equal(t, 2026, repos[0].UpdatedAt.Year())
	assert.Equal(t, "two", repos[1].Slug)
	assert.Equal(t, "acme", repos[1].Workspace)
}

func TestListRepositories_EmptyWorkspaceListsMemberRepos(t *testing.T) {
	var role string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories", func(w http.ResponseWriter, r *http.Request) {
		role = r.URL.Query().Get("role")
		_, _ = io.WriteString(w, `{"values":[{"full_name":"bob/tools"}]}`)
	})

	c := newTestClient(t, mux, staticToken("tok"))
	repos, err := c.ListRepositories(t.Context(), "")
	require.NoError(t, err)

	assert.Equal(t, "member", role)
	require.Len(t, repos, 1)
	assert.Equal(t, "bob", repos[0].Workspace, "workspace falls back to full_name")
	assert.Equal(t, "tools", repos[0].Slug)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: driven.ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, body: `{"error":{"message":"Repository not found"}}`, want: driven.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			c := newTestClient(t, mux, staticToken("tok"))
			_, err := c.GetRepository(t.Context(), "acme", "missing")
			require.ErrorIs(t, err, tt.want)
			assert.False(t, model.IsAuthError(err), "a host rejection is not a local auth failure")
		})
	}
}

func TestAPIError_CarriesMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"message":"bad title"}}`)
	})

	c := newTestClient(t, mux, staticToken("tok"))
	_, err := c.CreateSnippet(t.Context(), model.NewSnippet{Title: "x", Filename: "x.txt"})

	var apiErr *bitbucket.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "bad title", apiErr.Message)
}

func TestServerErrorsAreRetried(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"username":"alice"}`)
	})

	c := newTestClient(t, mux, staticToken("tok"))
	u, err := c.CurrentUser(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, int32(2), hits.Load())
}

func TestAuthFailuresAreNotRetried(t *testing.T) {
	var hits, tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(http.ResponseWriter, *http.Request) { hits.Add(1) })

	failing := tokenFunc(func(context.Context) (model.Token, error) {
		tokenCalls.Add(1)
		return model.Token{}, model.RefreshFailedError(errors.New("issuer down"))
	})

	c := newTestClient(t, mux, failing)
	_, err := c.CurrentUser(t.Context())

	require.Error(t, err)
	assert.True(t, model.IsAuthError(err))
	assert.ErrorIs(t, err, model.ErrRefreshFailed)
	assert.Equal(t, int32(0), hits.Load(), "nothing reaches the host")
	assert.Equal(t, int32(1), tokenCalls.Load(), "auth failures are not retried")
}

func TestListSource_ResolvesMainBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/acme/web", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"full_name":"acme/web","mainbranch":{"name":"develop"}}`)
	})
	mux.HandleFunc("GET /repositories/acme/web/src/develop/docs/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"values":[
			{"type":"commit_directory","path":"docs/guide","commit":{"hash":"abc"}},
			{"type":"commit_file","path":"docs/index.md","size":42,"commit":{"hash":"abc"}}]}`)
	})

	c := newTestClient(t, mux, staticToken("tok"))
	files, err := c.ListSource(t.Context(), "acme", "web", "", "docs")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.True(t, files[0].IsDir())
	assert.Equal(t, "docs/index.md", files[1].Path)
	assert.Equal(t, int64(42), files[1].Size)
	assert.Equal(t, "abc", files[1].Commit)
}

func TestGetSourceFile_ReturnsRawBytes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/acme/web/src/main/cmd/app/main.go", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "package main\n")
	})

	c := newTestClient(t, mux, staticToken("tok"))
	body, err := c.GetSourceFile(t.Context(), "acme", "web", "main", "/cmd/app/main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(body))
}

func TestListCommits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/acme/web/commits/feature", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"values":[
			{"hash":"0123456789abcdef","message":"Add login\n","author":{"raw":"Alice <a@example.com>"},"date":"2026-01-02T03:04:05+00:00"},
			{"hash":"fedcba","message":"Init","author":{"raw":"x","user":{"display_name":"Bob"}}}]}`)
	})

	c := newTestClient(t, mux, staticToken("tok"))
	commits, err := c.ListCommits(t.Context(), "acme", "web", "feature")
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "Add login", commits[0].Message)
	assert.Equal(t, "Alice <a@example.com>", commits[0].Author)
	assert.Equal(t, "Bob", commits[1].Author)
}

func TestCreateSnippet_SendsMultipartForm(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /snippets", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "notes", r.FormValue("title"))
		assert.Equal(t, "true", r.FormValue("is_private"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "notes.md", hdr.Filename)
		assert.Equal(t, "# hi", string(content))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"kypj","title":"notes","is_private":true,"workspace":{"slug":"alice"}}`)
	})

	c := newTestClient(t, mux, staticToken("tok"))
	s, err := c.CreateSnippet(t.Context(), model.NewSnippet{
		Title: "notes", Filename: "notes.md", Content: "# hi", IsPrivate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kypj", s.ID)
	assert.Equal(t, "alice", s.Workspace)
}

func TestSnippets_ListAndDelete(t *testing.T) {
	var deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /snippets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "owner", r.URL.Query().Get("role"))
		_, _ = io.WriteString(w, `{"values":[{"id":"a1","title":"one","owner":{"display_name":"Alice"}}]}`)
	})
	mux.HandleFunc("DELETE /snippets/{ws}/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = r.PathValue("ws") + "/" + r.PathValue("id")
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, mux, staticToken("tok"))
	snippets, err := c.ListSnippets(t.Context())
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "Alice", snippets[0].Owner)

	require.NoError(t, c.DeleteSnippet(t.Context(), "alice", "a1"))
	assert.Equal(t, "alice/a1", deleted)
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	var rawPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{}`)
	})

	c := newTestClient(t, handler, staticToken("tok"))
	_, err := c.GetSourceFile(t.Context(), "acme", "web", "main", "dir/a b.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rawPath, "/src/main/dir/a%20b.txt"), rawPath)
}
