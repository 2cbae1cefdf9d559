package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

var (
	// ErrUnauthorized is returned when the host rejects the request's credentials (HTTP 401).
	ErrUnauthorized = errors.New("host rejected credentials")

	// ErrNotFound is returned when the requested resource does not exist or is not visible.
	ErrNotFound = errors.New("not found")
)

// GitHost defines the driven port for browsing a hosted Git service. Every
// call goes through the authenticated HTTP pipeline.
type GitHost interface {
	// CurrentUser returns the account the configured credential belongs to.
	CurrentUser(ctx context.Context) (model.User, error)

	// ListRepositories lists repositories in workspace. An empty workspace
	// lists the repositories the current user is a member of.
	ListRepositories(ctx context.Context, workspace string) ([]model.Repository, error)
	GetRepository(ctx context.Context, workspace, repo string) (model.Repository, error)
	ListCommits(ctx context.Context, workspace, repo, ref string) ([]model.Commit, error)

	// ListSource lists the directory at path. An empty ref means the main branch.
	ListSource(ctx context.Context, workspace, repo, ref, path string) ([]model.RepoFile, error)
	GetSourceFile(ctx context.Context, workspace, repo, ref, path string) ([]byte, error)

	ListSnippets(ctx context.Context) ([]model.Snippet, error)
	CreateSnippet(ctx context.Context, snippet model.NewSnippet) (model.Snippet, error)
	DeleteSnippet(ctx context.Context, workspace, id string) error
}
