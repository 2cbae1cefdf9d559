package application

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// BrowseService provides read and snippet operations on the Git host.
// It depends only on the GitHost port.
type BrowseService struct {
	host driven.GitHost
}

// NewBrowseService creates a new BrowseService.
func NewBrowseService(host driven.GitHost) *BrowseService {
	return &BrowseService{host: host}
}

// Repositories lists repositories in workspace, or the current user's
// repositories when workspace is empty.
func (s *BrowseService) Repositories(ctx context.Context, workspace string) ([]model.Repository, error) {
	repos, err := s.host.ListRepositories(ctx, workspace)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return repos, nil
}

// Repository fetches a repository by "workspace/slug".
func (s *BrowseService) Repository(ctx context.Context, fullName string) (model.Repository, error) {
	workspace, slug, err := SplitFullName(fullName)
	if err != nil {
		return model.Repository{}, err
	}
	repo, err := s.host.GetRepository(ctx, workspace, slug)
	if err != nil {
		return model.Repository{}, fmt.Errorf("get repository %s: %w", fullName, err)
	}
	return repo, nil
}

// Commits lists recent commits on ref (the main branch when empty).
func (s *BrowseService) Commits(ctx context.Context, fullName, ref string) ([]model.Commit, error) {
	workspace, slug, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}
	commits, err := s.host.ListCommits(ctx, workspace, slug, ref)
	if err != nil {
		return nil, fmt.Errorf("list commits %s: %w", fullName, err)
	}
	return commits, nil
}

// Source lists the directory at path.
func (s *BrowseService) Source(ctx context.Context, fullName, ref, path string) ([]model.RepoFile, error) {
	workspace, slug, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}
	files, err := s.host.ListSource(ctx, workspace, slug, ref, strings.Trim(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("list source %s/%s: %w", fullName, path, err)
	}
	return files, nil
}

// File returns the raw contents of the file at path.
func (s *BrowseService) File(ctx context.Context, fullName, ref, path string) ([]byte, error) {
	workspace, slug, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	content, err := s.host.GetSourceFile(ctx, workspace, slug, ref, path)
	if err != nil {
		return nil, fmt.Errorf("get file %s/%s: %w", fullName, path, err)
	}
	return content, nil
}

// Snippets lists the current user's snippets.
func (s *BrowseService) Snippets(ctx context.Context) ([]model.Snippet, error) {
	snippets, err := s.host.ListSnippets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	return snippets, nil
}

// CreateSnippet creates a single-file snippet.
func (s *BrowseService) CreateSnippet(ctx context.Context, snippet model.NewSnippet) (model.Snippet, error) {
	if snippet.Filename == "" {
		return model.Snippet{}, fmt.Errorf("snippet filename is required")
	}
	if snippet.Title == "" {
		snippet.Title = snippet.Filename
	}
	created, err := s.host.CreateSnippet(ctx, snippet)
	if err != nil {
		return model.Snippet{}, fmt.Errorf("create snippet: %w", err)
	}
	return created, nil
}

// DeleteSnippet deletes a snippet.
func (s *BrowseService) DeleteSnippet(ctx context.Context, workspace, id string) error {
	if err := s.host.DeleteSnippet(ctx, workspace, id); err != nil {
		return fmt.Errorf("delete snippet %s: %w", id, err)
	}
	return nil
}

// Overview fetches the user, their repositories and their snippets
// concurrently. With bearer authentication the three requests share one
// token refresh.
func (s *BrowseService) Overview(ctx context.Context) (model.Overview, error) {
	var ov model.Overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := s.host.CurrentUser(gctx)
		if err != nil {
			return fmt.Errorf("current user: %w", err)
		}
		ov.User = user
		return nil
	})
	g.Go(func() error {
		repos, err := s.host.ListRepositories(gctx, "")
		if err != nil {
			return fmt.Errorf("list repositories: %w", err)
		}
		ov.Repositories = repos
		return nil
	})
	g.Go(func() error {
		snippets, err := s.host.ListSnippets(gctx)
		if err != nil {
			return fmt.Errorf("list snippets: %w", err)
		}
		ov.Snippets = snippets
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.Overview{}, err
	}
	return ov, nil
}

// SplitFullName splits "workspace/slug" into its parts.
func SplitFullName(fullName string) (workspace, slug string, err error) {
	workspace, slug, ok := strings.Cut(fullName, "/")
	if !ok || workspace == "" || slug == "" || strings.Contains(slug, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected workspace/slug", fullName)
	}
	return workspace, slug, nil
}
