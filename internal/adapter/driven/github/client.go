// Package github implements the GitHost port against the GitHub REST API using
// the go-github library. Gists stand in for snippets.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHost = (*Client)(nil)

const perPage = 100

// Client implements the driven.GitHost port using the go-github library.
type Client struct {
	gh       *gh.Client
	maxPages int
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  2. rt, the authenticating transport (usually over an httpcache transport)
//  3. go-github (GitHub REST API client)
//
// An empty baseURL targets api.github.com.
func NewClient(rt http.RoundTripper, baseURL string, timeout time.Duration) (*Client, error) {
	httpClient := github_ratelimit.NewClient(rt)
	httpClient.Timeout = timeout
	return NewClientWithHTTPClient(httpClient, baseURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{gh: client, maxPages: 20}, nil
}

// CurrentUser returns the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	u, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return model.User{}, fmt.Errorf("fetching authenticated user: %w", mapError(err))
	}
	logRateLimit(resp, "user", 0, 1)

	return model.User{
		Username:    u.GetLogin(),
		DisplayName: u.GetName(),
		AccountID:   fmt.Sprint(u.GetID()),
	}, nil
}

// ListRepositories lists repositories owned by workspace (a user or
// organization login). An empty workspace lists the repositories the
// authenticated user owns, collaborates on or can see through an organization.
func (c *Client) ListRepositories(ctx context.Context, workspace string) ([]model.Repository, error) {
	var all []model.Repository

	if workspace == "" {
		opts := &gh.RepositoryListByAuthenticatedUserOptions{
			Affiliation: "owner,collaborator,organization_member",
			Sort:        "updated",
			ListOptions: gh.ListOptions{PerPage: perPage},
		}
		for page := 0; page < c.maxPages; page++ {
			repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
			if err != nil {
				return nil, fmt.Errorf("listing repositories (page %d): %w", opts.Page, mapError(err))
			}
			logRateLimit(resp, "user/repos", opts.Page, len(repos))
			for _, r := range repos {
				all = append(all, mapRepository(r))
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return all, nil
	}

	opts := &gh.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	for page := 0; page < c.maxPages; page++ {
		repos, resp, err := c.gh.Repositories.ListByUser(ctx, workspace, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories for %s (page %d): %w", workspace, opts.Page, mapError(err))
		}
		logRateLimit(resp, workspace+"/repos", opts.Page, len(repos))
		for _, r := range repos {
			all = append(all, mapRepository(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (c *Client) GetRepository(ctx context.Context, workspace, repo string) (model.Repository, error) {
	r, resp, err := c.gh.Repositories.Get(ctx, workspace, repo)
	if err != nil {
		return model.Repository{}, fmt.Errorf("fetching repository %s/%s: %w", workspace, repo, mapError(err))
	}
	logRateLimit(resp, workspace+"/"+repo, 0, 1)
	return mapRepository(r), nil
}

// ListCommits returns the first page of commits reachable from ref. An empty
// ref means the default branch.
func (c *Client) ListCommits(ctx context.Context, workspace, repo, ref string) ([]model.Commit, error) {
	opts := &gh.CommitsListOptions{SHA: ref, ListOptions: gh.ListOptions{PerPage: 50}}
	commits, resp, err := c.gh.Repositories.ListCommits(ctx, workspace, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing commits for %s/%s: %w", workspace, repo, mapError(err))
	}
	logRateLimit(resp, workspace+"/"+repo+"/commits", 0, len(commits))

	out := make([]model.Commit, 0, len(commits))
	for _, rc := range commits {
		out = append(out, mapCommit(rc))
	}
	return out, nil
}

// ListSource lists the directory at path. A path naming a file yields a single
// entry.
func (c *Client) ListSource(ctx context.Context, workspace, repo, ref, path string) ([]model.RepoFile, error) {
	file, dir, resp, err := c.gh.Repositories.GetContents(ctx, workspace, repo, strings.Trim(path, "/"),
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, fmt.Errorf("listing %s/%s:%s: %w", workspace, repo, path, mapError(err))
	}
	logRateLimit(resp, workspace+"/"+repo+"/contents", 0, len(dir))

	if file != nil {
		return []model.RepoFile{mapContent(file)}, nil
	}
	out := make([]model.RepoFile, 0, len(dir))
	for _, entry := range dir {
		out = append(out, mapContent(entry))
	}
	return out, nil
}

// GetSourceFile returns the decoded contents of the file at path.
func (c *Client) GetSourceFile(ctx context.Context, workspace, repo, ref, path string) ([]byte, error) {
	file, _, resp, err := c.gh.Repositories.GetContents(ctx, workspace, repo, strings.Trim(path, "/"),
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s:%s: %w", workspace, repo, path, mapError(err))
	}
	logRateLimit(resp, workspace+"/"+repo+"/contents", 0, 1)

	if file == nil {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return []byte(content), nil
}

// ListSnippets lists the authenticated user's gists.
func (c *Client) ListSnippets(ctx context.Context) ([]model.Snippet, error) {
	opts := &gh.GistListOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	var all []model.Snippet

	for page := 0; page < c.maxPages; page++ {
		gists, resp, err := c.gh.Gists.List(ctx, "", opts)
		if err != nil {
			return nil, fmt.Errorf("listing gists (page %d): %w", opts.Page, mapError(err))
		}
		logRateLimit(resp, "gists", opts.Page, len(gists))
		for _, g := range gists {
			all = append(all, mapGist(g))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateSnippet creates a single-file gist. The snippet title becomes the
// gist description.
func (c *Client) CreateSnippet(ctx context.Context, s model.NewSnippet) (model.Snippet, error) {
	g, _, err := c.gh.Gists.Create(ctx, &gh.Gist{
		Description: gh.Ptr(s.Title),
		Public:      gh.Ptr(!s.IsPrivate),
		Files: map[gh.GistFilename]gh.GistFile{
			gh.GistFilename(s.Filename): {Content: gh.Ptr(s.Content)},
		},
	})
	if err != nil {
		return model.Snippet{}, fmt.Errorf("creating gist: %w", mapError(err))
	}
	return mapGist(g), nil
}

// DeleteSnippet deletes a gist. Gist IDs are global, so workspace is unused.
func (c *Client) DeleteSnippet(ctx context.Context, _ string, id string) error {
	if _, err := c.gh.Gists.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting gist %s: %w", id, mapError(err))
	}
	return nil
}

// mapError translates GitHub 401 and 404 responses into the port's sentinel
// errors. Everything else, including authorization failures raised before the
// request was sent, passes through unchanged.
func mapError(err error) error {
	var ghErr *gh.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return err
	}
	switch ghErr.Response.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", driven.ErrUnauthorized, ghErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", driven.ErrNotFound, ghErr.Message)
	default:
		return err
	}
}

// logRateLimit emits a debug log with rate limit info and warns when remaining quota is low.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
