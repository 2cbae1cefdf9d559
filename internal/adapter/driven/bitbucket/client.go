// Package bitbucket implements the GitHost port against the Bitbucket Cloud
// 2.0 REST API.
package bitbucket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// DefaultBaseURL is the Bitbucket Cloud API root.
const DefaultBaseURL = "https://api.bitbucket.org/2.0"

const (
	defaultRequestsPerSecond = 10
	defaultBurst             = 20
	defaultRetryCount        = 2
	defaultRetryWaitTime     = 500 * time.Millisecond
	defaultRetryMaxWaitTime  = 5 * time.Second
	defaultMaxPages          = 20
	pageLen                  = "100"
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	RetryCount        int
	RetryWaitTime     time.Duration
	MaxPages          int
}

// Client is a Bitbucket Cloud API client. All requests go through the
// *http.Client passed to NewClient, which is expected to carry the
// authenticating transport.
type Client struct {
	r        *resty.Client
	maxPages int
}

// Compile-time interface satisfaction check.
var _ driven.GitHost = (*Client)(nil)

// NewClient creates a Client on httpClient. Requests are rate limited client
// side and retried on 429, 5xx and transport errors. Requests that could not
// be authorized are never retried.
func NewClient(httpClient *http.Client, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.RetryCount == 0 {
		opts.RetryCount = defaultRetryCount
	}
	if opts.RetryWaitTime <= 0 {
		opts.RetryWaitTime = defaultRetryWaitTime
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}

	r := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(max(opts.RetryCount, 0)).
		SetRetryWaitTime(opts.RetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
		AddRetryCondition(retryable).
		SetLogger(restyLogger{})

	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	r.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		slog.Debug("bitbucket response",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time(),
		)
		return nil
	})

	return &Client{r: r, maxPages: opts.MaxPages}
}

// retryable decides whether resty retries an attempt. With a condition
// registered, resty consults only the conditions.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return !model.IsAuthError(err) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
}

// get performs a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.r.R().SetContext(ctx).SetQueryParamsFromValues(query).Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return resp.Body(), nil
}

// paginate follows the "next" links of a paged collection and calls each for
// every element of every page's "values" array.
func (c *Client) paginate(ctx context.Context, path string, query url.Values, each func(gjson.Result)) error {
	next := path
	for page := 0; next != "" && page < c.maxPages; page++ {
		body, err := c.get(ctx, next, query)
		if err != nil {
			return err
		}
		gjson.GetBytes(body, "values").ForEach(func(_, v gjson.Result) bool {
			each(v)
			return true
		})
		next = gjson.GetBytes(body, "next").String()
		// The next link already carries the query.
		query = nil
	}
	return nil
}

// CurrentUser returns the authenticated account (GET /user).
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	body, err := c.get(ctx, "/user", nil)
	if err != nil {
		return model.User{}, err
	}
	u := gjson.ParseBytes(body)
	return model.User{
		Username:    u.Get("username").String(),
		DisplayName: u.Get("display_name").String(),
		AccountID:   u.Get("account_id").String(),
	}, nil
}

// ListRepositories lists a workspace's repositories, or the repositories the
// current user is a member of when workspace is empty.
func (c *Client) ListRepositories(ctx context.Context, workspace string) ([]model.Repository, error) {
	path := "/repositories"
	query := url.Values{"pagelen": {pageLen}, "sort": {"-updated_on"}}
	if workspace != "" {
		path += "/" + url.PathEscape(workspace)
	} else {
		query.Set("role", "member")
	}

	var repos []model.Repository
	err := c.paginate(ctx, path, query, func(v gjson.Result) {
		repos = append(repos, mapRepository(v))
	})
	if err != nil {
		return nil, err
	}
	return repos, nil
}

func (c *Client) GetRepository(ctx context.Context, workspace, repo string) (model.Repository, error) {
	body, err := c.get(ctx, repoPath(workspace, repo), nil)
	if err != nil {
		return model.Repository{}, err
	}
	return mapRepository(gjson.ParseBytes(body)), nil
}

// ListCommits lists the first page of commits reachable from ref.
func (c *Client) ListCommits(ctx context.Context, workspace, repo, ref string) ([]model.Commit, error) {
	path := repoPath(workspace, repo) + "/commits"
	if ref != "" {
		path += "/" + url.PathEscape(ref)
	}

	body, err := c.get(ctx, path, url.Values{"pagelen": {"50"}})
	if err != nil {
		return nil, err
	}

	var commits []model.Commit
	gjson.GetBytes(body, "values").ForEach(func(_, v gjson.Result) bool {
		commits = append(commits, mapCommit(v))
		return true
	})
	return commits, nil
}

// ListSource lists the directory at path on ref. An empty ref resolves to
// the repository's main branch.
func (c *Client) ListSource(ctx context.Context, workspace, repo, ref, path string) ([]model.RepoFile, error) {
	srcPath, err := c.srcPath(ctx, workspace, repo, ref, path)
	if err != nil {
		return nil, err
	}

	var files []model.RepoFile
	err = c.paginate(ctx, srcPath+"/", url.Values{"pagelen": {pageLen}}, func(v gjson.Result) {
		files = append(files, mapRepoFile(v))
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// GetSourceFile returns the raw contents of the file at path on ref.
func (c *Client) GetSourceFile(ctx context.Context, workspace, repo, ref, path string) ([]byte, error) {
	srcPath, err := c.srcPath(ctx, workspace, repo, ref, path)
	if err != nil {
		return nil, err
	}

	resp, err := c.r.R().SetContext(ctx).SetHeader("Accept", "*/*").Get(srcPath)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", srcPath, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("GET %s: %w", srcPath, err)
	}
	return resp.Body(), nil
}

// srcPath builds /repositories/{ws}/{repo}/src/{ref}/{path}. The src endpoint
// needs an explicit commit or branch once a path is given, so an empty ref
// is resolved to the main branch first.
func (c *Client) srcPath(ctx context.Context, workspace, repo, ref, path string) (string, error) {
	if ref == "" {
		r, err := c.GetRepository(ctx, workspace, repo)
		if err != nil {
			return "", err
		}
		if r.MainBranch == "" {
			return "", fmt.Errorf("repository %s/%s has no main branch", workspace, repo)
		}
		ref = r.MainBranch
	}

	p := repoPath(workspace, repo) + "/src/" + url.PathEscape(ref)
	if path != "" {
		p += "/" + escapePath(path)
	}
	return p, nil
}

// ListSnippets lists snippets owned by the current user.
func (c *Client) ListSnippets(ctx context.Context) ([]model.Snippet, error) {
	var snippets []model.Snippet
	err := c.paginate(ctx, "/snippets", url.Values{"role": {"owner"}, "pagelen": {pageLen}}, func(v gjson.Result) {
		snippets = append(snippets, mapSnippet(v))
	})
	if err != nil {
		return nil, err
	}
	return snippets, nil
}

// CreateSnippet uploads a single-file snippet as multipart form data.
func (c *Client) CreateSnippet(ctx context.Context, s model.NewSnippet) (model.Snippet, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"title":      s.Title,
			"is_private": strconv.FormatBool(s.IsPrivate),
		}).
		SetFileReader("file", s.Filename, strings.NewReader(s.Content)).
		Post("/snippets")
	if err != nil {
		return model.Snippet{}, fmt.Errorf("POST /snippets: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return model.Snippet{}, fmt.Errorf("POST /snippets: %w", err)
	}
	return mapSnippet(gjson.ParseBytes(resp.Body())), nil
}

func (c *Client) DeleteSnippet(ctx context.Context, workspace, id string) error {
	path := "/snippets/" + url.PathEscape(workspace) + "/" + url.PathEscape(id)
	resp, err := c.r.R().SetContext(ctx).Delete(path)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", path, err)
	}
	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("DELETE %s: %w", path, err)
	}
	return nil
}

func repoPath(workspace, repo string) string {
	return "/repositories/" + url.PathEscape(workspace) + "/" + url.PathEscape(repo)
}

// escapePath escapes each segment of a slash-separated file path.
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
