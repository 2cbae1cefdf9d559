package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bitbrowse/internal/application"
	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

func TestBrowseService_Overview(t *testing.T) {
	host := &fakeHost{
		user:     model.User{Username: "alice"},
		repos:    []model.Repository{{FullName: "alice/site", Workspace: "alice", Slug: "site"}},
		snippets: []model.Snippet{{ID: "k9", Title: "notes"}},
	}
	svc := application.NewBrowseService(host)

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", ov.User.Username)
	assert.Len(t, ov.Repositories, 1)
	assert.Len(t, ov.Snippets, 1)
	assert.Equal(t, []string{""}, host.listedSpaces, "overview lists the member repositories")
}

func TestBrowseService_OverviewPropagatesAuthFailure(t *testing.T) {
	host := &fakeHost{userErr: model.NoCredentialError(nil)}
	svc := application.NewBrowseService(host)

	_, err := svc.Overview(context.Background())
	assert.ErrorIs(t, err, model.ErrNoCredential)
}

func TestBrowseService_Repository(t *testing.T) {
	host := &fakeHost{repos: []model.Repository{{FullName: "alice/site", Workspace: "alice", Slug: "site"}}}
	svc := application.NewBrowseService(host)
	ctx := context.Background()

	repo, err := svc.Repository(ctx, "alice/site")
	require.NoError(t, err)
	assert.Equal(t, "site", repo.Slug)

	_, err = svc.Repository(ctx, "alice/missing")
	assert.ErrorIs(t, err, driven.ErrNotFound)

	_, err = svc.Repository(ctx, "no-slash")
	assert.Error(t, err)
}

func TestBrowseService_SourceAndFile(t *testing.T) {
	host := &fakeHost{}
	svc := application.NewBrowseService(host)
	ctx := context.Background()

	_, err := svc.Source(ctx, "alice/site", "", "/docs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, host.sourcePaths)

	content, err := svc.File(ctx, "alice/site", "main", "/README.md")
	require.NoError(t, err)
	assert.Equal(t, "contents of README.md", string(content))

	_, err = svc.File(ctx, "alice/site", "main", "/")
	assert.Error(t, err)
}

func TestBrowseService_Snippets(t *testing.T) {
	host := &fakeHost{}
	svc := application.NewBrowseService(host)
	ctx := context.Background()

	created, err := svc.CreateSnippet(ctx, model.NewSnippet{Filename: "hello.go", Content: "package main", IsPrivate: true})
	require.NoError(t, err)
	assert.Equal(t, "hello.go", created.Title, "title defaults to the filename")
	assert.True(t, created.IsPrivate)

	_, err = svc.CreateSnippet(ctx, model.NewSnippet{Title: "no file"})
	assert.Error(t, err)

	require.NoError(t, svc.DeleteSnippet(ctx, "alice", "k9"))
	assert.Equal(t, []string{"alice/k9"}, host.deleted)
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in        string
		workspace string
		slug      string
		wantErr   bool
	}{
		{in: "alice/site", workspace: "alice", slug: "site"},
		{in: "alice", wantErr: true},
		{in: "/site", wantErr: true},
		{in: "alice/", wantErr: true},
		{in: "a/b/c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ws, slug, err := application.SplitFullName(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.workspace, ws)
			assert.Equal(t, tt.slug, slug)
		})
	}
}
