package github

import (
	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

func mapRepository(r *gh.Repository) model.Repository {
	return model.Repository{
		FullName:    r.GetFullName(),
		Workspace:   r.GetOwner().GetLogin(),
		Slug:        r.GetName(),
		Name:        r.GetName(),
		Description: r.GetDescription(),
		IsPrivate:   r.GetPrivate(),
		MainBranch:  r.GetDefaultBranch(),
		HTMLURL:     r.GetHTMLURL(),
		UpdatedAt:   r.GetUpdatedAt().Time,
	}
}

// mapCommit prefers the linked GitHub account's login over the git author name.
func mapCommit(rc *gh.RepositoryCommit) model.Commit {
	author := rc.GetAuthor().GetLogin()
	if author == "" {
		author = rc.GetCommit().GetAuthor().GetName()
	}
	return model.Commit{
		Hash:    rc.GetSHA(),
		Message: rc.GetCommit().GetMessage(),
		Author:  author,
		Date:    rc.GetCommit().GetAuthor().GetDate().Time,
	}
}

func mapContent(c *gh.RepositoryContent) model.RepoFile {
	t := model.RepoFileTypeFile
	if c.GetType() == "dir" {
		t = model.RepoFileTypeDirectory
	}
	return model.RepoFile{
		Path:   c.GetPath(),
		Type:   t,
		Size:   int64(c.GetSize()),
		Commit: c.GetSHA(),
	}
}

func mapGist(g *gh.Gist) model.Snippet {
	return model.Snippet{
		ID:        g.GetID(),
		Workspace: g.GetOwner().GetLogin(),
		Title:     g.GetDescription(),
		IsPrivate: !g.GetPublic(),
		Owner:     g.GetOwner().GetLogin(),
		HTMLURL:   g.GetHTMLURL(),
		CreatedAt: g.GetCreatedAt().Time,
	}
}
