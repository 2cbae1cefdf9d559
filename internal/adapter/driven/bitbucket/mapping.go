package bitbucket

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

func mapRepository(v gjson.Result) model.Repository {
	fullName := v.Get("full_name").String()
	workspace := v.Get("workspace.slug").String()
	slug := v.Get("slug").String()
	if workspace == "" || slug == "" {
		if ws, s, ok := strings.Cut(fullName, "/"); ok {
			workspace, slug = ws, s
		}
	}
	return model.Repository{
		FullName:    fullName,
		Workspace:   workspace,
		Slug:        slug,
		Name:        v.Get("name").String(),
		Description: v.Get("description").String(),
		IsPrivate:   v.Get("is_private").Bool(),
		MainBranch:  v.Get("mainbranch.name").String(),
		HTMLURL:     v.Get("links.html.href").String(),
		UpdatedAt:   v.Get("updated_on").Time(),
	}
}

func mapCommit(v gjson.Result) model.Commit {
	author := v.Get("author.user.display_name").String()
	if author == "" {
		author = v.Get("author.raw").String()
	}
	return model.Commit{
		Hash:    v.Get("hash").String(),
		Message: strings.TrimSpace(v.Get("message").String()),
		Author:  author,
		Date:    v.Get("date").Time(),
	}
}

func mapRepoFile(v gjson.Result) model.RepoFile {
	t := model.RepoFileTypeFile
	if v.Get("type").String() == "commit_directory" {
		t = model.RepoFileTypeDirectory
	}
	return model.RepoFile{
		Path:   v.Get("path").String(),
		Type:   t,
		Size:   v.Get("size").Int(),
		Commit: v.Get("commit.hash").String(),
	}
}

func mapSnippet(v gjson.Result) model.Snippet {
	return model.Snippet{
		ID:        v.Get("id").String(),
		Workspace: v.Get("workspace.slug").String(),
		Title:     v.Get("title").String(),
		IsPrivate: v.Get("is_private").Bool(),
		Owner:     v.Get("owner.display_name").String(),
		HTMLURL:   v.Get("links.html.href").String(),
		CreatedAt: v.Get("created_on").Time(),
	}
}
