package model

import "time"

// Snippet is a small shared piece of code (a Bitbucket snippet or GitHub gist).
type Snippet struct {
	ID        string    `json:"id" yaml:"id"`
	Workspace string    `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Title     string    `json:"title" yaml:"title"`
	IsPrivate bool      `json:"is_private" yaml:"is_private"`
	Owner     string    `json:"owner,omitempty" yaml:"owner,omitempty"`
	HTMLURL   string    `json:"html_url,omitempty" yaml:"html_url,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewSnippet is the input for creating a snippet with a single file.
type NewSnippet struct {
	Title     string
	Filename  string
	Content   string
	IsPrivate bool
}

// Overview is the combined landing view for the logged-in user.
type Overview struct {
	User         User         `json:"user" yaml:"user"`
	Repositories []Repository `json:"repositories" yaml:"repositories"`
	Snippets     []Snippet    `json:"snippets" yaml:"snippets"`
}
