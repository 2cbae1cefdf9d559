package model

import "time"

// Repository is a hosted repository as listed by the Git host.
// Workspace is the Bitbucket workspace or GitHub owner.
type Repository struct {
	FullName    string    `json:"full_name" yaml:"full_name"`
	Workspace   string    `json:"workspace" yaml:"workspace"`
	Slug        string    `json:"slug" yaml:"slug"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	IsPrivate   bool      `json:"is_private" yaml:"is_private"`
	MainBranch  string    `json:"main_branch,omitempty" yaml:"main_branch,omitempty"`
	HTMLURL     string    `json:"html_url,omitempty" yaml:"html_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}
