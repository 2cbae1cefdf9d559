package model

// RepoFileType distinguishes files from directories in a source listing.
type RepoFileType string

const (
	RepoFileTypeFile      RepoFileType = "file"
	RepoFileTypeDirectory RepoFileType = "dir"
)

// RepoFile is one entry of a source tree listing.
type RepoFile struct {
	Path   string       `json:"path" yaml:"path"`
	Type   RepoFileType `json:"type" yaml:"type"`
	Size   int64        `json:"size" yaml:"size"`
	Commit string       `json:"commit,omitempty" yaml:"commit,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (f RepoFile) IsDir() bool {
	return f.Type == RepoFileTypeDirectory
}
