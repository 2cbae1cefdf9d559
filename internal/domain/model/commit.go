package model

import "time"

// Commit is a single entry of a repository's history.
type Commit struct {
	Hash    string    `json:"hash" yaml:"hash"`
	Message string    `json:"message" yaml:"message"`
	Author  string    `json:"author" yaml:"author"`
	Date    time.Time `json:"date" yaml:"date"`
}

// ShortHash returns the first 12 characters of the hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) <= 12 {
		return c.Hash
	}
	return c.Hash[:12]
}
