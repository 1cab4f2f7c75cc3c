package models

import "time"

// Highlight binds one archived/expired story into a named, ordered
// collection. Within an (owner, name, cover) group the Order values are a
// dense permutation of 1..N after every mutation.
type Highlight struct {
	ID            string
	StoryID       string
	OwnerID       string
	Name          string
	CoverImageKey string
	Order         int
	Archived      bool
	CreatedAt     time.Time
}

// HighlightGroupKey identifies one highlight collection.
type HighlightGroupKey struct {
	OwnerID       string
	Name          string
	CoverImageKey string
}
