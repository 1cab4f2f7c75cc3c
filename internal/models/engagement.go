package models

import "time"

// Reaction is one user's emoji reaction to a story. One row per
// (story, user); re-reacting replaces the type.
type Reaction struct {
	ID           string
	StoryID      string
	UserID       string
	ReactionType string
	ReactedAt    time.Time
}

type Comment struct {
	ID        string
	StoryID   string
	UserID    string
	Text      string
	CreatedAt time.Time
}

// ViewerDetail is a ledger entry enriched for the owner's viewer sheet.
type ViewerDetail struct {
	UserID          string
	Username        string
	DisplayName     string
	ProfileImageKey string
	CoverImageKey   string
	ReactionType    *string
}
