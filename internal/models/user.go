package models

import "time"

type User struct {
	ID                string
	Username          string
	DisplayName       string
	ProfileImageKey   string
	CoverImageKey     string
	ProfileVisibility Privacy
	// AutoArchive keeps expired stories instead of purging them.
	AutoArchive bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type FollowStatus string

const (
	FollowPending  FollowStatus = "pending"
	FollowAccepted FollowStatus = "accepted"
	FollowRejected FollowStatus = "rejected"
)

// Follower is a directed edge: FollowerID follows FollowingID.
type Follower struct {
	ID          string
	FollowerID  string
	FollowingID string
	Status      FollowStatus
	Blocked     bool
	CreatedAt   time.Time
}

// CloseFriend is a directed edge: UserID lists FriendID as a close friend.
type CloseFriend struct {
	ID        string
	UserID    string
	FriendID  string
	CreatedAt time.Time
}
