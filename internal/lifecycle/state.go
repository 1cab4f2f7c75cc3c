// Package lifecycle owns the story state machine: the explicit logical
// state derived from stored flags and timestamps, the user-triggered
// transitions, and the sweep that resolves expired-but-unprocessed
// stories into archive/keep/purge.
package lifecycle

import (
	"time"

	"storygram/api/internal/models"
)

type State int

const (
	// StateActive: not expired, not deleted, not archived.
	StateActive State = iota
	// StateExpiredUnprocessed: past expiry, transient until the sweep
	// resolves it.
	StateExpiredUnprocessed
	// StateArchived: owner keeps the story beyond expiry.
	StateArchived
	// StateSoftDeleted: deleted_at set, inside the retention window.
	StateSoftDeleted
	// Purged has no State value: a purged story's row stops existing.
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpiredUnprocessed:
		return "expired_unprocessed"
	case StateArchived:
		return "archived"
	case StateSoftDeleted:
		return "soft_deleted"
	}
	return "unknown"
}

// Rules parameterizes the state machine with the configured story
// lifetime and soft-delete retention window.
type Rules struct {
	StoryTTL            time.Duration
	SoftDeleteRetention time.Duration
}

func DefaultRules() Rules {
	return Rules{
		StoryTTL:            24 * time.Hour,
		SoftDeleteRetention: 30 * 24 * time.Hour,
	}
}

// StateOf derives the logical state. Precedence: a deletion marker inside
// the retention window wins over everything, then the archive flag, then
// expiry. Highlighted is an orthogonal tag, not a state.
func (r Rules) StateOf(st models.Story, now time.Time) State {
	if st.DeletedAt != nil && now.Sub(*st.DeletedAt) < r.SoftDeleteRetention {
		return StateSoftDeleted
	}
	if st.Archived {
		return StateArchived
	}
	if st.ExpiresAt.After(now) {
		return StateActive
	}
	return StateExpiredUnprocessed
}

// PurgeEligible reports whether nothing protects the story anymore: it is
// expired, unarchived, not highlighted, and outside any soft-delete
// retention window. Used by the sweep and by highlight removal, which may
// strip the last protection a story had.
func (r Rules) PurgeEligible(st models.Story, now time.Time) bool {
	if st.ExpiresAt.After(now) || st.Archived || st.Highlighted {
		return false
	}
	if st.DeletedAt != nil && now.Sub(*st.DeletedAt) < r.SoftDeleteRetention {
		return false
	}
	return true
}
