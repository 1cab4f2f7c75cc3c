// Package ledger holds the viewer-list semantics: an ordered, append-only
// membership set per story, owner excluded.
package ledger

import "storygram/api/internal/models"

// Contains reports membership in a viewer list.
func Contains(viewers []string, userID string) bool {
	for _, v := range viewers {
		if v == userID {
			return true
		}
	}
	return false
}

// Record appends viewerID to the story's viewer list. It reports whether
// the list changed: a repeat view and an owner self-view are both no-ops.
func Record(st *models.Story, viewerID string) bool {
	if viewerID == st.OwnerID {
		return false
	}
	if Contains(st.Viewers, viewerID) {
		return false
	}
	st.Viewers = append(st.Viewers, viewerID)
	return true
}

// ViewCount is the ledger size. The owner id should never appear in the
// list, but a stray entry is tolerated rather than counted.
func ViewCount(st models.Story) int {
	n := len(st.Viewers)
	if Contains(st.Viewers, st.OwnerID) {
		n--
	}
	return n
}

// HasUnseen reports whether the viewer has not yet seen the story.
func HasUnseen(st models.Story, viewerID string) bool {
	return !Contains(st.Viewers, viewerID)
}

// WithoutOwner filters the owner id out of a viewer list, preserving
// order. Used when enriching viewer details for display.
func WithoutOwner(st models.Story) []string {
	out := make([]string, 0, len(st.Viewers))
	for _, v := range st.Viewers {
		if v != st.OwnerID {
			out = append(out, v)
		}
	}
	return out
}
