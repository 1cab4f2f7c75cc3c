package lifecycle

import (
	"errors"
	"time"

	"storygram/api/internal/models"
)

var (
	ErrNotSoftDeleted     = errors.New("story is not in the soft-deleted window")
	ErrAlreadyArchived    = errors.New("story is already archived")
	ErrNotArchived        = errors.New("story is not archived")
	ErrAlreadyHighlighted = errors.New("story is already highlighted")
	ErrNotHighlighted     = errors.New("story is not highlighted")
)

// SoftDelete marks the story deleted: expiry is pulled into the past and
// the deletion timestamp starts the retention window. Calling it on an
// already-deleted story is a no-op.
func (r Rules) SoftDelete(st *models.Story, now time.Time) {
	if st.DeletedAt != nil {
		return
	}
	if st.ExpiresAt.After(now) {
		st.ExpiresAt = now.Add(-time.Second)
	}
	deleted := now
	st.DeletedAt = &deleted
}

// Restore brings a soft-deleted story back: the deletion marker is
// cleared and expiry is recomputed from the original creation time.
func (r Rules) Restore(st *models.Story, now time.Time) error {
	if r.StateOf(*st, now) != StateSoftDeleted {
		return ErrNotSoftDeleted
	}
	st.DeletedAt = nil
	st.ExpiresAt = st.CreatedAt.Add(r.StoryTTL)
	return nil
}

func (r Rules) Archive(st *models.Story) error {
	if st.Archived {
		return ErrAlreadyArchived
	}
	st.Archived = true
	return nil
}

// UnarchiveToDelete takes a story out of the archive straight into the
// soft-deleted window; plain unarchiving back to Active does not exist.
func (r Rules) UnarchiveToDelete(st *models.Story, now time.Time) error {
	if !st.Archived {
		return ErrNotArchived
	}
	st.Archived = false
	st.ExpiresAt = now.Add(-time.Second)
	deleted := now
	st.DeletedAt = &deleted
	return nil
}

func (r Rules) Promote(st *models.Story) error {
	if st.Highlighted {
		return ErrAlreadyHighlighted
	}
	st.Highlighted = true
	return nil
}

// Demote clears the highlight tag. The caller must re-evaluate the story
// with PurgeEligible afterwards: demotion can strip its last protection.
func (r Rules) Demote(st *models.Story) error {
	if !st.Highlighted {
		return ErrNotHighlighted
	}
	st.Highlighted = false
	return nil
}
