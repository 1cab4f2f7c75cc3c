package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storygram/api/internal/models"
)

func TestSoftDelete(t *testing.T) {
	rules := DefaultRules()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pulls a future expiry into the past", func(t *testing.T) {
		st := models.Story{CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(23 * time.Hour)}
		rules.SoftDelete(&st, now)

		require.NotNil(t, st.DeletedAt)
		assert.Equal(t, now, *st.DeletedAt)
		assert.True(t, st.ExpiresAt.Before(now))
		assert.Equal(t, StateSoftDeleted, rules.StateOf(st, now))
	})

	t.Run("keeps an already past expiry", func(t *testing.T) {
		expiry := now.Add(-2 * time.Hour)
		st := models.Story{ExpiresAt: expiry}
		rules.SoftDelete(&st, now)
		assert.Equal(t, expiry, st.ExpiresAt)
	})

	t.Run("repeat delete is a no-op", func(t *testing.T) {
		first := now.Add(-time.Hour)
		st := models.Story{ExpiresAt: now.Add(-2 * time.Hour), DeletedAt: &first}
		rules.SoftDelete(&st, now)
		assert.Equal(t, first, *st.DeletedAt)
	})
}

func TestRestore(t *testing.T) {
	rules := DefaultRules()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("recomputes expiry from creation", func(t *testing.T) {
		created := now.Add(-2 * time.Hour)
		deleted := now.Add(-time.Hour)
		st := models.Story{CreatedAt: created, ExpiresAt: deleted.Add(-time.Second), DeletedAt: &deleted}

		require.NoError(t, rules.Restore(&st, now))
		assert.Nil(t, st.DeletedAt)
		assert.Equal(t, created.Add(rules.StoryTTL), st.ExpiresAt)
		assert.Equal(t, StateActive, rules.StateOf(st, now))
	})

	t.Run("rejects a story outside the window", func(t *testing.T) {
		st := models.Story{CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(23 * time.Hour)}
		assert.ErrorIs(t, rules.Restore(&st, now), ErrNotSoftDeleted)

		stale := now.Add(-40 * 24 * time.Hour)
		st = models.Story{CreatedAt: stale, ExpiresAt: stale, DeletedAt: &stale}
		assert.ErrorIs(t, rules.Restore(&st, now), ErrNotSoftDeleted)
	})
}

func TestArchiveTransitions(t *testing.T) {
	rules := DefaultRules()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("archive sets the flag once", func(t *testing.T) {
		st := models.Story{ExpiresAt: now.Add(-time.Hour)}
		require.NoError(t, rules.Archive(&st))
		assert.True(t, st.Archived)
		assert.ErrorIs(t, rules.Archive(&st), ErrAlreadyArchived)
	})

	t.Run("unarchive lands in the soft-deleted window", func(t *testing.T) {
		st := models.Story{ExpiresAt: now.Add(-48 * time.Hour), Archived: true}
		require.NoError(t, rules.UnarchiveToDelete(&st, now))

		assert.False(t, st.Archived)
		require.NotNil(t, st.DeletedAt)
		assert.Equal(t, StateSoftDeleted, rules.StateOf(st, now))
	})

	t.Run("unarchive requires the archive flag", func(t *testing.T) {
		st := models.Story{ExpiresAt: now.Add(-time.Hour)}
		assert.ErrorIs(t, rules.UnarchiveToDelete(&st, now), ErrNotArchived)
	})
}

func TestHighlightTransitions(t *testing.T) {
	rules := DefaultRules()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	st := models.Story{ExpiresAt: now.Add(-time.Hour)}

	require.NoError(t, rules.Promote(&st))
	assert.True(t, st.Highlighted)
	assert.False(t, rules.PurgeEligible(st, now))
	assert.ErrorIs(t, rules.Promote(&st), ErrAlreadyHighlighted)

	require.NoError(t, rules.Demote(&st))
	assert.False(t, st.Highlighted)
	assert.True(t, rules.PurgeEligible(st, now))
	assert.ErrorIs(t, rules.Demote(&st), ErrNotHighlighted)
}
