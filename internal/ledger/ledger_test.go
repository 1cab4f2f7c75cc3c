package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storygram/api/internal/models"
)

func TestRecord(t *testing.T) {
	t.Run("appends in view order", func(t *testing.T) {
		st := models.Story{OwnerID: "alice"}

		assert.True(t, Record(&st, "bob"))
		assert.True(t, Record(&st, "carol"))
		assert.Equal(t, []string{"bob", "carol"}, st.Viewers)
	})

	t.Run("repeat view is a no-op", func(t *testing.T) {
		st := models.Story{OwnerID: "alice", Viewers: []string{"bob"}}

		assert.False(t, Record(&st, "bob"))
		assert.Equal(t, []string{"bob"}, st.Viewers)
	})

	t.Run("owner is never appended", func(t *testing.T) {
		st := models.Story{OwnerID: "alice"}

		assert.False(t, Record(&st, "alice"))
		assert.Empty(t, st.Viewers)
	})
}

func TestViewCount(t *testing.T) {
	t.Run("counts the ledger", func(t *testing.T) {
		st := models.Story{OwnerID: "alice", Viewers: []string{"bob", "carol"}}
		assert.Equal(t, 2, ViewCount(st))
	})

	t.Run("tolerates a stray owner entry", func(t *testing.T) {
		st := models.Story{OwnerID: "alice", Viewers: []string{"alice", "bob"}}
		assert.Equal(t, 1, ViewCount(st))
	})

	t.Run("empty ledger", func(t *testing.T) {
		assert.Equal(t, 0, ViewCount(models.Story{OwnerID: "alice"}))
	})
}

func TestHasUnseen(t *testing.T) {
	st := models.Story{OwnerID: "alice", Viewers: []string{"bob"}}

	assert.False(t, HasUnseen(st, "bob"))
	assert.True(t, HasUnseen(st, "carol"))
}

func TestWithoutOwner(t *testing.T) {
	st := models.Story{OwnerID: "alice", Viewers: []string{"bob", "alice", "carol"}}
	assert.Equal(t, []string{"bob", "carol"}, WithoutOwner(st))
}
