package highlights

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storygram/api/internal/models"
)

type memStore struct {
	rows map[string]*models.Highlight
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*models.Highlight)}
}

func (s *memStore) Group(_ context.Context, key models.HighlightGroupKey) ([]models.Highlight, error) {
	var out []models.Highlight
	for _, h := range s.rows {
		if h.OwnerID == key.OwnerID && h.Name == key.Name && h.CoverImageKey == key.CoverImageKey {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *memStore) GroupByName(_ context.Context, ownerID, name string) ([]models.Highlight, error) {
	var out []models.Highlight
	for _, h := range s.rows {
		if h.OwnerID == ownerID && h.Name == name {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *memStore) ByStory(_ context.Context, storyID string) (models.Highlight, error) {
	for _, h := range s.rows {
		if h.StoryID == storyID {
			return *h, nil
		}
	}
	return models.Highlight{}, ErrNotFound
}

func (s *memStore) ByID(_ context.Context, ownerID, highlightID string) (models.Highlight, error) {
	if h, ok := s.rows[highlightID]; ok && h.OwnerID == ownerID {
		return *h, nil
	}
	return models.Highlight{}, ErrNotFound
}

func (s *memStore) Insert(_ context.Context, h models.Highlight) error {
	copied := h
	s.rows[h.ID] = &copied
	return nil
}

func (s *memStore) Delete(_ context.Context, highlightID string) error {
	delete(s.rows, highlightID)
	return nil
}

func (s *memStore) ShiftDown(_ context.Context, key models.HighlightGroupKey, above int) error {
	for _, h := range s.rows {
		if h.OwnerID == key.OwnerID && h.Name == key.Name && h.CoverImageKey == key.CoverImageKey && h.Order > above {
			h.Order--
		}
	}
	return nil
}

func (s *memStore) SetOrder(_ context.Context, highlightID string, order int) error {
	if h, ok := s.rows[highlightID]; ok {
		h.Order = order
	}
	return nil
}

func (s *memStore) Rekey(_ context.Context, key models.HighlightGroupKey, newName, newCoverImageKey string) error {
	for _, h := range s.rows {
		if h.OwnerID == key.OwnerID && h.Name == key.Name && h.CoverImageKey == key.CoverImageKey {
			h.Name = newName
			h.CoverImageKey = newCoverImageKey
		}
	}
	return nil
}

func (s *memStore) SetArchived(_ context.Context, key models.HighlightGroupKey, archived bool) error {
	for _, h := range s.rows {
		if h.OwnerID == key.OwnerID && h.Name == key.Name && h.CoverImageKey == key.CoverImageKey {
			h.Archived = archived
		}
	}
	return nil
}

var testKey = models.HighlightGroupKey{OwnerID: "alice", Name: "travel", CoverImageKey: "cover_images/alice/c.jpg"}

func orders(t *testing.T, store *memStore, key models.HighlightGroupKey) []int {
	t.Helper()
	members, err := store.Group(context.Background(), key)
	require.NoError(t, err)
	out := make([]int, len(members))
	for i, h := range members {
		out[i] = h.Order
	}
	return out
}

func TestCreateSeedsDenseOrders(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	now := time.Now().UTC()

	created, err := mgr.Create(context.Background(), testKey, []string{"s1", "s2", "s3"}, now)
	require.NoError(t, err)
	require.Len(t, created, 3)

	assert.Equal(t, []int{1, 2, 3}, orders(t, store, testKey))
	assert.Equal(t, "s1", created[0].StoryID)
	assert.Equal(t, 1, created[0].Order)
	assert.NoError(t, VerifyDense(created))
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	now := time.Now().UTC()

	_, err := mgr.Create(context.Background(), testKey, []string{"s1"}, now)
	require.NoError(t, err)

	// Same name with a different cover is still the same folder name.
	other := models.HighlightGroupKey{OwnerID: "alice", Name: "travel", CoverImageKey: "other.jpg"}
	_, err = mgr.Create(context.Background(), other, []string{"s2"}, now)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestAppendRequiresExistingGroup(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	_, err := mgr.Append(context.Background(), testKey, "s1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrGroupMissing)
}

func TestAppendAssignsMaxPlusOne(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	now := time.Now().UTC()

	_, err := mgr.Create(context.Background(), testKey, []string{"s1", "s2"}, now)
	require.NoError(t, err)

	h, err := mgr.Append(context.Background(), testKey, "s3", now)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Order)
	assert.Equal(t, []int{1, 2, 3}, orders(t, store, testKey))
}

func TestRemoveClosesTheGap(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	now := time.Now().UTC()
	ctx := context.Background()

	created, err := mgr.Create(ctx, testKey, []string{"s1", "s2", "s3"}, now)
	require.NoError(t, err)

	// Remove the middle member: [1,2,3] -> [1,2].
	require.NoError(t, mgr.Remove(ctx, created[1]))
	assert.Equal(t, []int{1, 2}, orders(t, store, testKey))

	members, err := store.Group(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "s1", members[0].StoryID)
	assert.Equal(t, "s3", members[1].StoryID)
	assert.NoError(t, VerifyDense(members))
}

func TestRemoveThenAppendStaysDense(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	now := time.Now().UTC()
	ctx := context.Background()

	created, err := mgr.Create(ctx, testKey, []string{"s1", "s2", "s3", "s4"}, now)
	require.NoError(t, err)

	require.NoError(t, mgr.Remove(ctx, created[0]))
	_, err = mgr.Append(ctx, testKey, "s5", now)
	require.NoError(t, err)
	require.NoError(t, mgr.Remove(ctx, created[2]))

	members, err := store.Group(ctx, testKey)
	require.NoError(t, err)
	assert.NoError(t, VerifyDense(members))
	assert.Equal(t, []int{1, 2, 3}, orders(t, store, testKey))
}

func TestRenameKeepsOrders(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	now := time.Now().UTC()
	ctx := context.Background()

	_, err := mgr.Create(ctx, testKey, []string{"s1", "s2"}, now)
	require.NoError(t, err)

	require.NoError(t, mgr.Rename(ctx, testKey, "adventures", "cover_images/alice/new.jpg"))

	renamed := models.HighlightGroupKey{OwnerID: "alice", Name: "adventures", CoverImageKey: "cover_images/alice/new.jpg"}
	assert.Equal(t, []int{1, 2}, orders(t, store, renamed))
	assert.Empty(t, orders(t, store, testKey))
}

func TestArchiveGroup(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	ctx := context.Background()

	_, err := mgr.Create(ctx, testKey, []string{"s1"}, time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, mgr.ArchiveGroup(ctx, testKey))
	members, _ := store.Group(ctx, testKey)
	assert.True(t, members[0].Archived)

	require.NoError(t, mgr.UnarchiveGroup(ctx, testKey))
	members, _ = store.Group(ctx, testKey)
	assert.False(t, members[0].Archived)
}

func TestVerifyDense(t *testing.T) {
	dense := []models.Highlight{{Order: 2}, {Order: 1}, {Order: 3}}
	assert.NoError(t, VerifyDense(dense))

	gapped := []models.Highlight{{Order: 1}, {Order: 3}}
	assert.ErrorIs(t, VerifyDense(gapped), ErrOrderCorrupted)

	duplicated := []models.Highlight{{Order: 1}, {Order: 1}}
	assert.ErrorIs(t, VerifyDense(duplicated), ErrOrderCorrupted)

	assert.NoError(t, VerifyDense(nil))
}

func TestRepairRenumbersPreservingOrder(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	ctx := context.Background()
	now := time.Now().UTC()

	// Externally corrupted: orders 2, 5, 9.
	for i, pair := range []struct {
		story string
		order int
	}{{"s1", 2}, {"s2", 5}, {"s3", 9}} {
		require.NoError(t, store.Insert(ctx, models.Highlight{
			ID:            pair.story + "-h",
			StoryID:       pair.story,
			OwnerID:       testKey.OwnerID,
			Name:          testKey.Name,
			CoverImageKey: testKey.CoverImageKey,
			Order:         pair.order,
			CreatedAt:     now.Add(time.Duration(i) * time.Second),
		}))
	}

	members, err := store.Group(ctx, testKey)
	require.NoError(t, err)
	require.Error(t, VerifyDense(members))

	require.NoError(t, mgr.Repair(ctx, testKey))

	members, err = store.Group(ctx, testKey)
	require.NoError(t, err)
	assert.NoError(t, VerifyDense(members))
	assert.Equal(t, "s1", members[0].StoryID)
	assert.Equal(t, "s2", members[1].StoryID)
	assert.Equal(t, "s3", members[2].StoryID)
}
