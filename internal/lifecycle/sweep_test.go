package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storygram/api/internal/models"
)

type fakeStoryStore struct {
	stories  map[string]*models.Story
	purged   []string
	archived []string
}

func newFakeStoryStore(stories ...models.Story) *fakeStoryStore {
	s := &fakeStoryStore{stories: make(map[string]*models.Story)}
	for i := range stories {
		st := stories[i]
		s.stories[st.ID] = &st
	}
	return s
}

func (s *fakeStoryStore) ListExpiredUnarchived(_ context.Context, now time.Time, limit int) ([]models.Story, error) {
	var out []models.Story
	for _, st := range s.stories {
		if !st.ExpiresAt.After(now) && !st.Archived {
			out = append(out, *st)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStoryStore) SetArchived(_ context.Context, id string, archived bool) error {
	st, ok := s.stories[id]
	if !ok {
		return errors.New("story not found")
	}
	st.Archived = archived
	s.archived = append(s.archived, id)
	return nil
}

func (s *fakeStoryStore) Purge(_ context.Context, id string) error {
	delete(s.stories, id)
	s.purged = append(s.purged, id)
	return nil
}

type fakeOwners struct {
	autoArchive map[string]bool
}

func (f fakeOwners) AutoArchiveEnabled(_ context.Context, ownerID string) (bool, error) {
	return f.autoArchive[ownerID], nil
}

type fakeMedia struct {
	deleted []string
	failOn  map[string]error
}

func (f *fakeMedia) Delete(_ context.Context, key string) error {
	if err := f.failOn[key]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func TestSweepPurgesUnprotectedExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStoryStore(models.Story{
		ID:           "st1",
		OwnerID:      "alice",
		ObjectKey:    "stories/alice/a.jpg",
		ThumbnailKey: "story_thumbnails/alice/a.jpg",
		ExpiresAt:    now.Add(-time.Hour),
	})
	media := &fakeMedia{}

	sweeper := NewSweeper(DefaultRules(), store, fakeOwners{}, media, 0, zerolog.Nop())
	require.NoError(t, sweeper.Sweep(context.Background(), now))

	assert.Equal(t, []string{"st1"}, store.purged)
	assert.Equal(t, []string{"stories/alice/a.jpg", "story_thumbnails/alice/a.jpg"}, media.deleted)
}

func TestSweepArchivesForAutoArchiveOwners(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStoryStore(models.Story{
		ID:        "st1",
		OwnerID:   "alice",
		ObjectKey: "stories/alice/a.jpg",
		ExpiresAt: now.Add(-time.Hour),
	})
	media := &fakeMedia{}

	sweeper := NewSweeper(DefaultRules(), store, fakeOwners{autoArchive: map[string]bool{"alice": true}}, media, 0, zerolog.Nop())
	require.NoError(t, sweeper.Sweep(context.Background(), now))

	assert.Empty(t, store.purged)
	assert.Empty(t, media.deleted)
	assert.True(t, store.stories["st1"].Archived)
}

func TestSweepKeepsProtectedStories(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)

	store := newFakeStoryStore(
		models.Story{ID: "deleted", OwnerID: "alice", ObjectKey: "k1", ExpiresAt: now.Add(-time.Hour), DeletedAt: &recent},
		models.Story{ID: "highlighted", OwnerID: "alice", ObjectKey: "k2", ExpiresAt: now.Add(-time.Hour), Highlighted: true},
	)
	media := &fakeMedia{}

	sweeper := NewSweeper(DefaultRules(), store, fakeOwners{}, media, 0, zerolog.Nop())
	require.NoError(t, sweeper.Sweep(context.Background(), now))

	assert.Empty(t, store.purged)
	assert.Empty(t, media.deleted)
}

func TestSweepPurgesAfterRetentionLapses(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-40 * 24 * time.Hour)

	store := newFakeStoryStore(models.Story{
		ID:        "st1",
		OwnerID:   "alice",
		ObjectKey: "stories/alice/a.jpg",
		ExpiresAt: stale,
		DeletedAt: &stale,
	})
	media := &fakeMedia{}

	sweeper := NewSweeper(DefaultRules(), store, fakeOwners{}, media, 0, zerolog.Nop())
	require.NoError(t, sweeper.Sweep(context.Background(), now))

	assert.Equal(t, []string{"st1"}, store.purged)
}

func TestSweepAbandonsStoryOnMediaFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStoryStore(models.Story{
		ID:        "st1",
		OwnerID:   "alice",
		ObjectKey: "stories/alice/a.jpg",
		ExpiresAt: now.Add(-time.Hour),
	})
	media := &fakeMedia{failOn: map[string]error{"stories/alice/a.jpg": errors.New("connection reset")}}

	sweeper := NewSweeper(DefaultRules(), store, fakeOwners{}, media, 0, zerolog.Nop())
	require.NoError(t, sweeper.Sweep(context.Background(), now))

	// The row survives so the next pass can retry.
	assert.Empty(t, store.purged)
	assert.Contains(t, store.stories, "st1")

	// Retry after the failure clears.
	media.failOn = nil
	require.NoError(t, sweeper.Sweep(context.Background(), now))
	assert.Equal(t, []string{"st1"}, store.purged)
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStoryStore(models.Story{
		ID:        "st1",
		OwnerID:   "alice",
		ObjectKey: "k1",
		ExpiresAt: now.Add(-time.Hour),
	})
	media := &fakeMedia{}

	sweeper := NewSweeper(DefaultRules(), store, fakeOwners{}, media, 0, zerolog.Nop())
	require.NoError(t, sweeper.Sweep(context.Background(), now))
	require.NoError(t, sweeper.Sweep(context.Background(), now))

	assert.Equal(t, []string{"st1"}, store.purged)
	assert.Equal(t, []string{"k1"}, media.deleted)
}
