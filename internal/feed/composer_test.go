package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storygram/api/internal/models"
)

var feedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	authors      []models.User
	stories      map[string][]models.Story
	ownLatest    map[string]models.Story
	followers    map[[2]string]bool // follower -> owner
	closeFriends map[[2]string]bool // owner -> friend
}

func (f *fakeStore) FeedAuthors(_ context.Context, _ string) ([]models.User, error) {
	return f.authors, nil
}

func (f *fakeStore) ActiveStories(_ context.Context, authorID string, _ time.Time) ([]models.Story, error) {
	return f.stories[authorID], nil
}

func (f *fakeStore) LatestOwnStory(_ context.Context, ownerID string) (models.Story, bool, error) {
	st, ok := f.ownLatest[ownerID]
	return st, ok, nil
}

func (f *fakeStore) IsAcceptedFollower(_ context.Context, followerID, ownerID string) (bool, error) {
	return f.followers[[2]string{followerID, ownerID}], nil
}

func (f *fakeStore) IsCloseFriend(_ context.Context, ownerID, friendID string) (bool, error) {
	return f.closeFriends[[2]string{ownerID, friendID}], nil
}

func story(owner string, age time.Duration, privacy models.Privacy, viewers ...string) models.Story {
	return models.Story{
		ID:        owner + "-" + age.String(),
		OwnerID:   owner,
		Privacy:   privacy,
		Viewers:   viewers,
		CreatedAt: feedNow.Add(-age),
		ExpiresAt: feedNow.Add(24*time.Hour - age),
	}
}

func viewer() models.User {
	return models.User{ID: "me", Username: "me", ProfileImageKey: "profiles/me.jpg"}
}

func TestComposeSelfEntryFirstPageOnly(t *testing.T) {
	store := &fakeStore{
		ownLatest: map[string]models.Story{"me": story("me", time.Hour, models.PrivacyPublic)},
	}
	c := NewComposer(store, 20, 100)

	page, err := c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	require.NotEmpty(t, page.Entries)
	assert.True(t, page.Entries[0].IsCurrentUser)
	assert.Equal(t, "me", page.Entries[0].AuthorID)
	require.NotNil(t, page.Entries[0].LastStoryTime)

	// A cursor page never repeats the self entry.
	cursor := FormatCursor(feedNow.Add(-time.Minute))
	page, err = c.Compose(context.Background(), viewer(), 0, cursor, feedNow)
	require.NoError(t, err)
	for _, e := range page.Entries {
		assert.False(t, e.IsCurrentUser)
	}
}

func TestComposeSelfEntryWithoutStories(t *testing.T) {
	c := NewComposer(&fakeStore{}, 20, 100)

	page, err := c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Nil(t, page.Entries[0].LastStoryTime)
	assert.False(t, page.Entries[0].HasNewStories)
}

func TestComposeOrdersByLatestStory(t *testing.T) {
	store := &fakeStore{
		authors: []models.User{{ID: "old"}, {ID: "new"}},
		stories: map[string][]models.Story{
			"old": {story("old", 3*time.Hour, models.PrivacyPublic)},
			"new": {story("new", time.Hour, models.PrivacyPublic)},
		},
	}
	c := NewComposer(store, 20, 100)

	page, err := c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, "me", page.Entries[0].AuthorID)
	assert.Equal(t, "new", page.Entries[1].AuthorID)
	assert.Equal(t, "old", page.Entries[2].AuthorID)
}

func TestComposeDeduplicatesAuthors(t *testing.T) {
	// Followed and close friend of the same author: one entry.
	store := &fakeStore{
		authors: []models.User{{ID: "ann"}, {ID: "ann"}},
		stories: map[string][]models.Story{
			"ann": {story("ann", time.Hour, models.PrivacyPublic)},
		},
	}
	c := NewComposer(store, 20, 100)

	page, err := c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "ann", page.Entries[1].AuthorID)
}

func TestComposeCloseFriendsPrivacyOverridesFollow(t *testing.T) {
	store := &fakeStore{
		authors: []models.User{{ID: "ann"}},
		stories: map[string][]models.Story{
			"ann": {story("ann", time.Hour, models.PrivacyCloseFriends)},
		},
		followers: map[[2]string]bool{{"me", "ann"}: true},
	}
	c := NewComposer(store, 20, 100)

	// Followed but not a close friend: the author drops out entirely.
	page, err := c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.True(t, page.Entries[0].IsCurrentUser)

	// Close friend sees the entry.
	store.closeFriends = map[[2]string]bool{{"ann", "me"}: true}
	page, err = c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "ann", page.Entries[1].AuthorID)
}

func TestComposeSkipsIneligibleLatestForOlderEligible(t *testing.T) {
	store := &fakeStore{
		authors: []models.User{{ID: "ann"}},
		stories: map[string][]models.Story{
			"ann": {
				story("ann", time.Hour, models.PrivacyCloseFriends),
				story("ann", 2*time.Hour, models.PrivacyPublic),
			},
		},
	}
	c := NewComposer(store, 20, 100)

	page, err := c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	entry := page.Entries[1]
	assert.Equal(t, "ann", entry.AuthorID)
	assert.Equal(t, models.PrivacyPublic, entry.Privacy)
	assert.True(t, entry.LastStoryTime.Equal(feedNow.Add(-2*time.Hour)))
}

func TestComposeHasNewStories(t *testing.T) {
	store := &fakeStore{
		authors: []models.User{{ID: "seen"}, {ID: "unseen"}},
		stories: map[string][]models.Story{
			"seen":   {story("seen", time.Hour, models.PrivacyPublic, "me")},
			"unseen": {story("unseen", 2*time.Hour, models.PrivacyPublic)},
		},
	}
	c := NewComposer(store, 20, 100)

	page, err := c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)

	byAuthor := map[string]Entry{}
	for _, e := range page.Entries {
		byAuthor[e.AuthorID] = e
	}
	assert.False(t, byAuthor["seen"].HasNewStories)
	assert.True(t, byAuthor["unseen"].HasNewStories)
}

func TestComposePagination(t *testing.T) {
	store := &fakeStore{
		authors: []models.User{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}},
		stories: map[string][]models.Story{
			"a1": {story("a1", 1*time.Hour, models.PrivacyPublic)},
			"a2": {story("a2", 2*time.Hour, models.PrivacyPublic)},
			"a3": {story("a3", 3*time.Hour, models.PrivacyPublic)},
		},
	}
	c := NewComposer(store, 20, 100)

	first, err := c.Compose(context.Background(), viewer(), 2, "", feedNow)
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	second, err := c.Compose(context.Background(), viewer(), 2, first.NextCursor, feedNow)
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	assert.Equal(t, "a2", second.Entries[0].AuthorID)
	assert.Equal(t, "a3", second.Entries[1].AuthorID)

	// Every entry on the second page is strictly older than the cursor.
	boundary, err := ParseCursor(first.NextCursor)
	require.NoError(t, err)
	for _, e := range second.Entries {
		require.NotNil(t, e.LastStoryTime)
		assert.True(t, e.LastStoryTime.Before(boundary))
	}

	third, err := c.Compose(context.Background(), viewer(), 2, second.NextCursor, feedNow)
	require.NoError(t, err)
	assert.Empty(t, third.Entries)
	assert.False(t, third.HasMore)
}

func TestComposeLimitClamped(t *testing.T) {
	store := &fakeStore{}
	c := NewComposer(store, 20, 100)

	page, err := c.Compose(context.Background(), viewer(), 500, "", feedNow)
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)

	page, err = c.Compose(context.Background(), viewer(), 0, "", feedNow)
	require.NoError(t, err)
	assert.Equal(t, 20, page.Limit)
}

func TestComposeRejectsBadCursor(t *testing.T) {
	c := NewComposer(&fakeStore{}, 20, 100)
	_, err := c.Compose(context.Background(), viewer(), 0, "garbage", feedNow)
	assert.Error(t, err)
}
