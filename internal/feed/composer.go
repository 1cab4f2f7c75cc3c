// Package feed builds the "authors with a recent story" tray: the viewer
// first, then every followed or close-friend author with an eligible
// active story, newest first, cursor-paginated.
package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storygram/api/internal/ledger"
	"storygram/api/internal/models"
)

// Store is the read-only aggregation surface the composer consumes.
type Store interface {
	// FeedAuthors returns the union of authors the viewer follows
	// (accepted, unblocked) and authors listing the viewer as a close
	// friend, deduplicated by author id. The viewer themself is excluded.
	FeedAuthors(ctx context.Context, viewerID string) ([]models.User, error)
	// ActiveStories returns an author's active stories (unexpired,
	// unarchived, not deleted), newest first.
	ActiveStories(ctx context.Context, authorID string, now time.Time) ([]models.Story, error)
	// LatestOwnStory returns the viewer's most recent non-archived story
	// regardless of expiry, for the self entry.
	LatestOwnStory(ctx context.Context, ownerID string) (models.Story, bool, error)
	IsAcceptedFollower(ctx context.Context, followerID, ownerID string) (bool, error)
	IsCloseFriend(ctx context.Context, ownerID, friendID string) (bool, error)
}

type Entry struct {
	AuthorID        string         `json:"user_id"`
	Username        string         `json:"username"`
	ProfileImageKey string         `json:"profile_image_key"`
	LastStoryTime   *time.Time     `json:"last_story_time"`
	HasNewStories   bool           `json:"has_new_stories"`
	Privacy         models.Privacy `json:"privacy,omitempty"`
	IsCurrentUser   bool           `json:"is_current_user"`
}

type Page struct {
	Entries    []Entry
	NextCursor string
	HasMore    bool
	Limit      int
}

type Composer struct {
	store        Store
	defaultLimit int
	maxLimit     int
}

func NewComposer(store Store, defaultLimit, maxLimit int) *Composer {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &Composer{store: store, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Compose builds one feed page. cursor is empty for the first page; the
// self entry appears only there, first and unconditionally.
func (c *Composer) Compose(ctx context.Context, viewer models.User, limit int, cursor string, now time.Time) (Page, error) {
	viewerID := viewer.ID
	if limit <= 0 {
		limit = c.defaultLimit
	}
	if limit > c.maxLimit {
		limit = c.maxLimit
	}

	var boundary time.Time
	paginating := cursor != ""
	if paginating {
		t, err := ParseCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		boundary = t
	}

	entries := make([]Entry, 0, limit)

	if !paginating {
		self, err := c.selfEntry(ctx, viewer)
		if err != nil {
			return Page{}, err
		}
		entries = append(entries, self)
	}

	authors, err := c.store.FeedAuthors(ctx, viewerID)
	if err != nil {
		return Page{}, fmt.Errorf("feed authors: %w", err)
	}

	type candidate struct {
		author models.User
		latest models.Story
		hasNew bool
	}

	candidates := make([]candidate, 0, len(authors))
	seen := make(map[string]struct{}, len(authors))
	for _, author := range authors {
		if author.ID == viewerID {
			continue
		}
		if _, dup := seen[author.ID]; dup {
			continue
		}
		seen[author.ID] = struct{}{}

		stories, err := c.store.ActiveStories(ctx, author.ID, now)
		if err != nil {
			return Page{}, fmt.Errorf("active stories for %s: %w", author.ID, err)
		}

		latest, ok, err := c.latestEligible(ctx, viewerID, stories)
		if err != nil {
			return Page{}, err
		}
		if !ok {
			continue
		}
		if paginating && !beforeBoundary(latest.CreatedAt, boundary) {
			continue
		}

		hasNew := false
		for _, st := range stories {
			if ledger.HasUnseen(st, viewerID) {
				hasNew = true
				break
			}
		}

		candidates = append(candidates, candidate{author: author, latest: latest, hasNew: hasNew})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].latest.CreatedAt.After(candidates[j].latest.CreatedAt)
	})

	for _, cand := range candidates {
		if len(entries) == limit {
			break
		}
		t := cand.latest.CreatedAt
		entries = append(entries, Entry{
			AuthorID:        cand.author.ID,
			Username:        cand.author.Username,
			ProfileImageKey: cand.author.ProfileImageKey,
			LastStoryTime:   &t,
			HasNewStories:   cand.hasNew,
			Privacy:         cand.latest.Privacy,
		})
	}

	page := Page{
		Entries: entries,
		HasMore: len(entries) == limit,
		Limit:   limit,
	}
	if len(entries) > 0 && entries[len(entries)-1].LastStoryTime != nil {
		page.NextCursor = FormatCursor(*entries[len(entries)-1].LastStoryTime)
	}
	return page, nil
}

// latestEligible walks an author's active stories (newest first) and
// returns the first one the viewer may see. close_friends privacy
// excludes the story for non-close-friends even when the author is
// followed.
func (c *Composer) latestEligible(ctx context.Context, viewerID string, stories []models.Story) (models.Story, bool, error) {
	for _, st := range stories {
		switch st.Privacy {
		case models.PrivacyPublic:
			return st, true, nil
		case models.PrivacyPrivate:
			ok, err := c.store.IsAcceptedFollower(ctx, viewerID, st.OwnerID)
			if err != nil {
				return models.Story{}, false, fmt.Errorf("follower lookup: %w", err)
			}
			if ok {
				return st, true, nil
			}
		case models.PrivacyCloseFriends:
			ok, err := c.store.IsCloseFriend(ctx, st.OwnerID, viewerID)
			if err != nil {
				return models.Story{}, false, fmt.Errorf("close friend lookup: %w", err)
			}
			if ok {
				return st, true, nil
			}
		}
	}
	return models.Story{}, false, nil
}

func (c *Composer) selfEntry(ctx context.Context, viewer models.User) (Entry, error) {
	entry := Entry{
		AuthorID:        viewer.ID,
		Username:        viewer.Username,
		ProfileImageKey: viewer.ProfileImageKey,
		IsCurrentUser:   true,
	}

	latest, ok, err := c.store.LatestOwnStory(ctx, viewer.ID)
	if err != nil {
		return Entry{}, fmt.Errorf("latest own story: %w", err)
	}
	if ok {
		t := latest.CreatedAt
		entry.LastStoryTime = &t
		entry.Privacy = latest.Privacy
		entry.HasNewStories = ledger.HasUnseen(latest, viewer.ID)
	}
	return entry, nil
}
