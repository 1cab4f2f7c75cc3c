package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"storygram/api/internal/models"
)

// StoryStore is the slice of the relational store the sweep needs.
type StoryStore interface {
	ListExpiredUnarchived(ctx context.Context, now time.Time, limit int) ([]models.Story, error)
	SetArchived(ctx context.Context, storyID string, archived bool) error
	Purge(ctx context.Context, storyID string) error
}

// OwnerSettings resolves the owner's auto-archive preference.
type OwnerSettings interface {
	AutoArchiveEnabled(ctx context.Context, ownerID string) (bool, error)
}

// MediaDeleter removes a stored object by key.
type MediaDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Sweeper resolves Expired-Unprocessed stories. It runs before every
// request and on a timer; both invocations are idempotent.
type Sweeper struct {
	rules   Rules
	stories StoryStore
	owners  OwnerSettings
	media   MediaDeleter
	batch   int
	log     zerolog.Logger
}

func NewSweeper(rules Rules, stories StoryStore, owners OwnerSettings, media MediaDeleter, batch int, log zerolog.Logger) *Sweeper {
	if batch <= 0 {
		batch = 200
	}
	return &Sweeper{
		rules:   rules,
		stories: stories,
		owners:  owners,
		media:   media,
		batch:   batch,
		log:     log,
	}
}

// Sweep applies, per expired unarchived story:
//  1. owner auto-archive on -> archive
//  2. soft-deleted inside the retention window -> keep
//  3. highlighted -> keep (never auto-purged)
//  4. otherwise delete media then thumbnail, then purge the row
//
// A failed media delete abandons that story for this pass: the row must
// not outlive-or-precede its objects, so it is retried next sweep.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	expired, err := s.stories.ListExpiredUnarchived(ctx, now, s.batch)
	if err != nil {
		return fmt.Errorf("list expired stories: %w", err)
	}

	for _, st := range expired {
		if err := s.resolve(ctx, st, now); err != nil {
			s.log.Warn().Err(err).
				Str("story_id", st.ID).
				Msg("sweep skipped story")
		}
	}
	return nil
}

func (s *Sweeper) resolve(ctx context.Context, st models.Story, now time.Time) error {
	autoArchive, err := s.owners.AutoArchiveEnabled(ctx, st.OwnerID)
	if err != nil {
		return fmt.Errorf("owner settings: %w", err)
	}
	if autoArchive {
		return s.stories.SetArchived(ctx, st.ID, true)
	}

	if st.DeletedAt != nil && now.Sub(*st.DeletedAt) < s.rules.SoftDeleteRetention {
		return nil
	}

	if st.Highlighted {
		return nil
	}

	if err := s.media.Delete(ctx, st.ObjectKey); err != nil {
		return fmt.Errorf("delete media %s: %w", st.ObjectKey, err)
	}
	if st.ThumbnailKey != "" {
		if err := s.media.Delete(ctx, st.ThumbnailKey); err != nil {
			return fmt.Errorf("delete thumbnail %s: %w", st.ThumbnailKey, err)
		}
	}

	if err := s.stories.Purge(ctx, st.ID); err != nil {
		return fmt.Errorf("purge story row: %w", err)
	}

	s.log.Debug().
		Str("story_id", st.ID).
		Str("owner_id", st.OwnerID).
		Msg("expired story purged")
	return nil
}
