package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"storygram/api/internal/apperr"
	"storygram/api/internal/cache"
	"storygram/api/internal/ledger"
	"storygram/api/internal/lifecycle"
	"storygram/api/internal/models"
	"storygram/api/internal/repository"
	"storygram/api/internal/storage"
)

// ArchiveService owns the two owner-only post-expiry surfaces: the
// archive and the recently-deleted window.
type ArchiveService struct {
	media

	stories    *repository.StoryRepository
	engagement *repository.EngagementRepository
	rules      lifecycle.Rules
	log        zerolog.Logger
}

func NewArchiveService(
	stories *repository.StoryRepository,
	engagement *repository.EngagementRepository,
	store *storage.ObjectStore,
	urls *cache.URLCache,
	rules lifecycle.Rules,
	log zerolog.Logger,
) *ArchiveService {
	return &ArchiveService{
		media:      media{store: store, urls: urls},
		stories:    stories,
		engagement: engagement,
		rules:      rules,
		log:        log,
	}
}

func (s *ArchiveService) ListArchived(ctx context.Context, userID string) ([]StoryView, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	stories, err := s.stories.ListArchivedByOwner(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.views(ctx, stories, userID)
}

// ArchivedStory is the owner's detail view of one archived story:
// viewer sheet, reaction tally and reply count included.
func (s *ArchiveService) ArchivedStory(ctx context.Context, userID, storyID string) (StoryView, error) {
	st, err := s.ownedInState(ctx, userID, storyID, lifecycle.StateArchived)
	if err != nil {
		return StoryView{}, err
	}

	view, err := s.storyView(ctx, st, userID)
	if err != nil {
		return StoryView{}, err
	}
	details, err := s.engagement.ListViewerDetails(ctx, st.ID, ledger.WithoutOwner(st))
	if err != nil {
		return StoryView{}, apperr.Internal(err)
	}
	comments, err := s.engagement.ListComments(ctx, st.ID)
	if err != nil {
		return StoryView{}, apperr.Internal(err)
	}
	attachEngagement(&view, details, comments)
	return view, nil
}

// Unarchive takes a story out of the archive straight into the
// recently-deleted window; there is no path back to Active.
func (s *ArchiveService) Unarchive(ctx context.Context, userID, storyID string) error {
	st, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.rules.UnarchiveToDelete(&st, now); err != nil {
		return apperr.Validation("story is not archived")
	}
	if err := s.stories.UpdateLifecycle(ctx, st); err != nil {
		return apperr.Internal(err)
	}

	s.log.Info().Str("story_id", st.ID).Str("owner_id", userID).Msg("story unarchived into trash")
	return nil
}

// ListTrash lists stories still inside the soft-delete retention window.
func (s *ArchiveService) ListTrash(ctx context.Context, userID string) ([]StoryView, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	since := time.Now().UTC().Add(-s.rules.SoftDeleteRetention)
	stories, err := s.stories.ListRecentlyDeleted(ctx, userID, since)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.views(ctx, stories, userID)
}

// Restore brings a soft-deleted story back to life with its original
// expiry recomputed from creation time.
func (s *ArchiveService) Restore(ctx context.Context, userID, storyID string) (StoryView, error) {
	st, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return StoryView{}, err
	}

	now := time.Now().UTC()
	if err := s.rules.Restore(&st, now); err != nil {
		return StoryView{}, apperr.Validation("story is not in recently deleted")
	}
	if err := s.stories.UpdateLifecycle(ctx, st); err != nil {
		return StoryView{}, apperr.Internal(err)
	}

	s.log.Info().Str("story_id", st.ID).Str("owner_id", userID).Msg("story restored")
	return s.storyView(ctx, st, userID)
}

// PermanentDelete destroys a soft-deleted story outright: media first,
// thumbnail second, row last. A failed media delete aborts before the
// row is touched so the objects can never be orphaned by a purged row.
func (s *ArchiveService) PermanentDelete(ctx context.Context, userID, storyID string) error {
	st, err := s.ownedInState(ctx, userID, storyID, lifecycle.StateSoftDeleted)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, st.ObjectKey); err != nil {
		return apperr.Upstream(storage.FailureType(err), err)
	}
	if st.ThumbnailKey != "" {
		if err := s.store.Delete(ctx, st.ThumbnailKey); err != nil {
			return apperr.Upstream(storage.FailureType(err), err)
		}
	}
	s.urls.Invalidate(ctx, st.ObjectKey, st.ThumbnailKey)

	if err := s.stories.Purge(ctx, st.ID); err != nil {
		return apperr.Internal(err)
	}

	s.log.Info().Str("story_id", st.ID).Str("owner_id", userID).Msg("story permanently deleted")
	return nil
}

func (s *ArchiveService) views(ctx context.Context, stories []models.Story, viewerID string) ([]StoryView, error) {
	views := make([]StoryView, 0, len(stories))
	for _, st := range stories {
		view, err := s.storyView(ctx, st, viewerID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *ArchiveService) ownedStory(ctx context.Context, userID, storyID string) (models.Story, error) {
	if userID == "" {
		return models.Story{}, apperr.Validation("user_id is required")
	}
	st, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, repository.ErrStoryNotFound) {
			return models.Story{}, apperr.NotFound("story %q not found", storyID)
		}
		return models.Story{}, apperr.Internal(err)
	}
	if st.OwnerID != userID {
		return models.Story{}, apperr.Forbidden("you do not own this story")
	}
	return st, nil
}

func (s *ArchiveService) ownedInState(ctx context.Context, userID, storyID string, want lifecycle.State) (models.Story, error) {
	st, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return models.Story{}, err
	}
	if s.rules.StateOf(st, time.Now().UTC()) != want {
		return models.Story{}, apperr.NotFound("story %q not found in %s", storyID, want)
	}
	return st, nil
}
