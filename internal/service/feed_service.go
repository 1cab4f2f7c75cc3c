package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"storygram/api/internal/apperr"
	"storygram/api/internal/feed"
	"storygram/api/internal/models"
	"storygram/api/internal/repository"
)

// feedStore adapts the repositories to the composer's read surface.
type feedStore struct {
	stories *repository.StoryRepository
	social  *repository.SocialRepository
}

func (f feedStore) FeedAuthors(ctx context.Context, viewerID string) ([]models.User, error) {
	return f.social.FeedAuthors(ctx, viewerID)
}

func (f feedStore) ActiveStories(ctx context.Context, authorID string, now time.Time) ([]models.Story, error) {
	return f.stories.ListActiveByOwner(ctx, authorID, now)
}

func (f feedStore) LatestOwnStory(ctx context.Context, ownerID string) (models.Story, bool, error) {
	return f.stories.LatestNonArchived(ctx, ownerID)
}

func (f feedStore) IsAcceptedFollower(ctx context.Context, followerID, ownerID string) (bool, error) {
	return f.social.IsAcceptedFollower(ctx, followerID, ownerID)
}

func (f feedStore) IsCloseFriend(ctx context.Context, ownerID, friendID string) (bool, error) {
	return f.social.IsCloseFriend(ctx, ownerID, friendID)
}

type FeedService struct {
	users    *repository.UserRepository
	composer *feed.Composer
	log      zerolog.Logger
}

func NewFeedService(
	stories *repository.StoryRepository,
	social *repository.SocialRepository,
	users *repository.UserRepository,
	defaultLimit, maxLimit int,
	log zerolog.Logger,
) *FeedService {
	return &FeedService{
		users:    users,
		composer: feed.NewComposer(feedStore{stories: stories, social: social}, defaultLimit, maxLimit),
		log:      log,
	}
}

// Feed builds one page of the viewer's story tray.
func (s *FeedService) Feed(ctx context.Context, viewerID string, limit int, cursor string) (feed.Page, error) {
	if viewerID == "" {
		return feed.Page{}, apperr.Validation("viewer_id is required")
	}
	if cursor != "" {
		if _, err := feed.ParseCursor(cursor); err != nil {
			return feed.Page{}, apperr.Validation("invalid cursor")
		}
	}

	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return feed.Page{}, apperr.NotFound("user %q not found", viewerID)
		}
		return feed.Page{}, apperr.Internal(err)
	}

	page, err := s.composer.Compose(ctx, viewer, limit, cursor, time.Now().UTC())
	if err != nil {
		return feed.Page{}, apperr.Internal(err)
	}
	return page, nil
}
