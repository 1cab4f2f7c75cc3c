package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storygram/api/internal/apperr"
	"storygram/api/internal/cache"
	"storygram/api/internal/config"
	"storygram/api/internal/ids"
	"storygram/api/internal/ledger"
	"storygram/api/internal/lifecycle"
	"storygram/api/internal/models"
	"storygram/api/internal/privacy"
	"storygram/api/internal/repository"
	"storygram/api/internal/storage"
)

// thumbnailStream is consumed by the external processing worker; the
// service only enqueues.
const thumbnailStream = "media:thumbnails"

// viewRecordRetries bounds the compare-and-set loop on the viewer
// ledger before the view is dropped for this request.
const viewRecordRetries = 3

var allowedUploadTypes = map[string]models.MediaKind{
	"image/jpeg": models.MediaKindImage,
	"image/jpg":  models.MediaKindImage,
	"image/png":  models.MediaKindImage,
	"video/mp4":  models.MediaKindVideo,
	"video/mpeg": models.MediaKindVideo,
}

type StoryService struct {
	media

	db         *pgxpool.Pool
	stories    *repository.StoryRepository
	users      *repository.UserRepository
	engagement *repository.EngagementRepository
	access     *privacy.Evaluator
	queue      *redis.Client
	rules      lifecycle.Rules
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewStoryService(
	db *pgxpool.Pool,
	stories *repository.StoryRepository,
	users *repository.UserRepository,
	engagement *repository.EngagementRepository,
	access *privacy.Evaluator,
	store *storage.ObjectStore,
	urls *cache.URLCache,
	queue *redis.Client,
	rules lifecycle.Rules,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *StoryService {
	return &StoryService{
		media:      media{store: store, urls: urls},
		db:         db,
		stories:    stories,
		users:      users,
		engagement: engagement,
		access:     access,
		queue:      queue,
		rules:      rules,
		cfg:        cfg,
		log:        log,
	}
}

type PresignFileInput struct {
	Filename    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type PresignedUpload struct {
	Filename  string `json:"file_name"`
	ObjectKey string `json:"object_key"`
	UploadURL string `json:"upload_url"`
}

// Presign hands out time-limited upload URLs, one per file, under the
// caller's key prefix.
func (s *StoryService) Presign(ctx context.Context, userID string, files []PresignFileInput) ([]PresignedUpload, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	if len(files) == 0 {
		return nil, apperr.Validation("at least one file is required")
	}
	if len(files) > s.cfg.Limits.MaxPresignFiles {
		return nil, apperr.Validation("at most %d files per request", s.cfg.Limits.MaxPresignFiles)
	}

	uploads := make([]PresignedUpload, 0, len(files))
	for _, f := range files {
		if f.Filename == "" {
			return nil, apperr.Validation("file_name is required")
		}
		if _, ok := allowedUploadTypes[strings.ToLower(f.ContentType)]; !ok {
			return nil, apperr.Validation("unsupported content type %q", f.ContentType)
		}

		key := fmt.Sprintf("%s/%s/%s_%s", s.cfg.Storage.StoryPrefix, userID, uuid.NewString(), path.Base(f.Filename))
		url, err := s.store.PresignedPut(ctx, key)
		if err != nil {
			return nil, apperr.Upstream(storage.FailureType(err), err)
		}
		uploads = append(uploads, PresignedUpload{
			Filename:  f.Filename,
			ObjectKey: key,
			UploadURL: url,
		})
	}
	return uploads, nil
}

type InteractiveStickerInput struct {
	Kind          models.StickerKind     `json:"type"`
	QuestionText  string                 `json:"question"`
	Options       []string               `json:"options,omitempty"`
	CorrectOption *int                   `json:"correct_option,omitempty"`
	EmojiIcon     string                 `json:"emoji_icon,omitempty"`
	Position      models.StickerPosition `json:"position"`
}

type ConfirmStoryInput struct {
	UserID       string
	ObjectKey    string
	Privacy      models.Privacy
	Caption      string
	Location     *models.GeoTag
	Mentions     []string
	Hashtags     []string
	Music        *models.MusicRef
	Stickers     []models.OverlaySticker
	Interactive  []InteractiveStickerInput
	AllowReplies bool
	AllowSharing bool
}

// Confirm turns an uploaded object into a live story: the object is
// head-validated against the size ceilings, stickers are checked, the
// thumbnail is derived, and the row plus its interactive stickers are
// inserted in one transaction. A failed insert deletes the upload.
func (s *StoryService) Confirm(ctx context.Context, input ConfirmStoryInput) (StoryView, error) {
	if input.UserID == "" {
		return StoryView{}, apperr.Validation("user_id is required")
	}
	if input.ObjectKey == "" {
		return StoryView{}, apperr.Validation("object_key is required")
	}
	if input.Privacy == "" {
		input.Privacy = models.PrivacyPublic
	}
	if !input.Privacy.Valid() {
		return StoryView{}, apperr.Validation("invalid privacy %q", input.Privacy)
	}
	if err := validateOverlayStickers(input.Stickers); err != nil {
		return StoryView{}, err
	}
	if err := validateInteractiveStickers(input.Interactive); err != nil {
		return StoryView{}, err
	}

	info, err := s.store.Head(ctx, input.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return StoryView{}, apperr.NotFound("uploaded object %q not found", input.ObjectKey)
		}
		return StoryView{}, apperr.Upstream(storage.FailureType(err), err)
	}

	kind, ok := allowedUploadTypes[strings.ToLower(info.ContentType)]
	if !ok {
		s.removeObjects(ctx, input.ObjectKey)
		return StoryView{}, apperr.Validation("unsupported content type %q", info.ContentType)
	}

	maxBytes := s.cfg.Limits.ImageMaxBytes
	if kind == models.MediaKindVideo {
		maxBytes = s.cfg.Limits.VideoMaxBytes
	}
	if info.SizeBytes > maxBytes {
		s.removeObjects(ctx, input.ObjectKey)
		return StoryView{}, apperr.Validation("%s exceeds the %d byte limit", kind, maxBytes)
	}

	now := time.Now().UTC()
	st := models.Story{
		ID:           ids.New(),
		OwnerID:      input.UserID,
		ObjectKey:    input.ObjectKey,
		Filename:     path.Base(input.ObjectKey),
		ContentType:  info.ContentType,
		SizeBytes:    info.SizeBytes,
		MediaKind:    kind,
		Privacy:      input.Privacy,
		Caption:      input.Caption,
		Location:     input.Location,
		Mentions:     input.Mentions,
		Hashtags:     input.Hashtags,
		Music:        input.Music,
		Stickers:     input.Stickers,
		AllowReplies: input.AllowReplies,
		AllowSharing: input.AllowSharing,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.rules.StoryTTL),
	}

	// Images get a server-side copy as their thumbnail; videos go to the
	// processing stream and the key is filled in by the worker.
	if kind == models.MediaKindImage {
		thumbKey := fmt.Sprintf("%s/%s/%s", s.cfg.Storage.ThumbnailPrefix, input.UserID, st.Filename)
		if err := s.store.Copy(ctx, st.ObjectKey, thumbKey, info.ContentType); err != nil {
			s.log.Warn().Err(err).Str("object_key", st.ObjectKey).Msg("thumbnail copy failed")
		} else {
			st.ThumbnailKey = thumbKey
		}
	}

	interactive := make([]models.InteractiveSticker, 0, len(input.Interactive))
	for _, in := range input.Interactive {
		interactive = append(interactive, models.InteractiveSticker{
			ID:            ids.New(),
			StoryID:       st.ID,
			Kind:          in.Kind,
			QuestionText:  in.QuestionText,
			Options:       in.Options,
			CorrectOption: in.CorrectOption,
			EmojiIcon:     in.EmojiIcon,
			Position:      in.Position,
			CreatedAt:     now,
		})
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.stories.WithTx(tx).Create(ctx, st); err != nil {
			return fmt.Errorf("insert story: %w", err)
		}
		txEngagement := s.engagement.WithTx(tx)
		for _, sticker := range interactive {
			if err := txEngagement.InsertSticker(ctx, sticker); err != nil {
				return fmt.Errorf("insert sticker: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.removeObjects(ctx, st.ObjectKey, st.ThumbnailKey)
		return StoryView{}, apperr.Internal(err)
	}

	if kind == models.MediaKindVideo {
		if err := s.enqueueThumbnail(ctx, st); err != nil {
			s.log.Warn().Err(err).Str("story_id", st.ID).Msg("enqueue thumbnail failed")
		}
	}

	s.log.Info().
		Str("story_id", st.ID).
		Str("owner_id", st.OwnerID).
		Str("media_type", string(st.MediaKind)).
		Msg("story created")

	return s.storyView(ctx, st, input.UserID)
}

// ListUserStories returns an author's active stories visible to the
// viewer, recording a view on each one handed out.
func (s *StoryService) ListUserStories(ctx context.Context, viewerID, ownerID string) ([]StoryView, error) {
	if viewerID == "" {
		return nil, apperr.Validation("viewer_id is required")
	}
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user %q not found", ownerID)
		}
		return nil, apperr.Internal(err)
	}

	now := time.Now().UTC()
	stories, err := s.stories.ListActiveByOwner(ctx, ownerID, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	views := make([]StoryView, 0, len(stories))
	for _, st := range stories {
		ok, err := s.access.CanView(ctx, viewerID, st)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !ok {
			continue
		}

		if viewerID != st.OwnerID {
			if recorded, err := recordView(ctx, s.stories, &st, viewerID); err != nil {
				s.log.Warn().Err(err).Str("story_id", st.ID).Msg("view record dropped")
			} else if recorded {
				s.log.Debug().Str("story_id", st.ID).Str("viewer_id", viewerID).Msg("view recorded")
			}
		}

		view, err := s.storyView(ctx, st, viewerID)
		if err != nil {
			return nil, err
		}
		if viewerID == st.OwnerID {
			details, err := s.engagement.ListViewerDetails(ctx, st.ID, ledger.WithoutOwner(st))
			if err != nil {
				return nil, apperr.Internal(err)
			}
			comments, err := s.engagement.ListComments(ctx, st.ID)
			if err != nil {
				return nil, apperr.Internal(err)
			}
			attachEngagement(&view, details, comments)
		}
		views = append(views, view)
	}
	return views, nil
}

// Viewers is the owner's sheet for one story: the ordered ledger
// enriched with profiles and reactions.
func (s *StoryService) Viewers(ctx context.Context, userID, storyID string) ([]ViewerDetailView, int, error) {
	st, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return nil, 0, err
	}
	details, err := s.engagement.ListViewerDetails(ctx, st.ID, ledger.WithoutOwner(st))
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return viewerDetailViews(details), ledger.ViewCount(st), nil
}

// Delete soft-deletes an owned story. The media stays until the
// retention window lapses.
func (s *StoryService) Delete(ctx context.Context, userID, storyID string) error {
	st, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	s.rules.SoftDelete(&st, now)
	if err := s.stories.UpdateLifecycle(ctx, st); err != nil {
		return apperr.Internal(err)
	}
	s.urls.Invalidate(ctx, st.ObjectKey, st.ThumbnailKey)

	s.log.Info().Str("story_id", st.ID).Str("owner_id", userID).Msg("story soft-deleted")
	return nil
}

// Archive moves an owned story into the archive, keeping it past expiry.
func (s *StoryService) Archive(ctx context.Context, userID, storyID string) error {
	st, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return err
	}

	if err := s.rules.Archive(&st); err != nil {
		return apperr.Validation("story is already archived")
	}
	if err := s.stories.SetArchived(ctx, st.ID, true); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *StoryService) ownedStory(ctx context.Context, userID, storyID string) (models.Story, error) {
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

func (s *StoryService) removeObjects(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("object_key", key).Msg("object cleanup failed")
		}
	}
	s.urls.Invalidate(ctx, keys...)
}

func (s *StoryService) enqueueThumbnail(ctx context.Context, st models.Story) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: thumbnailStream,
		Values: map[string]any{
			"type":     "thumbnail",
			"storyId":  st.ID,
			"object":   st.ObjectKey,
			"owner":    st.OwnerID,
			"mimeType": st.ContentType,
		},
	}).Result()
	return err
}

func validateOverlayStickers(stickers []models.OverlaySticker) error {
	countdowns, links := 0, 0
	for _, sticker := range stickers {
		switch sticker.Kind {
		case models.StickerCountdown:
			countdowns++
			if sticker.Date == "" || sticker.Time == "" {
				return apperr.Validation("countdown sticker requires date and time")
			}
		case models.StickerLink:
			links++
			if sticker.Link == "" {
				return apperr.Validation("link sticker requires a link")
			}
		default:
			return apperr.Validation("unsupported overlay sticker type %q", sticker.Kind)
		}
	}
	if countdowns > 1 {
		return apperr.Validation("at most one countdown sticker per story")
	}
	if links > 1 {
		return apperr.Validation("at most one link sticker per story")
	}
	return nil
}

func validateInteractiveStickers(stickers []InteractiveStickerInput) error {
	for _, sticker := range stickers {
		switch sticker.Kind {
		case models.StickerPoll:
			if sticker.QuestionText == "" || len(sticker.Options) < 2 {
				return apperr.Validation("poll sticker requires a question and at least two options")
			}
		case models.StickerQuiz:
			if sticker.QuestionText == "" || len(sticker.Options) < 2 {
				return apperr.Validation("quiz sticker requires a question and at least two options")
			}
			if sticker.CorrectOption == nil || *sticker.CorrectOption < 0 || *sticker.CorrectOption >= len(sticker.Options) {
				return apperr.Validation("quiz sticker requires a valid correct option")
			}
		case models.StickerSlider:
			if sticker.QuestionText == "" {
				return apperr.Validation("slider sticker requires a question")
			}
		default:
			return apperr.Validation("unsupported interactive sticker type %q", sticker.Kind)
		}
	}
	return nil
}
