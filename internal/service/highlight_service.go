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
	"github.com/rs/zerolog"

	"storygram/api/internal/apperr"
	"storygram/api/internal/cache"
	"storygram/api/internal/config"
	"storygram/api/internal/highlights"
	"storygram/api/internal/lifecycle"
	"storygram/api/internal/models"
	"storygram/api/internal/privacy"
	"storygram/api/internal/repository"
	"storygram/api/internal/storage"
)

// HighlightService orchestrates highlight folders: the ordered
// collections themselves, the highlight tag on their stories, and the
// purge that removing the last protection can trigger.
type HighlightService struct {
	media

	db         *pgxpool.Pool
	stories    *repository.StoryRepository
	highlights *repository.HighlightRepository
	access     *privacy.Evaluator
	rules      lifecycle.Rules
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewHighlightService(
	db *pgxpool.Pool,
	stories *repository.StoryRepository,
	highlightRepo *repository.HighlightRepository,
	access *privacy.Evaluator,
	store *storage.ObjectStore,
	urls *cache.URLCache,
	rules lifecycle.Rules,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *HighlightService {
	return &HighlightService{
		media:      media{store: store, urls: urls},
		db:         db,
		stories:    stories,
		highlights: highlightRepo,
		access:     access,
		rules:      rules,
		cfg:        cfg,
		log:        log,
	}
}

type HighlightFolderView struct {
	Name          string `json:"name"`
	CoverImageKey string `json:"cover_image_key"`
	CoverURL      string `json:"cover_url,omitempty"`
	StoryCount    int    `json:"story_count"`
	Archived      bool   `json:"archived,omitempty"`
}

type HighlightMemberView struct {
	HighlightID string    `json:"highlight_id"`
	Order       int       `json:"order"`
	Story       StoryView `json:"story"`
}

type CreateFolderInput struct {
	UserID        string
	Name          string
	CoverImageKey string
	StoryIDs      []string
}

// CreateFolder seeds a new named folder from the given stories, in the
// given sequence. Each story gains the highlight protection tag.
func (s *HighlightService) CreateFolder(ctx context.Context, input CreateFolderInput) (HighlightFolderView, error) {
	if input.UserID == "" {
		return HighlightFolderView{}, apperr.Validation("user_id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return HighlightFolderView{}, apperr.Validation("folder name is required")
	}
	if input.CoverImageKey == "" {
		return HighlightFolderView{}, apperr.Validation("cover_image_key is required")
	}
	if len(input.StoryIDs) == 0 {
		return HighlightFolderView{}, apperr.Validation("at least one story is required")
	}
	for _, storyID := range input.StoryIDs {
		if _, err := s.ownedStory(ctx, input.UserID, storyID); err != nil {
			return HighlightFolderView{}, err
		}
	}

	key := models.HighlightGroupKey{
		OwnerID:       input.UserID,
		Name:          input.Name,
		CoverImageKey: input.CoverImageKey,
	}
	now := time.Now().UTC()

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		mgr := highlights.NewManager(s.highlights.WithTx(tx))
		if _, err := mgr.Create(ctx, key, input.StoryIDs, now); err != nil {
			return err
		}
		txStories := s.stories.WithTx(tx)
		for _, storyID := range input.StoryIDs {
			if err := txStories.SetHighlighted(ctx, storyID, true); err != nil {
				return fmt.Errorf("tag story %s: %w", storyID, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, highlights.ErrDuplicateName) {
			return HighlightFolderView{}, apperr.Validation("highlight folder %q already exists", input.Name)
		}
		return HighlightFolderView{}, apperr.Internal(err)
	}

	s.log.Info().Str("owner_id", input.UserID).Str("folder", input.Name).Int("stories", len(input.StoryIDs)).Msg("highlight folder created")
	return s.folderView(ctx, key, len(input.StoryIDs), false)
}

// AppendStory adds one owned story to the end of an existing folder.
func (s *HighlightService) AppendStory(ctx context.Context, userID, name, storyID string) (HighlightFolderView, error) {
	if _, err := s.ownedStory(ctx, userID, storyID); err != nil {
		return HighlightFolderView{}, err
	}
	members, err := s.folder(ctx, userID, name)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return HighlightFolderView{}, apperr.Validation("highlight folder %q does not exist", name)
		}
		return HighlightFolderView{}, err
	}
	key := groupKey(members[0])

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		mgr := highlights.NewManager(s.highlights.WithTx(tx))
		if _, err := mgr.Append(ctx, key, storyID, time.Now().UTC()); err != nil {
			return err
		}
		return s.stories.WithTx(tx).SetHighlighted(ctx, storyID, true)
	})
	if err != nil {
		if errors.Is(err, highlights.ErrGroupMissing) {
			return HighlightFolderView{}, apperr.Validation("highlight folder %q does not exist", name)
		}
		return HighlightFolderView{}, apperr.Internal(err)
	}
	return s.folderView(ctx, key, len(members)+1, members[0].Archived)
}

// RemoveByStory drops the folder member referencing the given story.
func (s *HighlightService) RemoveByStory(ctx context.Context, userID, storyID string) error {
	h, err := s.highlights.ByStory(ctx, storyID)
	if err != nil {
		if errors.Is(err, repository.ErrHighlightNotFound) {
			return apperr.NotFound("story %q is not highlighted", storyID)
		}
		return apperr.Internal(err)
	}
	if h.OwnerID != userID {
		return apperr.Forbidden("you do not own this highlight")
	}
	return s.removeMember(ctx, h)
}

// RemoveMember drops one folder member by highlight id.
func (s *HighlightService) RemoveMember(ctx context.Context, userID, highlightID string) error {
	h, err := s.highlights.ByID(ctx, userID, highlightID)
	if err != nil {
		if errors.Is(err, repository.ErrHighlightNotFound) {
			return apperr.NotFound("highlight %q not found", highlightID)
		}
		return apperr.Internal(err)
	}
	return s.removeMember(ctx, h)
}

// removeMember deletes the member, renumbers the folder, clears the
// story's highlight tag, then lets the story fall to purge if nothing
// protects it anymore.
func (s *HighlightService) removeMember(ctx context.Context, h models.Highlight) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		mgr := highlights.NewManager(s.highlights.WithTx(tx))
		if err := mgr.Remove(ctx, h); err != nil {
			return err
		}
		return s.stories.WithTx(tx).SetHighlighted(ctx, h.StoryID, false)
	})
	if err != nil {
		if errors.Is(err, repository.ErrStoryNotFound) {
			// Member without a story row: external corruption, the
			// folder entry is gone either way.
			s.log.Warn().Str("highlight_id", h.ID).Str("story_id", h.StoryID).Msg("highlight referenced missing story")
			return nil
		}
		return apperr.Internal(err)
	}

	s.purgeIfUnprotected(ctx, h.StoryID)
	return nil
}

// Folders lists the owner's non-archived folders.
func (s *HighlightService) Folders(ctx context.Context, userID string) ([]HighlightFolderView, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	reps, err := s.highlights.ListFolders(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.folderViews(ctx, reps)
}

// ArchivedFolders lists the owner's archived folders.
func (s *HighlightService) ArchivedFolders(ctx context.Context, userID string) ([]HighlightFolderView, error) {
	if userID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	reps, err := s.highlights.ListArchivedFolders(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.folderViews(ctx, reps)
}

// FolderDetail returns a folder's members in order, privacy-filtered
// for the viewer. Viewing records the viewer on each visible story.
func (s *HighlightService) FolderDetail(ctx context.Context, viewerID, ownerID, name string) ([]HighlightMemberView, error) {
	if viewerID == "" {
		return nil, apperr.Validation("viewer_id is required")
	}
	members, err := s.folder(ctx, ownerID, name)
	if err != nil {
		return nil, err
	}

	views := make([]HighlightMemberView, 0, len(members))
	for _, member := range members {
		st, err := s.stories.GetByID(ctx, member.StoryID)
		if err != nil {
			if errors.Is(err, repository.ErrStoryNotFound) {
				s.log.Warn().Str("highlight_id", member.ID).Str("story_id", member.StoryID).Msg("highlight referenced missing story")
				continue
			}
			return nil, apperr.Internal(err)
		}

		ok, err := s.access.CanView(ctx, viewerID, st)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !ok {
			continue
		}

		if viewerID != st.OwnerID {
			if _, err := recordView(ctx, s.stories, &st, viewerID); err != nil {
				s.log.Warn().Err(err).Str("story_id", st.ID).Msg("view record dropped")
			}
		}

		view, err := s.storyView(ctx, st, viewerID)
		if err != nil {
			return nil, err
		}
		views = append(views, HighlightMemberView{
			HighlightID: member.ID,
			Order:       member.Order,
			Story:       view,
		})
	}
	return views, nil
}

type EditFolderInput struct {
	UserID        string
	Name          string
	NewName       string
	CoverImageKey string
	StoryIDs      []string
}

// EditFolder replaces a folder's membership with the given selection and
// optionally renames it or swaps the cover. Selection order for new
// members is append order; existing members keep their positions.
func (s *HighlightService) EditFolder(ctx context.Context, input EditFolderInput) error {
	members, err := s.folder(ctx, input.UserID, input.Name)
	if err != nil {
		return err
	}
	key := groupKey(members[0])

	if len(input.StoryIDs) == 0 {
		return apperr.Validation("at least one story must remain selected")
	}

	selected := make(map[string]struct{}, len(input.StoryIDs))
	for _, storyID := range input.StoryIDs {
		selected[storyID] = struct{}{}
	}
	current := make(map[string]models.Highlight, len(members))
	for _, member := range members {
		current[member.StoryID] = member
	}

	var added, removed []string
	for _, storyID := range input.StoryIDs {
		if _, ok := current[storyID]; !ok {
			added = append(added, storyID)
		}
	}
	var dropped []models.Highlight
	for _, member := range members {
		if _, ok := selected[member.StoryID]; !ok {
			dropped = append(dropped, member)
			removed = append(removed, member.StoryID)
		}
	}

	for _, storyID := range added {
		if _, err := s.ownedStory(ctx, input.UserID, storyID); err != nil {
			return err
		}
	}

	newName := input.Name
	if input.NewName != "" && input.NewName != input.Name {
		newName = input.NewName
		if others, err := s.highlights.GroupByName(ctx, input.UserID, newName); err != nil {
			return apperr.Internal(err)
		} else if len(others) > 0 {
			return apperr.Validation("highlight folder %q already exists", newName)
		}
	}
	newCover := key.CoverImageKey
	if input.CoverImageKey != "" {
		newCover = input.CoverImageKey
	}

	now := time.Now().UTC()
	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		mgr := highlights.NewManager(s.highlights.WithTx(tx))
		txStories := s.stories.WithTx(tx)

		for _, storyID := range added {
			if _, err := mgr.Append(ctx, key, storyID, now); err != nil {
				return err
			}
			if err := txStories.SetHighlighted(ctx, storyID, true); err != nil {
				return fmt.Errorf("tag story %s: %w", storyID, err)
			}
		}
		// One member at a time: the density invariant holds after every
		// intermediate removal.
		for _, member := range dropped {
			fresh, err := s.highlights.WithTx(tx).ByID(ctx, member.OwnerID, member.ID)
			if err != nil {
				return err
			}
			if err := mgr.Remove(ctx, fresh); err != nil {
				return err
			}
			if err := txStories.SetHighlighted(ctx, member.StoryID, false); err != nil {
				return fmt.Errorf("untag story %s: %w", member.StoryID, err)
			}
		}

		if newName != key.Name || newCover != key.CoverImageKey {
			if err := mgr.Rename(ctx, key, newName, newCover); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Internal(err)
	}

	for _, storyID := range removed {
		s.purgeIfUnprotected(ctx, storyID)
	}
	return nil
}

// DeleteFolder removes a whole folder: the shared cover object first,
// then the members, then every underlying story left without
// protection. The cover goes before the rows because a purged row is
// the last reference to its key; a refused delete aborts here so a
// retry can still find the object.
func (s *HighlightService) DeleteFolder(ctx context.Context, userID, name string) error {
	members, err := s.folder(ctx, userID, name)
	if err != nil {
		return err
	}
	key := groupKey(members[0])

	if err := s.store.Delete(ctx, key.CoverImageKey); err != nil {
		return apperr.Upstream(storage.FailureType(err), err)
	}
	s.urls.Invalidate(ctx, key.CoverImageKey)

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := s.highlights.WithTx(tx).DeleteGroup(ctx, key); err != nil {
			return err
		}
		txStories := s.stories.WithTx(tx)
		for _, member := range members {
			if err := txStories.SetHighlighted(ctx, member.StoryID, false); err != nil && !errors.Is(err, repository.ErrStoryNotFound) {
				return fmt.Errorf("untag story %s: %w", member.StoryID, err)
			}
		}
		return nil
	})
	if err != nil {
		return apperr.Internal(err)
	}

	for _, member := range members {
		s.purgeIfUnprotected(ctx, member.StoryID)
	}

	s.log.Info().Str("owner_id", userID).Str("folder", name).Msg("highlight folder deleted")
	return nil
}

func (s *HighlightService) ArchiveFolder(ctx context.Context, userID, name string) error {
	return s.setFolderArchived(ctx, userID, name, true)
}

func (s *HighlightService) UnarchiveFolder(ctx context.Context, userID, name string) error {
	return s.setFolderArchived(ctx, userID, name, false)
}

func (s *HighlightService) setFolderArchived(ctx context.Context, userID, name string, archived bool) error {
	members, err := s.folder(ctx, userID, name)
	if err != nil {
		return err
	}
	if err := s.highlights.SetArchived(ctx, groupKey(members[0]), archived); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// PickerPayload backs the folder editor: the folder's current selection
// plus every archived story still available to highlight.
type PickerPayload struct {
	SelectedStoryIDs []string    `json:"selected_story_ids"`
	Available        []StoryView `json:"available"`
}

func (s *HighlightService) Picker(ctx context.Context, userID, name string) (PickerPayload, error) {
	if userID == "" {
		return PickerPayload{}, apperr.Validation("user_id is required")
	}

	payload := PickerPayload{SelectedStoryIDs: []string{}}
	if name != "" {
		members, err := s.highlights.GroupByName(ctx, userID, name)
		if err != nil {
			return PickerPayload{}, apperr.Internal(err)
		}
		for _, member := range members {
			payload.SelectedStoryIDs = append(payload.SelectedStoryIDs, member.StoryID)
		}
	}

	available, err := s.stories.ListArchivedNotHighlighted(ctx, userID)
	if err != nil {
		return PickerPayload{}, apperr.Internal(err)
	}
	payload.Available = make([]StoryView, 0, len(available))
	for _, st := range available {
		view, err := s.storyView(ctx, st, userID)
		if err != nil {
			return PickerPayload{}, err
		}
		payload.Available = append(payload.Available, view)
	}
	return payload, nil
}

// CoverPresign hands out an upload URL for a folder cover image.
func (s *HighlightService) CoverPresign(ctx context.Context, userID, filename, contentType string) (PresignedUpload, error) {
	if userID == "" {
		return PresignedUpload{}, apperr.Validation("user_id is required")
	}
	if filename == "" {
		return PresignedUpload{}, apperr.Validation("file_name is required")
	}
	if kind, ok := allowedUploadTypes[strings.ToLower(contentType)]; !ok || kind != models.MediaKindImage {
		return PresignedUpload{}, apperr.Validation("cover must be an image")
	}

	key := fmt.Sprintf("%s/%s/%s_%s", s.cfg.Storage.CoverPrefix, userID, uuid.NewString(), path.Base(filename))
	url, err := s.store.PresignedPut(ctx, key)
	if err != nil {
		return PresignedUpload{}, apperr.Upstream(storage.FailureType(err), err)
	}
	return PresignedUpload{Filename: filename, ObjectKey: key, UploadURL: url}, nil
}

// DefaultCover derives a folder cover from one of the owner's stories:
// the media itself for images, the worker-produced thumbnail for videos.
func (s *HighlightService) DefaultCover(ctx context.Context, userID, storyID string) (HighlightFolderView, error) {
	st, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return HighlightFolderView{}, err
	}

	srcKey := st.ObjectKey
	contentType := st.ContentType
	if st.MediaKind == models.MediaKindVideo {
		if st.ThumbnailKey == "" {
			return HighlightFolderView{}, apperr.Validation("story thumbnail is not ready yet")
		}
		srcKey = st.ThumbnailKey
		contentType = ""
	}

	coverKey := fmt.Sprintf("%s/%s/%s_%s", s.cfg.Storage.CoverPrefix, userID, uuid.NewString(), path.Base(srcKey))
	if err := s.store.Copy(ctx, srcKey, coverKey, contentType); err != nil {
		return HighlightFolderView{}, apperr.Upstream(storage.FailureType(err), err)
	}

	coverURL, err := s.presign(ctx, coverKey)
	if err != nil {
		return HighlightFolderView{}, err
	}
	return HighlightFolderView{CoverImageKey: coverKey, CoverURL: coverURL}, nil
}

// purgeIfUnprotected destroys a story whose last protection just fell
// away: media first, then thumbnail, then the row. Failures are left for
// the sweep to retry.
func (s *HighlightService) purgeIfUnprotected(ctx context.Context, storyID string) {
	st, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		if !errors.Is(err, repository.ErrStoryNotFound) {
			s.log.Warn().Err(err).Str("story_id", storyID).Msg("purge check failed")
		}
		return
	}
	if !s.rules.PurgeEligible(st, time.Now().UTC()) {
		return
	}

	if err := s.store.Delete(ctx, st.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("story_id", st.ID).Msg("media delete failed, left for sweep")
		return
	}
	if st.ThumbnailKey != "" {
		if err := s.store.Delete(ctx, st.ThumbnailKey); err != nil {
			s.log.Warn().Err(err).Str("story_id", st.ID).Msg("thumbnail delete failed, left for sweep")
			return
		}
	}
	s.urls.Invalidate(ctx, st.ObjectKey, st.ThumbnailKey)

	if err := s.stories.Purge(ctx, st.ID); err != nil {
		s.log.Warn().Err(err).Str("story_id", st.ID).Msg("purge failed, left for sweep")
		return
	}
	s.log.Debug().Str("story_id", st.ID).Msg("unprotected story purged")
}

func (s *HighlightService) folder(ctx context.Context, ownerID, name string) ([]models.Highlight, error) {
	if ownerID == "" {
		return nil, apperr.Validation("user_id is required")
	}
	if name == "" {
		return nil, apperr.Validation("folder name is required")
	}
	members, err := s.highlights.GroupByName(ctx, ownerID, name)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(members) == 0 {
		return nil, apperr.NotFound("highlight folder %q not found", name)
	}
	return members, nil
}

func (s *HighlightService) folderViews(ctx context.Context, reps []models.Highlight) ([]HighlightFolderView, error) {
	views := make([]HighlightFolderView, 0, len(reps))
	for _, rep := range reps {
		members, err := s.highlights.GroupByName(ctx, rep.OwnerID, rep.Name)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		view, err := s.folderView(ctx, groupKey(rep), len(members), rep.Archived)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *HighlightService) folderView(ctx context.Context, key models.HighlightGroupKey, count int, archived bool) (HighlightFolderView, error) {
	coverURL, err := s.presign(ctx, key.CoverImageKey)
	if err != nil {
		return HighlightFolderView{}, err
	}
	return HighlightFolderView{
		Name:          key.Name,
		CoverImageKey: key.CoverImageKey,
		CoverURL:      coverURL,
		StoryCount:    count,
		Archived:      archived,
	}, nil
}

func (s *HighlightService) ownedStory(ctx context.Context, userID, storyID string) (models.Story, error) {
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

func groupKey(h models.Highlight) models.HighlightGroupKey {
	return models.HighlightGroupKey{
		OwnerID:       h.OwnerID,
		Name:          h.Name,
		CoverImageKey: h.CoverImageKey,
	}
}
