package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storygram/api/internal/apperr"
	"storygram/api/internal/ids"
	"storygram/api/internal/lifecycle"
	"storygram/api/internal/models"
	"storygram/api/internal/privacy"
	"storygram/api/internal/repository"
)

// EngagementService guards reactions, comments and interactive sticker
// responses behind the privacy tier table. Owners never interact with
// their own stories.
type EngagementService struct {
	stories    *repository.StoryRepository
	engagement *repository.EngagementRepository
	access     *privacy.Evaluator
	rules      lifecycle.Rules
	log        zerolog.Logger
}

func NewEngagementService(
	stories *repository.StoryRepository,
	engagement *repository.EngagementRepository,
	access *privacy.Evaluator,
	rules lifecycle.Rules,
	log zerolog.Logger,
) *EngagementService {
	return &EngagementService{
		stories:    stories,
		engagement: engagement,
		access:     access,
		rules:      rules,
		log:        log,
	}
}

// React records or replaces the user's reaction on a story.
func (s *EngagementService) React(ctx context.Context, userID, storyID, reactionType string) error {
	if strings.TrimSpace(reactionType) == "" {
		return apperr.Validation("reaction_type is required")
	}
	st, err := s.interactableStory(ctx, userID, storyID, "react to")
	if err != nil {
		return err
	}

	re := models.Reaction{
		ID:           ids.New(),
		StoryID:      st.ID,
		UserID:       userID,
		ReactionType: reactionType,
		ReactedAt:    time.Now().UTC(),
	}
	if err := s.engagement.UpsertReaction(ctx, re); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *EngagementService) Unreact(ctx context.Context, userID, storyID string) error {
	if _, err := s.activeStory(ctx, storyID); err != nil {
		return err
	}
	if err := s.engagement.DeleteReaction(ctx, storyID, userID); err != nil {
		if errors.Is(err, repository.ErrReactionNotFound) {
			return apperr.NotFound("reaction not found")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *EngagementService) Comment(ctx context.Context, userID, storyID, text string) (models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, apperr.Validation("comment text is required")
	}
	st, err := s.interactableStory(ctx, userID, storyID, "comment on")
	if err != nil {
		return models.Comment{}, err
	}
	if !st.AllowReplies {
		return models.Comment{}, apperr.Validation("replies are disabled for this story")
	}

	c := models.Comment{
		ID:        ids.New(),
		StoryID:   st.ID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.engagement.InsertComment(ctx, c); err != nil {
		return models.Comment{}, apperr.Internal(err)
	}
	return c, nil
}

// VotePoll records the user's single vote on the story's poll sticker.
func (s *EngagementService) VotePoll(ctx context.Context, userID, storyID string, option int) error {
	sticker, err := s.stickerForResponse(ctx, userID, storyID, models.StickerPoll, "vote on")
	if err != nil {
		return err
	}
	if option < 0 || option >= len(sticker.Options) {
		return apperr.Validation("option %d is out of range", option)
	}
	return s.insertResponse(ctx, sticker.ID, userID, models.StickerResponse{SelectedOption: &option}, "voted")
}

// AnswerQuiz records the user's single answer and reports correctness.
func (s *EngagementService) AnswerQuiz(ctx context.Context, userID, storyID string, option int) (bool, error) {
	sticker, err := s.stickerForResponse(ctx, userID, storyID, models.StickerQuiz, "answer")
	if err != nil {
		return false, err
	}
	if option < 0 || option >= len(sticker.Options) {
		return false, apperr.Validation("option %d is out of range", option)
	}
	if err := s.insertResponse(ctx, sticker.ID, userID, models.StickerResponse{SelectedOption: &option}, "answered"); err != nil {
		return false, err
	}
	correct := sticker.CorrectOption != nil && *sticker.CorrectOption == option
	return correct, nil
}

// RespondSlider records the user's slider value in [0, 1].
func (s *EngagementService) RespondSlider(ctx context.Context, userID, storyID string, value float64) error {
	if value < 0 || value > 1 {
		return apperr.Validation("slider value must be between 0 and 1")
	}
	sticker, err := s.stickerForResponse(ctx, userID, storyID, models.StickerSlider, "respond to")
	if err != nil {
		return err
	}
	return s.insertResponse(ctx, sticker.ID, userID, models.StickerResponse{SliderValue: &value}, "responded")
}

// StickerResults aggregates interactive sticker responses for the
// story's owner: per-option counts for polls and quizzes, average and
// count for sliders.
type StickerResult struct {
	StickerID     string             `json:"sticker_id"`
	Kind          models.StickerKind `json:"type"`
	QuestionText  string             `json:"question"`
	Options       []string           `json:"options,omitempty"`
	OptionCounts  []int              `json:"option_counts,omitempty"`
	CorrectOption *int               `json:"correct_option,omitempty"`
	SliderAverage float64            `json:"slider_average,omitempty"`
	ResponseCount int                `json:"response_count"`
}

func (s *EngagementService) StickerResults(ctx context.Context, userID, storyID string) ([]StickerResult, error) {
	st, err := s.activeStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if st.OwnerID != userID {
		return nil, apperr.Forbidden("only the owner can see sticker results")
	}

	stickers, err := s.engagement.ListStickers(ctx, storyID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	results := make([]StickerResult, 0, len(stickers))
	for _, sticker := range stickers {
		responses, err := s.engagement.ListResponses(ctx, sticker.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}

		result := StickerResult{
			StickerID:     sticker.ID,
			Kind:          sticker.Kind,
			QuestionText:  sticker.QuestionText,
			Options:       sticker.Options,
			CorrectOption: sticker.CorrectOption,
			ResponseCount: len(responses),
		}

		switch sticker.Kind {
		case models.StickerPoll, models.StickerQuiz:
			counts := make([]int, len(sticker.Options))
			for _, resp := range responses {
				if resp.SelectedOption != nil && *resp.SelectedOption >= 0 && *resp.SelectedOption < len(counts) {
					counts[*resp.SelectedOption]++
				}
			}
			result.OptionCounts = counts
		case models.StickerSlider:
			var sum float64
			n := 0
			for _, resp := range responses {
				if resp.SliderValue != nil {
					sum += *resp.SliderValue
					n++
				}
			}
			if n > 0 {
				result.SliderAverage = sum / float64(n)
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// activeStory loads a story that is still in the Active state; every
// other state reads as absent to engagement callers.
func (s *EngagementService) activeStory(ctx context.Context, storyID string) (models.Story, error) {
	st, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, repository.ErrStoryNotFound) {
			return models.Story{}, apperr.NotFound("story %q not found", storyID)
		}
		return models.Story{}, apperr.Internal(err)
	}
	if s.rules.StateOf(st, time.Now().UTC()) != lifecycle.StateActive {
		return models.Story{}, apperr.NotFound("story %q not found", storyID)
	}
	return st, nil
}

func (s *EngagementService) interactableStory(ctx context.Context, userID, storyID, verb string) (models.Story, error) {
	if userID == "" {
		return models.Story{}, apperr.Validation("user_id is required")
	}
	st, err := s.activeStory(ctx, storyID)
	if err != nil {
		return models.Story{}, err
	}
	if err := s.access.AuthorizeInteraction(ctx, userID, st, verb); err != nil {
		if _, ok := apperr.As(err); ok {
			return models.Story{}, err
		}
		return models.Story{}, apperr.Internal(err)
	}
	return st, nil
}

func (s *EngagementService) stickerForResponse(ctx context.Context, userID, storyID string, kind models.StickerKind, verb string) (models.InteractiveSticker, error) {
	st, err := s.interactableStory(ctx, userID, storyID, verb)
	if err != nil {
		return models.InteractiveSticker{}, err
	}

	stickers, err := s.engagement.ListStickers(ctx, st.ID)
	if err != nil {
		return models.InteractiveSticker{}, apperr.Internal(err)
	}
	for _, sticker := range stickers {
		if sticker.Kind == kind {
			return sticker, nil
		}
	}
	return models.InteractiveSticker{}, apperr.NotFound("story has no %s sticker", kind)
}

// insertResponse rejects a second response from the same user.
func (s *EngagementService) insertResponse(ctx context.Context, stickerID, userID string, resp models.StickerResponse, pastVerb string) error {
	_, err := s.engagement.GetResponse(ctx, stickerID, userID)
	if err == nil {
		return apperr.Validation("you have already %s", pastVerb)
	}
	if !errors.Is(err, repository.ErrStickerNotFound) {
		return apperr.Internal(err)
	}

	resp.ID = ids.New()
	resp.StickerID = stickerID
	resp.UserID = userID
	resp.CreatedAt = time.Now().UTC()
	if err := s.engagement.UpsertResponse(ctx, resp); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
