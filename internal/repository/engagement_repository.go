package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storygram/api/internal/models"
)

// EngagementRepository stores reactions, comments and the interactive
// sticker tables (polls, quizzes, sliders and their responses).
type EngagementRepository struct {
	db Querier
}

func NewEngagementRepository(db Querier) *EngagementRepository {
	return &EngagementRepository{db: db}
}

func (r *EngagementRepository) WithTx(tx pgx.Tx) *EngagementRepository {
	return &EngagementRepository{db: tx}
}

// UpsertReaction records a reaction, replacing any earlier one from the
// same user on the same story.
func (r *EngagementRepository) UpsertReaction(ctx context.Context, re models.Reaction) error {
	const query = `
		INSERT INTO story_reactions (id, story_id, user_id, reaction_type, reacted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (story_id, user_id)
		DO UPDATE SET reaction_type = EXCLUDED.reaction_type, reacted_at = EXCLUDED.reacted_at
	`
	_, err := r.db.Exec(ctx, query, re.ID, re.StoryID, re.UserID, re.ReactionType, re.ReactedAt)
	return err
}

func (r *EngagementRepository) DeleteReaction(ctx context.Context, storyID, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM story_reactions WHERE story_id = $1 AND user_id = $2`,
		storyID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReactionNotFound
	}
	return nil
}

func (r *EngagementRepository) InsertComment(ctx context.Context, c models.Comment) error {
	const query = `
		INSERT INTO story_comments (id, story_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, c.ID, c.StoryID, c.UserID, c.Text, c.CreatedAt)
	return err
}

func (r *EngagementRepository) ListComments(ctx context.Context, storyID string) ([]models.Comment, error) {
	const query = `
		SELECT id, story_id, user_id, text, created_at
		FROM story_comments
		WHERE story_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.StoryID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ListViewerDetails enriches a viewer id list with profile fields and
// each viewer's reaction, preserving the ledger's order.
func (r *EngagementRepository) ListViewerDetails(ctx context.Context, storyID string, viewerIDs []string) ([]models.ViewerDetail, error) {
	if len(viewerIDs) == 0 {
		return nil, nil
	}

	const query = `
		SELECT u.id, u.username, u.display_name, u.profile_image_key, u.cover_image_key,
		       r.reaction_type
		FROM users u
		LEFT JOIN story_reactions r ON r.story_id = $1 AND r.user_id = u.id
		WHERE u.id = ANY($2)
	`
	rows, err := r.db.Query(ctx, query, storyID, viewerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]models.ViewerDetail, len(viewerIDs))
	for rows.Next() {
		var d models.ViewerDetail
		if err := rows.Scan(
			&d.UserID, &d.Username, &d.DisplayName, &d.ProfileImageKey, &d.CoverImageKey,
			&d.ReactionType,
		); err != nil {
			return nil, err
		}
		byID[d.UserID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	details := make([]models.ViewerDetail, 0, len(viewerIDs))
	for _, id := range viewerIDs {
		if d, ok := byID[id]; ok {
			details = append(details, d)
		}
	}
	return details, nil
}

func (r *EngagementRepository) InsertSticker(ctx context.Context, s models.InteractiveSticker) error {
	options, err := json.Marshal(s.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	position, err := json.Marshal(s.Position)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}

	const query = `
		INSERT INTO story_stickers (id, story_id, kind, question_text, options, correct_option, emoji_icon, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.Exec(ctx, query,
		s.ID, s.StoryID, s.Kind, s.QuestionText, options, s.CorrectOption, s.EmojiIcon, position, s.CreatedAt,
	)
	return err
}

func (r *EngagementRepository) ListStickers(ctx context.Context, storyID string) ([]models.InteractiveSticker, error) {
	const query = `
		SELECT id, story_id, kind, question_text, options, correct_option, emoji_icon, position, created_at
		FROM story_stickers
		WHERE story_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stickers []models.InteractiveSticker
	for rows.Next() {
		s, err := scanSticker(rows)
		if err != nil {
			return nil, err
		}
		stickers = append(stickers, s)
	}
	return stickers, rows.Err()
}

// UpsertResponse records a sticker answer; answering again replaces the
// earlier answer.
func (r *EngagementRepository) UpsertResponse(ctx context.Context, resp models.StickerResponse) error {
	const query = `
		INSERT INTO sticker_responses (id, sticker_id, user_id, selected_option, slider_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sticker_id, user_id)
		DO UPDATE SET selected_option = EXCLUDED.selected_option,
		              slider_value = EXCLUDED.slider_value,
		              created_at = EXCLUDED.created_at
	`
	_, err := r.db.Exec(ctx, query,
		resp.ID, resp.StickerID, resp.UserID, resp.SelectedOption, resp.SliderValue, resp.CreatedAt,
	)
	return err
}

// GetResponse returns pgx.ErrNoRows wrapped as ErrStickerNotFound when
// the user has not answered this sticker yet.
func (r *EngagementRepository) GetResponse(ctx context.Context, stickerID, userID string) (models.StickerResponse, error) {
	const query = `
		SELECT id, sticker_id, user_id, selected_option, slider_value, created_at
		FROM sticker_responses
		WHERE sticker_id = $1 AND user_id = $2
	`
	var resp models.StickerResponse
	err := r.db.QueryRow(ctx, query, stickerID, userID).Scan(
		&resp.ID, &resp.StickerID, &resp.UserID, &resp.SelectedOption, &resp.SliderValue, &resp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StickerResponse{}, ErrStickerNotFound
		}
		return models.StickerResponse{}, err
	}
	return resp, nil
}

func (r *EngagementRepository) ListResponses(ctx context.Context, stickerID string) ([]models.StickerResponse, error) {
	const query = `
		SELECT id, sticker_id, user_id, selected_option, slider_value, created_at
		FROM sticker_responses
		WHERE sticker_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, stickerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []models.StickerResponse
	for rows.Next() {
		var resp models.StickerResponse
		if err := rows.Scan(
			&resp.ID, &resp.StickerID, &resp.UserID, &resp.SelectedOption, &resp.SliderValue, &resp.CreatedAt,
		); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func scanSticker(row scanner) (models.InteractiveSticker, error) {
	var (
		s        models.InteractiveSticker
		options  []byte
		position []byte
	)
	if err := row.Scan(
		&s.ID, &s.StoryID, &s.Kind, &s.QuestionText, &options, &s.CorrectOption,
		&s.EmojiIcon, &position, &s.CreatedAt,
	); err != nil {
		return models.InteractiveSticker{}, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &s.Options); err != nil {
			return models.InteractiveSticker{}, fmt.Errorf("decode options: %w", err)
		}
	}
	if len(position) > 0 {
		if err := json.Unmarshal(position, &s.Position); err != nil {
			return models.InteractiveSticker{}, fmt.Errorf("decode position: %w", err)
		}
	}
	return s, nil
}
