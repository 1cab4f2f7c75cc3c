package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"storygram/api/internal/models"
)

type StoryRepository struct {
	db Querier
}

func NewStoryRepository(db Querier) *StoryRepository {
	return &StoryRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *StoryRepository) WithTx(tx pgx.Tx) *StoryRepository {
	return &StoryRepository{db: tx}
}

const storyColumns = `
	id, owner_id, object_key, thumbnail_key, filename, content_type, size_bytes,
	media_kind, privacy, caption, location, mentions, hashtags, music, stickers,
	allow_replies, allow_sharing, viewers, archived, highlighted, version,
	created_at, expires_at, deleted_at
`

func (r *StoryRepository) Create(ctx context.Context, st models.Story) error {
	location, err := marshalNullable(st.Location)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	music, err := marshalNullable(st.Music)
	if err != nil {
		return fmt.Errorf("encode music: %w", err)
	}
	stickers, err := st.MarshalStickers()
	if err != nil {
		return fmt.Errorf("encode stickers: %w", err)
	}
	mentions, err := marshalStringList(st.Mentions)
	if err != nil {
		return fmt.Errorf("encode mentions: %w", err)
	}
	hashtags, err := marshalStringList(st.Hashtags)
	if err != nil {
		return fmt.Errorf("encode hashtags: %w", err)
	}
	viewers, err := marshalStringList(st.Viewers)
	if err != nil {
		return fmt.Errorf("encode viewers: %w", err)
	}

	const query = `
		INSERT INTO stories (
			id, owner_id, object_key, thumbnail_key, filename, content_type, size_bytes,
			media_kind, privacy, caption, location, mentions, hashtags, music, stickers,
			allow_replies, allow_sharing, viewers, archived, highlighted, version,
			created_at, expires_at, deleted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, 0,
			$21, $22, $23
		)
	`

	_, err = r.db.Exec(ctx, query,
		st.ID,
		st.OwnerID,
		st.ObjectKey,
		st.ThumbnailKey,
		st.Filename,
		st.ContentType,
		st.SizeBytes,
		st.MediaKind,
		st.Privacy,
		st.Caption,
		location,
		mentions,
		hashtags,
		music,
		stickers,
		st.AllowReplies,
		st.AllowSharing,
		viewers,
		st.Archived,
		st.Highlighted,
		st.CreatedAt,
		st.ExpiresAt,
		st.DeletedAt,
	)
	return err
}

func (r *StoryRepository) GetByID(ctx context.Context, id string) (models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`
	st, err := scanStory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Story{}, ErrStoryNotFound
		}
		return models.Story{}, err
	}
	return st, nil
}

// UpdateViewers is an optimistic compare-and-set on the viewer ledger.
func (r *StoryRepository) UpdateViewers(ctx context.Context, id string, viewers []string, version int) error {
	encoded, err := marshalStringList(viewers)
	if err != nil {
		return fmt.Errorf("encode viewers: %w", err)
	}

	const query = `
		UPDATE stories
		SET viewers = $2, version = version + 1
		WHERE id = $1 AND version = $3
	`
	tag, err := r.db.Exec(ctx, query, id, encoded, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *StoryRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE stories SET archived = $2 WHERE id = $1`, id, archived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStoryNotFound
	}
	return nil
}

func (r *StoryRepository) SetHighlighted(ctx context.Context, id string, highlighted bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE stories SET highlighted = $2 WHERE id = $1`, id, highlighted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStoryNotFound
	}
	return nil
}

// UpdateLifecycle persists the timing/flag outcome of a state transition.
func (r *StoryRepository) UpdateLifecycle(ctx context.Context, st models.Story) error {
	const query = `
		UPDATE stories
		SET expires_at = $2, deleted_at = $3, archived = $4, highlighted = $5
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, st.ID, st.ExpiresAt, st.DeletedAt, st.Archived, st.Highlighted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStoryNotFound
	}
	return nil
}

// Purge removes the row. A purged story is NotFound by construction.
func (r *StoryRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	return err
}

func (r *StoryRepository) ListExpiredUnarchived(ctx context.Context, now time.Time, limit int) ([]models.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE expires_at <= $1 AND archived = FALSE
		ORDER BY expires_at ASC
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

// ListActiveByOwner returns unexpired, unarchived, undeleted stories,
// newest first.
func (r *StoryRepository) ListActiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]models.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE owner_id = $1 AND expires_at > $2 AND archived = FALSE AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, ownerID, now)
}

func (r *StoryRepository) ListArchivedByOwner(ctx context.Context, ownerID string) ([]models.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE owner_id = $1 AND archived = TRUE AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, ownerID)
}

// ListArchivedNotHighlighted feeds the highlight picker: archived
// stories not yet bound into any collection.
func (r *StoryRepository) ListArchivedNotHighlighted(ctx context.Context, ownerID string) ([]models.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE owner_id = $1 AND archived = TRUE AND deleted_at IS NULL AND highlighted = FALSE
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, ownerID)
}

func (r *StoryRepository) ListRecentlyDeleted(ctx context.Context, ownerID string, since time.Time) ([]models.Story, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE owner_id = $1 AND deleted_at IS NOT NULL AND deleted_at >= $2
		ORDER BY deleted_at DESC
	`
	return r.list(ctx, query, ownerID, since)
}

// LatestNonArchived returns the owner's most recent non-archived story
// regardless of expiry (the self feed entry's source).
func (r *StoryRepository) LatestNonArchived(ctx context.Context, ownerID string) (models.Story, bool, error) {
	query := `
		SELECT ` + storyColumns + `
		FROM stories
		WHERE owner_id = $1 AND archived = FALSE AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	st, err := scanStory(r.db.QueryRow(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Story{}, false, nil
		}
		return models.Story{}, false, err
	}
	return st, true, nil
}

func (r *StoryRepository) list(ctx context.Context, query string, args ...any) ([]models.Story, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

func scanStory(row scanner) (models.Story, error) {
	var (
		st       models.Story
		location []byte
		mentions []byte
		hashtags []byte
		music    []byte
		stickers []byte
		viewers  []byte
	)

	if err := row.Scan(
		&st.ID,
		&st.OwnerID,
		&st.ObjectKey,
		&st.ThumbnailKey,
		&st.Filename,
		&st.ContentType,
		&st.SizeBytes,
		&st.MediaKind,
		&st.Privacy,
		&st.Caption,
		&location,
		&mentions,
		&hashtags,
		&music,
		&stickers,
		&st.AllowReplies,
		&st.AllowSharing,
		&viewers,
		&st.Archived,
		&st.Highlighted,
		&st.Version,
		&st.CreatedAt,
		&st.ExpiresAt,
		&st.DeletedAt,
	); err != nil {
		return models.Story{}, err
	}

	if len(location) > 0 {
		if err := json.Unmarshal(location, &st.Location); err != nil {
			return models.Story{}, fmt.Errorf("decode location: %w", err)
		}
	}
	if len(music) > 0 {
		if err := json.Unmarshal(music, &st.Music); err != nil {
			return models.Story{}, fmt.Errorf("decode music: %w", err)
		}
	}
	if len(stickers) > 0 {
		if err := json.Unmarshal(stickers, &st.Stickers); err != nil {
			return models.Story{}, fmt.Errorf("decode stickers: %w", err)
		}
	}
	if len(mentions) > 0 {
		if err := json.Unmarshal(mentions, &st.Mentions); err != nil {
			return models.Story{}, fmt.Errorf("decode mentions: %w", err)
		}
	}
	if len(hashtags) > 0 {
		if err := json.Unmarshal(hashtags, &st.Hashtags); err != nil {
			return models.Story{}, fmt.Errorf("decode hashtags: %w", err)
		}
	}
	if len(viewers) > 0 {
		if err := json.Unmarshal(viewers, &st.Viewers); err != nil {
			return models.Story{}, fmt.Errorf("decode viewers: %w", err)
		}
	}

	return st, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *models.GeoTag:
		if val == nil {
			return nil, nil
		}
	case *models.MusicRef:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func marshalStringList(list []string) ([]byte, error) {
	if len(list) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(list)
}
