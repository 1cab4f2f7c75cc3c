package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"storygram/api/internal/models"
)

// HighlightRepository is the relational store behind the highlight
// manager. Bind it to a transaction for remove-and-renumber.
type HighlightRepository struct {
	db Querier
}

func NewHighlightRepository(db Querier) *HighlightRepository {
	return &HighlightRepository{db: db}
}

func (r *HighlightRepository) WithTx(tx pgx.Tx) *HighlightRepository {
	return &HighlightRepository{db: tx}
}

const highlightColumns = `
	id, story_id, owner_id, name, cover_image_key, sort_order, archived, created_at
`

func (r *HighlightRepository) Group(ctx context.Context, key models.HighlightGroupKey) ([]models.Highlight, error) {
	query := `
		SELECT ` + highlightColumns + `
		FROM highlights
		WHERE owner_id = $1 AND name = $2 AND cover_image_key = $3
		ORDER BY sort_order ASC
	`
	return r.list(ctx, query, key.OwnerID, key.Name, key.CoverImageKey)
}

func (r *HighlightRepository) GroupByName(ctx context.Context, ownerID, name string) ([]models.Highlight, error) {
	query := `
		SELECT ` + highlightColumns + `
		FROM highlights
		WHERE owner_id = $1 AND name = $2
		ORDER BY sort_order ASC
	`
	return r.list(ctx, query, ownerID, name)
}

func (r *HighlightRepository) ByStory(ctx context.Context, storyID string) (models.Highlight, error) {
	query := `SELECT ` + highlightColumns + ` FROM highlights WHERE story_id = $1`
	return r.one(ctx, query, storyID)
}

func (r *HighlightRepository) ByID(ctx context.Context, ownerID, highlightID string) (models.Highlight, error) {
	query := `SELECT ` + highlightColumns + ` FROM highlights WHERE owner_id = $1 AND id = $2`
	return r.one(ctx, query, ownerID, highlightID)
}

func (r *HighlightRepository) Insert(ctx context.Context, h models.Highlight) error {
	const query = `
		INSERT INTO highlights (id, story_id, owner_id, name, cover_image_key, sort_order, archived, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		h.ID, h.StoryID, h.OwnerID, h.Name, h.CoverImageKey, h.Order, h.Archived, h.CreatedAt,
	)
	return err
}

func (r *HighlightRepository) Delete(ctx context.Context, highlightID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM highlights WHERE id = $1`, highlightID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHighlightNotFound
	}
	return nil
}

func (r *HighlightRepository) ShiftDown(ctx context.Context, key models.HighlightGroupKey, above int) error {
	const query = `
		UPDATE highlights
		SET sort_order = sort_order - 1
		WHERE owner_id = $1 AND name = $2 AND cover_image_key = $3 AND sort_order > $4
	`
	_, err := r.db.Exec(ctx, query, key.OwnerID, key.Name, key.CoverImageKey, above)
	return err
}

func (r *HighlightRepository) SetOrder(ctx context.Context, highlightID string, order int) error {
	tag, err := r.db.Exec(ctx, `UPDATE highlights SET sort_order = $2 WHERE id = $1`, highlightID, order)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHighlightNotFound
	}
	return nil
}

func (r *HighlightRepository) Rekey(ctx context.Context, key models.HighlightGroupKey, newName, newCoverImageKey string) error {
	const query = `
		UPDATE highlights
		SET name = $4, cover_image_key = $5
		WHERE owner_id = $1 AND name = $2 AND cover_image_key = $3
	`
	_, err := r.db.Exec(ctx, query, key.OwnerID, key.Name, key.CoverImageKey, newName, newCoverImageKey)
	return err
}

func (r *HighlightRepository) SetArchived(ctx context.Context, key models.HighlightGroupKey, archived bool) error {
	const query = `
		UPDATE highlights
		SET archived = $4
		WHERE owner_id = $1 AND name = $2 AND cover_image_key = $3
	`
	_, err := r.db.Exec(ctx, query, key.OwnerID, key.Name, key.CoverImageKey, archived)
	return err
}

// ListFolders returns one representative row per non-archived group.
func (r *HighlightRepository) ListFolders(ctx context.Context, ownerID string) ([]models.Highlight, error) {
	query := `
		SELECT DISTINCT ON (name, cover_image_key) ` + highlightColumns + `
		FROM highlights
		WHERE owner_id = $1 AND archived = FALSE
		ORDER BY name, cover_image_key, created_at DESC
	`
	folders, err := r.list(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// ListArchivedFolders returns one representative row per archived group.
func (r *HighlightRepository) ListArchivedFolders(ctx context.Context, ownerID string) ([]models.Highlight, error) {
	query := `
		SELECT DISTINCT ON (name, cover_image_key) ` + highlightColumns + `
		FROM highlights
		WHERE owner_id = $1 AND archived = TRUE
		ORDER BY name, cover_image_key, created_at DESC
	`
	return r.list(ctx, query, ownerID)
}

// DeleteGroup removes every member of a group and returns the deleted
// rows so the caller can release protection on their stories.
func (r *HighlightRepository) DeleteGroup(ctx context.Context, key models.HighlightGroupKey) ([]models.Highlight, error) {
	query := `
		DELETE FROM highlights
		WHERE owner_id = $1 AND name = $2 AND cover_image_key = $3
		RETURNING ` + highlightColumns + `
	`
	return r.list(ctx, query, key.OwnerID, key.Name, key.CoverImageKey)
}

func (r *HighlightRepository) one(ctx context.Context, query string, args ...any) (models.Highlight, error) {
	h, err := scanHighlight(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Highlight{}, ErrHighlightNotFound
		}
		return models.Highlight{}, err
	}
	return h, nil
}

func (r *HighlightRepository) list(ctx context.Context, query string, args ...any) ([]models.Highlight, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, h)
	}
	return members, rows.Err()
}

func scanHighlight(row scanner) (models.Highlight, error) {
	var h models.Highlight
	err := row.Scan(
		&h.ID,
		&h.StoryID,
		&h.OwnerID,
		&h.Name,
		&h.CoverImageKey,
		&h.Order,
		&h.Archived,
		&h.CreatedAt,
	)
	return h, err
}
