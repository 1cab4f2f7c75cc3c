package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"storygram/api/internal/models"
)

type UserRepository struct {
	db Querier
}

func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, username, display_name, profile_image_key, cover_image_key,
	profile_visibility, auto_archive, created_at, updated_at
`

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&u.ProfileImageKey,
		&u.CoverImageKey,
		&u.ProfileVisibility,
		&u.AutoArchive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// AutoArchiveEnabled tells the sweeper whether an owner keeps expired
// stories. A missing owner reads as disabled.
func (r *UserRepository) AutoArchiveEnabled(ctx context.Context, ownerID string) (bool, error) {
	var enabled bool
	err := r.db.QueryRow(ctx, `SELECT auto_archive FROM users WHERE id = $1`, ownerID).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return enabled, nil
}
