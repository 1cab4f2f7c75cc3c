package repository

import (
	"context"

	"storygram/api/internal/models"
)

// SocialRepository answers relationship questions: follow edges, close
// friend lists and the feed author set derived from both.
type SocialRepository struct {
	db Querier
}

func NewSocialRepository(db Querier) *SocialRepository {
	return &SocialRepository{db: db}
}

func (r *SocialRepository) IsAcceptedFollower(ctx context.Context, followerID, ownerID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM followers
			WHERE follower_id = $1 AND following_id = $2
			  AND status = 'accepted' AND blocked = FALSE
		)
	`
	var ok bool
	if err := r.db.QueryRow(ctx, query, followerID, ownerID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *SocialRepository) IsCloseFriend(ctx context.Context, ownerID, friendID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM close_friends
			WHERE user_id = $1 AND friend_id = $2
		)
	`
	var ok bool
	if err := r.db.QueryRow(ctx, query, ownerID, friendID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// FeedAuthors returns the union of authors the viewer follows (accepted,
// unblocked) and authors who list the viewer as a close friend. The
// viewer themself is excluded and duplicates are collapsed.
func (r *SocialRepository) FeedAuthors(ctx context.Context, viewerID string) ([]models.User, error) {
	const query = `
		SELECT DISTINCT u.id, u.username, u.display_name, u.profile_image_key,
		       u.cover_image_key, u.profile_visibility, u.auto_archive,
		       u.created_at, u.updated_at
		FROM users u
		WHERE u.id <> $1
		  AND (
			u.id IN (
				SELECT following_id FROM followers
				WHERE follower_id = $1 AND status = 'accepted' AND blocked = FALSE
			)
			OR u.id IN (
				SELECT user_id FROM close_friends WHERE friend_id = $1
			)
		  )
	`
	rows, err := r.db.Query(ctx, query, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.DisplayName,
			&u.ProfileImageKey,
			&u.CoverImageKey,
			&u.ProfileVisibility,
			&u.AutoArchive,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		authors = append(authors, u)
	}
	return authors, rows.Err()
}
