// Package privacy decides viewer eligibility for a story. One rule table
// backs viewing, reacting, commenting, and voting alike.
package privacy

import (
	"context"
	"fmt"

	"storygram/api/internal/apperr"
	"storygram/api/internal/models"
)

// Relationships looks up the directed edges the tier table consults.
type Relationships interface {
	// IsAcceptedFollower reports whether followerID has an accepted,
	// non-blocked follow edge to ownerID.
	IsAcceptedFollower(ctx context.Context, followerID, ownerID string) (bool, error)
	// IsCloseFriend reports whether ownerID lists friendID as a close
	// friend. Blocking is irrelevant to close-friend eligibility.
	IsCloseFriend(ctx context.Context, ownerID, friendID string) (bool, error)
}

type Evaluator struct {
	rel Relationships
}

func NewEvaluator(rel Relationships) *Evaluator {
	return &Evaluator{rel: rel}
}

// CanView implements the tier table. The owner is always eligible and
// exempt from the table.
func (e *Evaluator) CanView(ctx context.Context, viewerID string, st models.Story) (bool, error) {
	if viewerID == st.OwnerID {
		return true, nil
	}

	switch st.Privacy {
	case models.PrivacyPublic:
		return true, nil
	case models.PrivacyPrivate:
		ok, err := e.rel.IsAcceptedFollower(ctx, viewerID, st.OwnerID)
		if err != nil {
			return false, fmt.Errorf("follower lookup: %w", err)
		}
		return ok, nil
	case models.PrivacyCloseFriends:
		ok, err := e.rel.IsCloseFriend(ctx, st.OwnerID, viewerID)
		if err != nil {
			return false, fmt.Errorf("close friend lookup: %w", err)
		}
		return ok, nil
	}
	return false, nil
}

// AuthorizeView returns a Forbidden error when the tier table rejects the
// viewer.
func (e *Evaluator) AuthorizeView(ctx context.Context, viewerID string, st models.Story) error {
	ok, err := e.CanView(ctx, viewerID, st)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("you are not allowed to view this story")
	}
	return nil
}

// AuthorizeInteraction guards reactions, comments, poll votes, quiz
// answers and slider responses. The owner-identity check runs before the
// tier check so self-interaction yields its own error.
func (e *Evaluator) AuthorizeInteraction(ctx context.Context, viewerID string, st models.Story, verb string) error {
	if viewerID == st.OwnerID {
		return apperr.Validation("you cannot %s your own story", verb)
	}

	switch st.Privacy {
	case models.PrivacyPrivate:
		ok, err := e.rel.IsAcceptedFollower(ctx, viewerID, st.OwnerID)
		if err != nil {
			return fmt.Errorf("follower lookup: %w", err)
		}
		if !ok {
			return apperr.Validation("you must be a follower to %s this story", verb)
		}
	case models.PrivacyCloseFriends:
		ok, err := e.rel.IsCloseFriend(ctx, st.OwnerID, viewerID)
		if err != nil {
			return fmt.Errorf("close friend lookup: %w", err)
		}
		if !ok {
			return apperr.Validation("you must be a close friend to %s this story", verb)
		}
	}
	return nil
}
