package privacy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storygram/api/internal/apperr"
	"storygram/api/internal/models"
)

type fakeRelationships struct {
	followers    map[[2]string]bool // follower -> owner
	closeFriends map[[2]string]bool // owner -> friend
}

func (f fakeRelationships) IsAcceptedFollower(_ context.Context, followerID, ownerID string) (bool, error) {
	return f.followers[[2]string{followerID, ownerID}], nil
}

func (f fakeRelationships) IsCloseFriend(_ context.Context, ownerID, friendID string) (bool, error) {
	return f.closeFriends[[2]string{ownerID, friendID}], nil
}

func newEvaluator() *Evaluator {
	return NewEvaluator(fakeRelationships{
		followers:    map[[2]string]bool{{"follower", "owner"}: true, {"friend", "owner"}: true},
		closeFriends: map[[2]string]bool{{"owner", "friend"}: true},
	})
}

func TestCanViewTierTable(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	tests := []struct {
		privacy models.Privacy
		viewer  string
		want    bool
	}{
		{models.PrivacyPublic, "stranger", true},
		{models.PrivacyPublic, "follower", true},
		{models.PrivacyPublic, "friend", true},
		{models.PrivacyPrivate, "stranger", false},
		{models.PrivacyPrivate, "follower", true},
		{models.PrivacyPrivate, "friend", true},
		{models.PrivacyCloseFriends, "stranger", false},
		{models.PrivacyCloseFriends, "follower", false},
		{models.PrivacyCloseFriends, "friend", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.privacy)+"/"+tt.viewer, func(t *testing.T) {
			st := models.Story{OwnerID: "owner", Privacy: tt.privacy}
			got, err := e.CanView(ctx, tt.viewer, st)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOwnerAlwaysViews(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	for _, privacy := range []models.Privacy{models.PrivacyPublic, models.PrivacyPrivate, models.PrivacyCloseFriends} {
		st := models.Story{OwnerID: "owner", Privacy: privacy}
		ok, err := e.CanView(ctx, "owner", st)
		require.NoError(t, err)
		assert.True(t, ok, privacy)
	}
}

func TestAuthorizeView(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()
	st := models.Story{OwnerID: "owner", Privacy: models.PrivacyPrivate}

	assert.NoError(t, e.AuthorizeView(ctx, "follower", st))

	err := e.AuthorizeView(ctx, "stranger", st)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAuthorizeInteractionRejectsOwnerFirst(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	// Self-interaction fails even on a public story, and before any
	// relationship lookup would run.
	st := models.Story{OwnerID: "owner", Privacy: models.PrivacyPublic}
	err := e.AuthorizeInteraction(ctx, "owner", st, "react to")
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Msg, "your own story")
}

func TestAuthorizeInteractionTiers(t *testing.T) {
	e := newEvaluator()
	ctx := context.Background()

	t.Run("public allows strangers", func(t *testing.T) {
		st := models.Story{OwnerID: "owner", Privacy: models.PrivacyPublic}
		assert.NoError(t, e.AuthorizeInteraction(ctx, "stranger", st, "react to"))
	})

	t.Run("private requires a follower", func(t *testing.T) {
		st := models.Story{OwnerID: "owner", Privacy: models.PrivacyPrivate}
		assert.NoError(t, e.AuthorizeInteraction(ctx, "follower", st, "react to"))

		err := e.AuthorizeInteraction(ctx, "stranger", st, "react to")
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("close friends excludes plain followers", func(t *testing.T) {
		st := models.Story{OwnerID: "owner", Privacy: models.PrivacyCloseFriends}
		assert.NoError(t, e.AuthorizeInteraction(ctx, "friend", st, "vote on"))

		err := e.AuthorizeInteraction(ctx, "follower", st, "vote on")
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}
