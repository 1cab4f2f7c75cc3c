package service

import (
	"context"
	"time"

	"storygram/api/internal/apperr"
	"storygram/api/internal/cache"
	"storygram/api/internal/ledger"
	"storygram/api/internal/models"
	"storygram/api/internal/storage"
)

// StoryView is the story as clients see it: object keys resolved to
// presigned URLs, the ledger reduced to a count and a seen flag.
type StoryView struct {
	ID            string                  `json:"id"`
	OwnerID       string                  `json:"user_id"`
	MediaURL      string                  `json:"media_url"`
	ThumbnailURL  string                  `json:"thumbnail_url,omitempty"`
	MediaKind     models.MediaKind        `json:"media_type"`
	Privacy       models.Privacy          `json:"privacy"`
	Caption       string                  `json:"caption,omitempty"`
	Location      *models.GeoTag          `json:"location,omitempty"`
	Mentions      []string                `json:"mentions,omitempty"`
	Hashtags      []string                `json:"hashtags,omitempty"`
	Music         *models.MusicRef        `json:"music,omitempty"`
	Stickers      []models.OverlaySticker `json:"stickers,omitempty"`
	AllowReplies  bool                    `json:"allow_replies"`
	AllowSharing  bool                    `json:"allow_sharing"`
	ViewCount     int                     `json:"view_count"`
	Viewed        bool                    `json:"viewed"`
	Archived      bool                    `json:"archived,omitempty"`
	Highlighted   bool                    `json:"highlighted,omitempty"`
	Viewers       []ViewerDetailView      `json:"viewers,omitempty"`
	ReactionCount int                     `json:"reaction_count,omitempty"`
	ReplyCount    int                     `json:"reply_count,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	ExpiresAt     time.Time               `json:"expires_at"`
}

type ViewerDetailView struct {
	UserID          string  `json:"user_id"`
	Username        string  `json:"username"`
	DisplayName     string  `json:"display_name,omitempty"`
	ProfileImageKey string  `json:"profile_image_key,omitempty"`
	ReactionType    *string `json:"reaction_type,omitempty"`
}

// media resolves object keys into presigned GET URLs through the redis
// memo. Every service that renders stories embeds one.
type media struct {
	store *storage.ObjectStore
	urls  *cache.URLCache
}

func (m media) presign(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if url, ok := m.urls.Get(ctx, key); ok {
		return url, nil
	}
	url, err := m.store.PresignedGet(ctx, key)
	if err != nil {
		return "", apperr.Upstream(storage.FailureType(err), err)
	}
	m.urls.Put(ctx, key, url)
	return url, nil
}

func (m media) storyView(ctx context.Context, st models.Story, viewerID string) (StoryView, error) {
	mediaURL, err := m.presign(ctx, st.ObjectKey)
	if err != nil {
		return StoryView{}, err
	}
	thumbURL, err := m.presign(ctx, st.ThumbnailKey)
	if err != nil {
		return StoryView{}, err
	}

	return StoryView{
		ID:           st.ID,
		OwnerID:      st.OwnerID,
		MediaURL:     mediaURL,
		ThumbnailURL: thumbURL,
		MediaKind:    st.MediaKind,
		Privacy:      st.Privacy,
		Caption:      st.Caption,
		Location:     st.Location,
		Mentions:     st.Mentions,
		Hashtags:     st.Hashtags,
		Music:        st.Music,
		Stickers:     st.Stickers,
		AllowReplies: st.AllowReplies,
		AllowSharing: st.AllowSharing,
		ViewCount:    ledger.ViewCount(st),
		Viewed:       !ledger.HasUnseen(st, viewerID),
		Archived:     st.Archived,
		Highlighted:  st.Highlighted,
		CreatedAt:    st.CreatedAt,
		ExpiresAt:    st.ExpiresAt,
	}, nil
}

// attachEngagement fills the owner-only fields: the viewer sheet plus
// the reaction and reply tallies. Reactions ride on the viewer detail
// join, so the tally is the viewers who left one.
func attachEngagement(view *StoryView, details []models.ViewerDetail, comments []models.Comment) {
	view.Viewers = viewerDetailViews(details)
	view.ReplyCount = len(comments)
	for _, d := range details {
		if d.ReactionType != nil {
			view.ReactionCount++
		}
	}
}

func viewerDetailViews(details []models.ViewerDetail) []ViewerDetailView {
	views := make([]ViewerDetailView, 0, len(details))
	for _, d := range details {
		views = append(views, ViewerDetailView{
			UserID:          d.UserID,
			Username:        d.Username,
			DisplayName:     d.DisplayName,
			ProfileImageKey: d.ProfileImageKey,
			ReactionType:    d.ReactionType,
		})
	}
	return views
}
