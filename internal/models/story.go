package models

import (
	"encoding/json"
	"time"
)

type Privacy string

const (
	PrivacyPublic       Privacy = "public"
	PrivacyPrivate      Privacy = "private"
	PrivacyCloseFriends Privacy = "close_friends"
)

func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyPrivate, PrivacyCloseFriends:
		return true
	}
	return false
}

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// GeoTag, MusicRef and Sticker are stored as JSONB columns and are inert
// to the engine apart from sticker aggregate computation.
type GeoTag struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type MusicRef struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	TrackID string `json:"trackId"`
}

type StickerPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type StickerKind string

const (
	StickerCountdown StickerKind = "countdown"
	StickerLink      StickerKind = "link"
	StickerPoll      StickerKind = "poll"
	StickerQuiz      StickerKind = "quiz"
	StickerSlider    StickerKind = "slider"
)

// OverlaySticker is a decorative sticker embedded on the story itself
// (countdown, link). Interactive stickers (poll, quiz, slider) live in
// their own table so responses can be joined against them.
type OverlaySticker struct {
	Kind     StickerKind     `json:"type"`
	Date     string          `json:"date,omitempty"`
	Time     string          `json:"time,omitempty"`
	Link     string          `json:"link,omitempty"`
	Position StickerPosition `json:"position"`
}

type Story struct {
	ID           string
	OwnerID      string
	ObjectKey    string
	ThumbnailKey string
	Filename     string
	ContentType  string
	SizeBytes    int64
	MediaKind    MediaKind
	Privacy      Privacy

	Caption  string
	Location *GeoTag
	Mentions []string
	Hashtags []string
	Music    *MusicRef
	Stickers []OverlaySticker

	AllowReplies bool
	AllowSharing bool

	// Viewers is the ordered, append-only viewer ledger. Membership is
	// set semantics; order is view order. The owner id never belongs here.
	Viewers []string

	Archived    bool
	Highlighted bool

	// Version guards read-modify-write updates of the viewer list.
	Version int

	CreatedAt time.Time
	ExpiresAt time.Time
	DeletedAt *time.Time
}

// MarshalStickers renders the overlay stickers for a JSONB column.
func (s Story) MarshalStickers() ([]byte, error) {
	if len(s.Stickers) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Stickers)
}

// InteractiveSticker is a poll, quiz or slider attached to one story.
type InteractiveSticker struct {
	ID            string
	StoryID       string
	Kind          StickerKind
	QuestionText  string
	Options       []string
	CorrectOption *int
	EmojiIcon     string
	Position      StickerPosition
	CreatedAt     time.Time
}

// StickerResponse is one user's vote/answer/slider value.
type StickerResponse struct {
	ID             string
	StickerID      string
	UserID         string
	SelectedOption *int
	SliderValue    *float64
	CreatedAt      time.Time
}
