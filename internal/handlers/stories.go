package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storygram/api/internal/apperr"
	"storygram/api/internal/models"
	"storygram/api/internal/service"
)

type presignRequest struct {
	UserID string                     `json:"user_id"`
	Files  []service.PresignFileInput `json:"files"`
}

func (h HandlerSet) PresignStories(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	uploads, err := h.storyService.Presign(c.Request.Context(), req.UserID, req.Files)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

type confirmStoryRequest struct {
	UserID       string                            `json:"user_id"`
	ObjectKey    string                            `json:"object_key"`
	Privacy      models.Privacy                    `json:"privacy"`
	Caption      string                            `json:"caption"`
	Location     *models.GeoTag                    `json:"location"`
	Mentions     []string                          `json:"mentions"`
	Hashtags     []string                          `json:"hashtags"`
	Music        *models.MusicRef                  `json:"music"`
	Stickers     []models.OverlaySticker           `json:"stickers"`
	Interactive  []service.InteractiveStickerInput `json:"interactive_stickers"`
	AllowReplies *bool                             `json:"allow_replies"`
	AllowSharing *bool                             `json:"allow_sharing"`
}

func (h HandlerSet) ConfirmStory(c *gin.Context) {
	var req confirmStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	input := service.ConfirmStoryInput{
		UserID:       req.UserID,
		ObjectKey:    req.ObjectKey,
		Privacy:      req.Privacy,
		Caption:      req.Caption,
		Location:     req.Location,
		Mentions:     req.Mentions,
		Hashtags:     req.Hashtags,
		Music:        req.Music,
		Stickers:     req.Stickers,
		Interactive:  req.Interactive,
		AllowReplies: req.AllowReplies == nil || *req.AllowReplies,
		AllowSharing: req.AllowSharing == nil || *req.AllowSharing,
	}

	view, err := h.storyService.Confirm(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"story": view})
}

func (h HandlerSet) UserStories(c *gin.Context) {
	viewerID := c.Query("viewer_id")
	ownerID := c.Param("userId")

	views, err := h.storyService.ListUserStories(c.Request.Context(), viewerID, ownerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": views})
}

func (h HandlerSet) DeleteStory(c *gin.Context) {
	if err := h.storyService.Delete(c.Request.Context(), c.Query("user_id"), c.Param("storyId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "story deleted"})
}

type archiveStoryRequest struct {
	UserID  string `json:"user_id"`
	StoryID string `json:"story_id"`
}

func (h HandlerSet) ArchiveStory(c *gin.Context) {
	var req archiveStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	if err := h.storyService.Archive(c.Request.Context(), req.UserID, req.StoryID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "story archived"})
}

func (h HandlerSet) StoryViewers(c *gin.Context) {
	viewers, count, err := h.storyService.Viewers(c.Request.Context(), c.Query("user_id"), c.Param("storyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewers": viewers, "view_count": count})
}

func (h HandlerSet) Feed(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(c, apperr.Validation("invalid limit"))
			return
		}
		limit = parsed
	}

	page, err := h.feedService.Feed(c.Request.Context(), c.Query("viewer_id"), limit, c.Query("cursor"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{
		"stories":  page.Entries,
		"has_more": page.HasMore,
		"limit":    page.Limit,
	}
	if page.NextCursor != "" {
		resp["next_cursor"] = page.NextCursor
	}
	c.JSON(http.StatusOK, resp)
}
