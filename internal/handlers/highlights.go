package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storygram/api/internal/apperr"
	"storygram/api/internal/service"
)

type createFolderRequest struct {
	UserID        string   `json:"user_id"`
	Name          string   `json:"name"`
	CoverImageKey string   `json:"cover_image_key"`
	StoryIDs      []string `json:"story_ids"`
}

func (h HandlerSet) CreateHighlightFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	folder, err := h.highlightService.CreateFolder(c.Request.Context(), service.CreateFolderInput{
		UserID:        req.UserID,
		Name:          req.Name,
		CoverImageKey: req.CoverImageKey,
		StoryIDs:      req.StoryIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"folder": folder})
}

type appendHighlightRequest struct {
	Name    string `json:"name"`
	StoryID string `json:"story_id"`
}

func (h HandlerSet) AppendHighlight(c *gin.Context) {
	var req appendHighlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	folder, err := h.highlightService.AppendStory(c.Request.Context(), c.Param("userId"), req.Name, req.StoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folder": folder})
}

func (h HandlerSet) RemoveHighlightByStory(c *gin.Context) {
	storyID := c.Query("story_id")
	if storyID == "" {
		h.respondError(c, apperr.Validation("story_id is required"))
		return
	}

	if err := h.highlightService.RemoveByStory(c.Request.Context(), c.Param("userId"), storyID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "highlight removed"})
}

func (h HandlerSet) RemoveHighlightMember(c *gin.Context) {
	if err := h.highlightService.RemoveMember(c.Request.Context(), c.Query("user_id"), c.Param("highlightId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "highlight removed"})
}

func (h HandlerSet) HighlightFolders(c *gin.Context) {
	folders, err := h.highlightService.Folders(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (h HandlerSet) ArchivedHighlightFolders(c *gin.Context) {
	folders, err := h.highlightService.ArchivedFolders(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (h HandlerSet) HighlightFolderDetail(c *gin.Context) {
	members, err := h.highlightService.FolderDetail(
		c.Request.Context(), c.Query("viewer_id"), c.Param("userId"), c.Query("name"),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": members})
}

type editFolderRequest struct {
	Name          string   `json:"name"`
	NewName       string   `json:"new_name"`
	CoverImageKey string   `json:"cover_image_key"`
	StoryIDs      []string `json:"story_ids"`
}

func (h HandlerSet) EditHighlightFolder(c *gin.Context) {
	var req editFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	err := h.highlightService.EditFolder(c.Request.Context(), service.EditFolderInput{
		UserID:        c.Param("userId"),
		Name:          req.Name,
		NewName:       req.NewName,
		CoverImageKey: req.CoverImageKey,
		StoryIDs:      req.StoryIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "folder updated"})
}

func (h HandlerSet) DeleteHighlightFolder(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		h.respondError(c, apperr.Validation("folder name is required"))
		return
	}

	if err := h.highlightService.DeleteFolder(c.Request.Context(), c.Param("userId"), name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "folder deleted"})
}

type folderNameRequest struct {
	Name string `json:"name"`
}

func (h HandlerSet) ArchiveHighlightFolder(c *gin.Context) {
	var req folderNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	if err := h.highlightService.ArchiveFolder(c.Request.Context(), c.Param("userId"), req.Name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "folder archived"})
}

func (h HandlerSet) UnarchiveHighlightFolder(c *gin.Context) {
	var req folderNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	if err := h.highlightService.UnarchiveFolder(c.Request.Context(), c.Param("userId"), req.Name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "folder unarchived"})
}

func (h HandlerSet) HighlightPicker(c *gin.Context) {
	payload, err := h.highlightService.Picker(c.Request.Context(), c.Param("userId"), c.Query("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

type coverPresignRequest struct {
	UserID      string `json:"user_id"`
	Filename    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

func (h HandlerSet) HighlightCoverPresign(c *gin.Context) {
	var req coverPresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	upload, err := h.highlightService.CoverPresign(c.Request.Context(), req.UserID, req.Filename, req.ContentType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload": upload})
}

type defaultCoverRequest struct {
	UserID  string `json:"user_id"`
	StoryID string `json:"story_id"`
}

func (h HandlerSet) HighlightDefaultCover(c *gin.Context) {
	var req defaultCoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	cover, err := h.highlightService.DefaultCover(c.Request.Context(), req.UserID, req.StoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cover": cover})
}
