package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) ArchivedStories(c *gin.Context) {
	views, err := h.archiveService.ListArchived(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": views})
}

func (h HandlerSet) ArchivedStory(c *gin.Context) {
	view, err := h.archiveService.ArchivedStory(c.Request.Context(), c.Param("userId"), c.Param("storyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": view})
}

func (h HandlerSet) UnarchiveStory(c *gin.Context) {
	if err := h.archiveService.Unarchive(c.Request.Context(), c.Param("userId"), c.Param("storyId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "story moved to recently deleted"})
}

func (h HandlerSet) Trash(c *gin.Context) {
	views, err := h.archiveService.ListTrash(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": views})
}

func (h HandlerSet) RestoreStory(c *gin.Context) {
	view, err := h.archiveService.Restore(c.Request.Context(), c.Param("userId"), c.Param("storyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": view})
}

func (h HandlerSet) PermanentDeleteStory(c *gin.Context) {
	if err := h.archiveService.PermanentDelete(c.Request.Context(), c.Param("userId"), c.Param("storyId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "story permanently deleted"})
}
