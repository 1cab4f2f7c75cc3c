package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storygram/api/internal/apperr"
)

type reactRequest struct {
	UserID       string `json:"user_id"`
	ReactionType string `json:"reaction_type"`
}

func (h HandlerSet) React(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	if err := h.engagementService.React(c.Request.Context(), req.UserID, c.Param("storyId"), req.ReactionType); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reaction recorded"})
}

func (h HandlerSet) Unreact(c *gin.Context) {
	if err := h.engagementService.Unreact(c.Request.Context(), c.Query("user_id"), c.Param("storyId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reaction removed"})
}

type commentRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func (h HandlerSet) Comment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return
	}

	comment, err := h.engagementService.Comment(c.Request.Context(), req.UserID, c.Param("storyId"), req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": gin.H{
		"id":         comment.ID,
		"story_id":   comment.StoryID,
		"user_id":    comment.UserID,
		"text":       comment.Text,
		"created_at": comment.CreatedAt,
	}})
}

type voteRequest struct {
	UserID string `json:"user_id"`
	Option *int   `json:"option"`
}

func (h HandlerSet) VotePoll(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Option == nil {
		h.respondError(c, apperr.Validation("user_id and option are required"))
		return
	}

	if err := h.engagementService.VotePoll(c.Request.Context(), req.UserID, c.Param("storyId"), *req.Option); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vote recorded"})
}

func (h HandlerSet) AnswerQuiz(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Option == nil {
		h.respondError(c, apperr.Validation("user_id and option are required"))
		return
	}

	correct, err := h.engagementService.AnswerQuiz(c.Request.Context(), req.UserID, c.Param("storyId"), *req.Option)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "answer recorded", "correct": correct})
}

type sliderRequest struct {
	UserID string   `json:"user_id"`
	Value  *float64 `json:"value"`
}

func (h HandlerSet) RespondSlider(c *gin.Context) {
	var req sliderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		h.respondError(c, apperr.Validation("user_id and value are required"))
		return
	}

	if err := h.engagementService.RespondSlider(c.Request.Context(), req.UserID, c.Param("storyId"), *req.Value); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "response recorded"})
}

func (h HandlerSet) StickerResults(c *gin.Context) {
	results, err := h.engagementService.StickerResults(c.Request.Context(), c.Query("user_id"), c.Param("storyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stickers": results})
}
