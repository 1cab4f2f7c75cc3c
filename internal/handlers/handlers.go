// Package handlers exposes the HTTP surface. Identity arrives as
// user_id/viewer_id parameters; authentication happens upstream of this
// service.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storygram/api/internal/apperr"
	"storygram/api/internal/cache"
	"storygram/api/internal/config"
	"storygram/api/internal/lifecycle"
	"storygram/api/internal/privacy"
	"storygram/api/internal/repository"
	"storygram/api/internal/service"
	"storygram/api/internal/storage"
)

type HandlerSet struct {
	log zerolog.Logger
	cfg *config.AppConfig

	storyService      *service.StoryService
	engagementService *service.EngagementService
	archiveService    *service.ArchiveService
	highlightService  *service.HighlightService
	feedService       *service.FeedService

	sweeper *lifecycle.Sweeper
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	storyRepo := repository.NewStoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	socialRepo := repository.NewSocialRepository(db)
	highlightRepo := repository.NewHighlightRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	urls := cache.NewURLCache(redisClient, cfg.Storage.GetPresignTTL)
	access := privacy.NewEvaluator(socialRepo)
	rules := lifecycle.Rules{
		StoryTTL:            cfg.Lifecycle.StoryTTL,
		SoftDeleteRetention: cfg.Lifecycle.SoftDeleteRetention,
	}

	sweeper := lifecycle.NewSweeper(rules, storyRepo, userRepo, store, cfg.Lifecycle.SweepBatchSize, log)

	return HandlerSet{
		log:     log,
		cfg:     cfg,
		sweeper: sweeper,
		storyService: service.NewStoryService(
			db, storyRepo, userRepo, engagementRepo, access, store, urls, redisClient, rules, cfg, log,
		),
		engagementService: service.NewEngagementService(storyRepo, engagementRepo, access, rules, log),
		archiveService:    service.NewArchiveService(storyRepo, engagementRepo, store, urls, rules, log),
		highlightService: service.NewHighlightService(
			db, storyRepo, highlightRepo, access, store, urls, rules, cfg, log,
		),
		feedService: service.NewFeedService(
			storyRepo, socialRepo, userRepo, cfg.Limits.FeedPageDefault, cfg.Limits.FeedPageMax, log,
		),
	}
}

// Sweeper exposes the shared sweep worker for the entry middleware and
// the cron scheduler.
func (h HandlerSet) Sweeper() *lifecycle.Sweeper { return h.sweeper }

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		stories := v1.Group("/stories")
		stories.POST("/presign", h.PresignStories)
		stories.POST("/confirm", h.ConfirmStory)
		stories.GET("/feed", h.Feed)
		stories.PATCH("/archive", h.ArchiveStory)
		stories.DELETE("/:storyId", h.DeleteStory)
		stories.POST("/:storyId/reactions", h.React)
		stories.DELETE("/:storyId/reactions", h.Unreact)
		stories.POST("/:storyId/comments", h.Comment)
		stories.POST("/:storyId/poll", h.VotePoll)
		stories.POST("/:storyId/quiz", h.AnswerQuiz)
		stories.POST("/:storyId/slider", h.RespondSlider)
		stories.GET("/:storyId/viewers", h.StoryViewers)
		stories.GET("/:storyId/stickers", h.StickerResults)

		users := v1.Group("/users/:userId")
		users.GET("/stories", h.UserStories)

		archive := users.Group("/archive")
		archive.GET("/stories", h.ArchivedStories)
		archive.GET("/stories/:storyId", h.ArchivedStory)
		archive.PATCH("/stories/:storyId", h.UnarchiveStory)

		trash := users.Group("/trash")
		trash.GET("", h.Trash)
		trash.PATCH("/:storyId/restore", h.RestoreStory)
		trash.PATCH("/:storyId/delete", h.PermanentDeleteStory)

		userHighlights := users.Group("/highlights")
		userHighlights.GET("", h.HighlightFolderDetail)
		userHighlights.POST("", h.AppendHighlight)
		userHighlights.DELETE("", h.RemoveHighlightByStory)
		userHighlights.GET("/folders", h.HighlightFolders)
		userHighlights.PATCH("/edit", h.EditHighlightFolder)
		userHighlights.DELETE("/delete", h.DeleteHighlightFolder)
		userHighlights.PATCH("/archive", h.ArchiveHighlightFolder)
		userHighlights.PATCH("/unarchive", h.UnarchiveHighlightFolder)
		userHighlights.GET("/picker", h.HighlightPicker)
		userHighlights.GET("/archived", h.ArchivedHighlightFolders)

		highlights := v1.Group("/highlights")
		highlights.POST("", h.CreateHighlightFolder)
		highlights.DELETE("/:highlightId", h.RemoveHighlightMember)
		highlights.POST("/cover/presign", h.HighlightCoverPresign)
		highlights.POST("/cover/default", h.HighlightDefaultCover)
	}
}

// respondError maps the error taxonomy to status codes in one place.
// Upstream failures carry the upstream error class in "type".
func (h HandlerSet) respondError(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unclassified error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	switch e.Kind {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Msg})
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": e.Msg})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Msg})
	case apperr.KindUpstream:
		h.log.Error().Err(e).Str("path", c.Request.URL.Path).Msg("upstream failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": e.Msg, "type": e.UpstreamType})
	default:
		h.log.Error().Err(e).Str("path", c.Request.URL.Path).Msg("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
