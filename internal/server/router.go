package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lecternfm/lectern-backend/internal/handlers"
	"github.com/lecternfm/lectern-backend/internal/middleware"
	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	CORSOrigins []string

	HealthHandler     *handlers.HealthHandler
	AuthHandler       *handlers.AuthHandler
	UserHandler       *handlers.UserHandler
	SpeakerHandler    *handlers.SpeakerHandler
	CollectionHandler *handlers.CollectionHandler
	LectureHandler    *handlers.LectureHandler
	CategoryHandler   *handlers.CategoryHandler
	FavoriteHandler   *handlers.FavoriteHandler
	PlaybackHandler   *handlers.PlaybackHandler
	DeliveryHandler   *handlers.DeliveryHandler

	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
	Tracing        gin.HandlerFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	// Panics become the same envelope every other error uses; the cause goes
	// to the log, never to the client.
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if cfg.Log != nil {
			cfg.Log.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		}
		handlers.RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, errors.New("internal server error"))
		c.Abort()
	}))
	if cfg.Tracing != nil {
		router.Use(cfg.Tracing)
	}
	router.Use(middleware.Metrics())

	// Cors. Range must be allowed and Content-Range exposed or browser audio
	// elements cannot seek.
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Range", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Range", "Accept-Ranges", "Content-Length"},
		AllowCredentials: true,
	}))

	router.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, http.StatusNotFound, apierr.CodeNotFound, errors.New("route not found"))
	})

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api/v1")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	limitCatalog := cfg.RateLimiter.Limit(middleware.ClassCatalog)
	limitStream := cfg.RateLimiter.Limit(middleware.ClassStream)
	limitMutate := cfg.RateLimiter.Limit(middleware.ClassMutate)
	resolveUser := cfg.AuthMiddleware.ResolveUser()

	// Auth
	api.POST("/auth/sync", limitMutate, resolveUser, cfg.AuthHandler.Sync)

	// Current user
	api.GET("/me", limitCatalog, resolveUser, cfg.UserHandler.GetMe)
	api.PUT("/me/preferences", limitMutate, resolveUser, cfg.UserHandler.UpdatePreferences)
	api.GET("/me/favorites", limitCatalog, resolveUser, cfg.FavoriteHandler.ListFavorites)
	api.PUT("/me/favorites/:lectureID", limitMutate, resolveUser, cfg.FavoriteHandler.AddFavorite)
	api.DELETE("/me/favorites/:lectureID", limitMutate, resolveUser, cfg.FavoriteHandler.RemoveFavorite)
	api.GET("/me/playback", limitCatalog, resolveUser, cfg.PlaybackHandler.ListRecent)
	api.GET("/me/playback/:lectureID", limitCatalog, resolveUser, cfg.PlaybackHandler.GetPosition)
	api.PUT("/me/playback/:lectureID", limitMutate, resolveUser, cfg.PlaybackHandler.SavePosition)

	// Catalog
	api.GET("/speakers", limitCatalog, resolveUser, cfg.SpeakerHandler.ListSpeakers)
	api.GET("/speakers/:id", limitCatalog, resolveUser, cfg.SpeakerHandler.GetSpeaker)
	api.GET("/speakers/:id/collections", limitCatalog, resolveUser, cfg.SpeakerHandler.ListSpeakerCollections)
	api.GET("/collections", limitCatalog, resolveUser, cfg.CollectionHandler.ListCollections)
	api.GET("/collections/:id", limitCatalog, resolveUser, cfg.CollectionHandler.GetCollection)
	api.GET("/collections/:id/lectures", limitCatalog, resolveUser, cfg.CollectionHandler.ListCollectionLectures)
	api.GET("/lectures", limitCatalog, resolveUser, cfg.LectureHandler.ListLectures)
	api.GET("/lectures/:id", limitCatalog, resolveUser, cfg.LectureHandler.GetLecture)
	api.GET("/categories", limitCatalog, resolveUser, cfg.CategoryHandler.ListCategories)
	api.GET("/categories/:slug", limitCatalog, resolveUser, cfg.CategoryHandler.GetCategory)
	api.GET("/categories/:slug/lectures", limitCatalog, resolveUser, cfg.CategoryHandler.ListCategoryLectures)
	api.GET("/categories/:slug/collections", limitCatalog, resolveUser, cfg.CategoryHandler.ListCategoryCollections)

	// Audio delivery
	api.GET("/lectures/:id/audio-url", limitStream, resolveUser, cfg.DeliveryHandler.AudioURL)
	api.GET("/lectures/:id/stream", limitStream, resolveUser, cfg.DeliveryHandler.Stream)

	return router
}
