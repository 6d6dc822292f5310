package app

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/server"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	var tracing gin.HandlerFunc
	if cfg.OTel.Enabled {
		tracing = otelgin.Middleware(cfg.OTel.ServiceName)
	}
	return server.NewRouter(server.RouterConfig{
		Log:               log,
		CORSOrigins:       cfg.CORSOrigins,
		HealthHandler:     handlers.Health,
		AuthHandler:       handlers.Auth,
		UserHandler:       handlers.User,
		SpeakerHandler:    handlers.Speaker,
		CollectionHandler: handlers.Collection,
		LectureHandler:    handlers.Lecture,
		CategoryHandler:   handlers.Category,
		FavoriteHandler:   handlers.Favorite,
		PlaybackHandler:   handlers.Playback,
		DeliveryHandler:   handlers.Delivery,
		AuthMiddleware:    middleware.Auth,
		RateLimiter:       middleware.RateLimiter,
		Tracing:           tracing,
	})
}
