package app

import (
	"github.com/lecternfm/lectern-backend/internal/db"
	"github.com/lecternfm/lectern-backend/internal/handlers"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Speaker    *handlers.SpeakerHandler
	Collection *handlers.CollectionHandler
	Lecture    *handlers.LectureHandler
	Category   *handlers.CategoryHandler
	Favorite   *handlers.FavoriteHandler
	Playback   *handlers.PlaybackHandler
	Delivery   *handlers.DeliveryHandler
}

func wireHandlers(log *logger.Logger, dbService *db.Service, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     handlers.NewHealthHandler(log, dbService),
		Auth:       handlers.NewAuthHandler(log, services.User),
		User:       handlers.NewUserHandler(log, services.User),
		Speaker:    handlers.NewSpeakerHandler(log, services.Speaker),
		Collection: handlers.NewCollectionHandler(log, services.Collection),
		Lecture:    handlers.NewLectureHandler(log, services.Lecture),
		Category:   handlers.NewCategoryHandler(log, services.Category),
		Favorite:   handlers.NewFavoriteHandler(log, services.Favorite),
		Playback:   handlers.NewPlaybackHandler(log, services.Playback),
		Delivery:   handlers.NewDeliveryHandler(log, services.Delivery),
	}
}
