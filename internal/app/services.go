package app

import (
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/services"
)

type Services struct {
	Tokens services.TokenVerifier

	Auth       services.AuthService
	User       services.UserService
	Speaker    services.SpeakerService
	Collection services.CollectionService
	Lecture    services.LectureService
	Category   services.CategoryService
	Favorite   services.FavoriteService
	Playback   services.PlaybackService
	Delivery   services.DeliveryService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")

	tokenVerifier := services.NewTokenVerifier(cfg.Auth, log)
	authService := services.NewAuthService(db, log, repos.User)
	userService := services.NewUserService(db, log, repos.User)
	speakerService := services.NewSpeakerService(db, log, repos.Speaker, repos.Collection)
	collectionService := services.NewCollectionService(db, log, repos.Collection, repos.Lecture)
	lectureService := services.NewLectureService(db, log, repos.Lecture, repos.Category)
	categoryService := services.NewCategoryService(db, log, repos.Category, repos.Lecture, repos.Collection)
	favoriteService := services.NewFavoriteService(db, log, repos.Favorite, repos.Lecture)
	playbackService := services.NewPlaybackService(db, log, repos.Playback, repos.Lecture)
	deliveryService := services.NewDeliveryService(db, log, repos.Lecture, clients.Bucket, clients.URLCache, cfg.Stream, cfg.S3.PresignTTL)

	return Services{
		Tokens:     tokenVerifier,
		Auth:       authService,
		User:       userService,
		Speaker:    speakerService,
		Collection: collectionService,
		Lecture:    lectureService,
		Category:   categoryService,
		Favorite:   favoriteService,
		Playback:   playbackService,
		Delivery:   deliveryService,
	}
}
