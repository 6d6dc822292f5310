package app

import (
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/repos"
)

type Repos struct {
	Speaker    repos.SpeakerRepo
	Collection repos.CollectionRepo
	Lecture    repos.LectureRepo
	Category   repos.CategoryRepo
	User       repos.UserRepo
	Favorite   repos.FavoriteRepo
	Playback   repos.PlaybackRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Speaker:    repos.NewSpeakerRepo(db, log),
		Collection: repos.NewCollectionRepo(db, log),
		Lecture:    repos.NewLectureRepo(db, log),
		Category:   repos.NewCategoryRepo(db, log),
		User:       repos.NewUserRepo(db, log),
		Favorite:   repos.NewFavoriteRepo(db, log),
		Playback:   repos.NewPlaybackRepo(db, log),
	}
}
