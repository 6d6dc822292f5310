package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type FavoriteService interface {
	AddFavorite(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error
	RemoveFavorite(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error
	ListFavorites(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.Favorite, int64, error)
}

type favoriteService struct {
	db           *gorm.DB
	log          *logger.Logger
	favoriteRepo repos.FavoriteRepo
	lectureRepo  repos.LectureRepo
}

func NewFavoriteService(
	db *gorm.DB,
	baseLog *logger.Logger,
	favoriteRepo repos.FavoriteRepo,
	lectureRepo repos.LectureRepo,
) FavoriteService {
	serviceLog := baseLog.With("service", "FavoriteService")
	return &favoriteService{
		db:           db,
		log:          serviceLog,
		favoriteRepo: favoriteRepo,
		lectureRepo:  lectureRepo,
	}
}

// AddFavorite is idempotent; favoriting twice is a no-op. The lecture must
// exist.
func (s *favoriteService) AddFavorite(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	if _, err := s.lectureRepo.GetByID(ctx, transaction, lectureID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("lecture")
		}
		return fmt.Errorf("load lecture: %w", err)
	}

	if err := s.favoriteRepo.Add(ctx, transaction, userID, lectureID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite is idempotent; removing an absent favorite succeeds.
func (s *favoriteService) RemoveFavorite(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	if err := s.favoriteRepo.Remove(ctx, transaction, userID, lectureID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *favoriteService) ListFavorites(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.Favorite, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	favorites, total, err := s.favoriteRepo.ListByUser(ctx, transaction, userID, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	return favorites, total, nil
}
