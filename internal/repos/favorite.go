package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type FavoriteRepo interface {
	Add(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error
	Remove(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.Favorite, int64, error)
}

type favoriteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFavoriteRepo(db *gorm.DB, baseLog *logger.Logger) FavoriteRepo {
	repoLog := baseLog.With("repo", "FavoriteRepo")
	return &favoriteRepo{db: db, log: repoLog}
}

// Add is idempotent: the unique (user_id, lecture_id) pair absorbs repeats.
func (r *favoriteRepo) Add(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || lectureID == uuid.Nil {
		return nil
	}

	row := &types.Favorite{UserID: userID, LectureID: lectureID}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lecture_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *favoriteRepo) Remove(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || lectureID == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("user_id = ? AND lecture_id = ?", userID, lectureID).
		Delete(&types.Favorite{}).Error
}

func (r *favoriteRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.Favorite, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil {
		return []*types.Favorite{}, 0, nil
	}

	query := transaction.WithContext(ctx).
		Model(&types.Favorite{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	results := []*types.Favorite{}
	if err := query.
		Preload("Lecture").
		Preload("Lecture.Speaker").
		Order("created_at DESC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
