package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type PlaybackRepo interface {
	GetByUserAndLecture(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) (*types.PlaybackPosition, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.PlaybackPosition) (*types.PlaybackPosition, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.PlaybackPosition, int64, error)
}

type playbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlaybackRepo(db *gorm.DB, baseLog *logger.Logger) PlaybackRepo {
	repoLog := baseLog.With("repo", "PlaybackRepo")
	return &playbackRepo{db: db, log: repoLog}
}

func (r *playbackRepo) GetByUserAndLecture(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) (*types.PlaybackPosition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.PlaybackPosition
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND lecture_id = ?", userID, lectureID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes the position keyed by (user_id, lecture_id) and returns the
// stored row.
func (r *playbackRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.PlaybackPosition) (*types.PlaybackPosition, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil, nil
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "lecture_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"position_secs", "duration_secs", "updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByUserAndLecture(ctx, transaction, row.UserID, row.LectureID)
}

func (r *playbackRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.PlaybackPosition, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil {
		return []*types.PlaybackPosition{}, 0, nil
	}

	query := transaction.WithContext(ctx).
		Model(&types.PlaybackPosition{}).
		Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	results := []*types.PlaybackPosition{}
	if err := query.
		Preload("Lecture").
		Preload("Lecture.Speaker").
		Order("updated_at DESC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
