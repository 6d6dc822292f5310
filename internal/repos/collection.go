package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type CollectionFilter struct {
	SpeakerID *uuid.UUID
	Year      *int
	Query     string
}

// SpeakerCollectionCount is the per-speaker collection rollup used to
// maintain the denormalized counters.
type SpeakerCollectionCount struct {
	SpeakerID       uuid.UUID `gorm:"column:speaker_id"`
	CollectionCount int       `gorm:"column:collection_count"`
}

type CollectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Collection) ([]*types.Collection, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Collection, error)
	GetBySpeakerAndSlug(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID, slug string) (*types.Collection, error)
	List(ctx context.Context, tx *gorm.DB, filter CollectionFilter, page types.PageParams) ([]*types.Collection, int64, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Collection, error)
	ListByCategory(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, page types.PageParams) ([]*types.Collection, int64, error)
	UpsertBySpeakerSlug(ctx context.Context, tx *gorm.DB, row *types.Collection) error
	UpdateCover(ctx context.Context, tx *gorm.DB, id uuid.UUID, coverURL, thumbURL string) error
	UpdateCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, lectureCount, totalDurationSecs int) error
	AggregateBySpeaker(ctx context.Context, tx *gorm.DB) ([]SpeakerCollectionCount, error)
}

type collectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCollectionRepo(db *gorm.DB, baseLog *logger.Logger) CollectionRepo {
	repoLog := baseLog.With("repo", "CollectionRepo")
	return &collectionRepo{db: db, log: repoLog}
}

func (r *collectionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Collection) ([]*types.Collection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Collection{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *collectionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Collection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Collection
	if err := transaction.WithContext(ctx).
		Preload("Speaker").
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *collectionRepo) GetBySpeakerAndSlug(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID, slug string) (*types.Collection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Collection
	if err := transaction.WithContext(ctx).
		Where("speaker_id = ? AND slug = ?", speakerID, slug).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *collectionRepo) List(ctx context.Context, tx *gorm.DB, filter CollectionFilter, page types.PageParams) ([]*types.Collection, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Model(&types.Collection{})
	if filter.SpeakerID != nil {
		query = query.Where("speaker_id = ?", *filter.SpeakerID)
	}
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	results := []*types.Collection{}
	if err := query.
		Preload("Speaker").
		Order("year DESC, title ASC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *collectionRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Collection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*types.Collection{}
	if err := transaction.WithContext(ctx).
		Order("title ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *collectionRepo) ListByCategory(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, page types.PageParams) ([]*types.Collection, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if categoryID == uuid.Nil {
		return []*types.Collection{}, 0, nil
	}

	base := transaction.WithContext(ctx).
		Model(&types.Collection{}).
		Joins("JOIN collection_category cc ON cc.collection_id = collection.id").
		Where("cc.category_id = ?", categoryID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	results := []*types.Collection{}
	if err := base.
		Preload("Speaker").
		Order("cc.is_primary DESC, collection.year DESC, collection.title ASC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *collectionRepo) UpsertBySpeakerSlug(ctx context.Context, tx *gorm.DB, row *types.Collection) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "speaker_id"}, {Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "year", "cover_url", "thumb_url", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *collectionRepo) UpdateCover(ctx context.Context, tx *gorm.DB, id uuid.UUID, coverURL, thumbURL string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Collection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"cover_url": coverURL,
			"thumb_url": thumbURL,
		}).Error
}

func (r *collectionRepo) AggregateBySpeaker(ctx context.Context, tx *gorm.DB) ([]SpeakerCollectionCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []SpeakerCollectionCount{}
	if err := transaction.WithContext(ctx).
		Model(&types.Collection{}).
		Select("speaker_id, COUNT(*) AS collection_count").
		Group("speaker_id").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *collectionRepo) UpdateCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, lectureCount, totalDurationSecs int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Collection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"lecture_count":       lectureCount,
			"total_duration_secs": totalDurationSecs,
		}).Error
}
