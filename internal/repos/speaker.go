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

// SpeakerFilter narrows List. Query matches the name case-insensitively.
type SpeakerFilter struct {
	Query   string
	Premium *bool
}

type SpeakerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Speaker) ([]*types.Speaker, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Speaker, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Speaker, error)
	List(ctx context.Context, tx *gorm.DB, filter SpeakerFilter, page types.PageParams) ([]*types.Speaker, int64, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Speaker, error)
	UpsertBySlug(ctx context.Context, tx *gorm.DB, row *types.Speaker) error
	UpdateImages(ctx context.Context, tx *gorm.DB, id uuid.UUID, imageURL, thumbURL string) error
	UpdateCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, lectureCount, collectionCount int) error
}

type speakerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpeakerRepo(db *gorm.DB, baseLog *logger.Logger) SpeakerRepo {
	repoLog := baseLog.With("repo", "SpeakerRepo")
	return &speakerRepo{db: db, log: repoLog}
}

func (r *speakerRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Speaker) ([]*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Speaker{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *speakerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Speaker
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *speakerRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Speaker
	if err := transaction.WithContext(ctx).
		Where("slug = ?", slug).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *speakerRepo) List(ctx context.Context, tx *gorm.DB, filter SpeakerFilter, page types.PageParams) ([]*types.Speaker, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Model(&types.Speaker{})
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if filter.Premium != nil {
		query = query.Where("premium = ?", *filter.Premium)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	results := []*types.Speaker{}
	if err := query.
		Order("name ASC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *speakerRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*types.Speaker{}
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *speakerRepo) UpsertBySlug(ctx context.Context, tx *gorm.DB, row *types.Speaker) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "bio", "image_url", "thumb_url", "premium", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *speakerRepo) UpdateImages(ctx context.Context, tx *gorm.DB, id uuid.UUID, imageURL, thumbURL string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Speaker{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"image_url": imageURL,
			"thumb_url": thumbURL,
		}).Error
}

func (r *speakerRepo) UpdateCounts(ctx context.Context, tx *gorm.DB, id uuid.UUID, lectureCount, collectionCount int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Speaker{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"lecture_count":    lectureCount,
			"collection_count": collectionCount,
		}).Error
}
