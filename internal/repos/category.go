package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type CategoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Category) ([]*types.Category, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Category, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Category, error)
	ListChildren(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.Category, error)
	UpsertBySlug(ctx context.Context, tx *gorm.DB, row *types.Category) error
	SetParent(ctx context.Context, tx *gorm.DB, id uuid.UUID, parentID *uuid.UUID) error
	LinkLecture(ctx context.Context, tx *gorm.DB, lectureID, categoryID uuid.UUID, isPrimary bool) error
	LinkCollection(ctx context.Context, tx *gorm.DB, collectionID, categoryID uuid.UUID, isPrimary bool) error
	ClearPrimaryLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID) error
	ClearPrimaryCollection(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID) error
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	repoLog := baseLog.With("repo", "CategoryRepo")
	return &categoryRepo{db: db, log: repoLog}
}

func (r *categoryRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Category) ([]*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Category{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *categoryRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Category
	if err := transaction.WithContext(ctx).
		Where("slug = ?", slug).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *categoryRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*types.Category{}
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *categoryRepo) ListChildren(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if parentID == uuid.Nil {
		return []*types.Category{}, nil
	}

	results := []*types.Category{}
	if err := transaction.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *categoryRepo) UpsertBySlug(ctx context.Context, tx *gorm.DB, row *types.Category) error {
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
				"name", "parent_id", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *categoryRepo) SetParent(ctx context.Context, tx *gorm.DB, id uuid.UUID, parentID *uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Category{}).
		Where("id = ?", id).
		Update("parent_id", parentID).Error
}

func (r *categoryRepo) LinkLecture(ctx context.Context, tx *gorm.DB, lectureID, categoryID uuid.UUID, isPrimary bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if lectureID == uuid.Nil || categoryID == uuid.Nil {
		return nil
	}

	// A lecture holds at most one primary category.
	if isPrimary {
		if err := r.ClearPrimaryLecture(ctx, transaction, lectureID); err != nil {
			return err
		}
	}

	row := &types.LectureCategory{
		LectureID:  lectureID,
		CategoryID: categoryID,
		IsPrimary:  isPrimary,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lecture_id"}, {Name: "category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_primary"}),
		}).
		Create(row).Error
}

func (r *categoryRepo) LinkCollection(ctx context.Context, tx *gorm.DB, collectionID, categoryID uuid.UUID, isPrimary bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if collectionID == uuid.Nil || categoryID == uuid.Nil {
		return nil
	}

	if isPrimary {
		if err := r.ClearPrimaryCollection(ctx, transaction, collectionID); err != nil {
			return err
		}
	}

	row := &types.CollectionCategory{
		CollectionID: collectionID,
		CategoryID:   categoryID,
		IsPrimary:    isPrimary,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection_id"}, {Name: "category_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_primary"}),
		}).
		Create(row).Error
}

func (r *categoryRepo) ClearPrimaryLecture(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.LectureCategory{}).
		Where("lecture_id = ? AND is_primary", lectureID).
		UpdateColumn("is_primary", false).Error
}

func (r *categoryRepo) ClearPrimaryCollection(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.CollectionCategory{}).
		Where("collection_id = ? AND is_primary", collectionID).
		UpdateColumn("is_primary", false).Error
}
