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

type LectureFilter struct {
	SpeakerID    *uuid.UUID
	CollectionID *uuid.UUID
	Query        string
}

// CollectionAggregate is the per-collection lecture rollup used to maintain
// the denormalized counters.
type CollectionAggregate struct {
	CollectionID      uuid.UUID `gorm:"column:collection_id"`
	LectureCount      int       `gorm:"column:lecture_count"`
	TotalDurationSecs int       `gorm:"column:total_duration_secs"`
}

type SpeakerAggregate struct {
	SpeakerID    uuid.UUID `gorm:"column:speaker_id"`
	LectureCount int       `gorm:"column:lecture_count"`
}

type LectureRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Lecture) ([]*types.Lecture, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lecture, error)
	GetByFileKey(ctx context.Context, tx *gorm.DB, fileKey string) (*types.Lecture, error)
	List(ctx context.Context, tx *gorm.DB, filter LectureFilter, page types.PageParams) ([]*types.Lecture, int64, error)
	ListByCollection(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, page types.PageParams) ([]*types.Lecture, int64, error)
	ListByCategory(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, page types.PageParams) ([]*types.Lecture, int64, error)
	IncrementPlayCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	UpsertByFileKey(ctx context.Context, tx *gorm.DB, row *types.Lecture) error
	UpsertBatchByFileKey(ctx context.Context, tx *gorm.DB, rows []*types.Lecture, batchSize int) error
	ListFileKeys(ctx context.Context, tx *gorm.DB) ([]string, error)
	Orphans(ctx context.Context, tx *gorm.DB) ([]*types.Lecture, error)
	SpeakerMismatches(ctx context.Context, tx *gorm.DB) ([]*types.Lecture, error)
	RepairSpeakerIDs(ctx context.Context, tx *gorm.DB) (int64, error)
	AggregateByCollection(ctx context.Context, tx *gorm.DB) ([]CollectionAggregate, error)
	AggregateBySpeaker(ctx context.Context, tx *gorm.DB) ([]SpeakerAggregate, error)
}

type lectureRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLectureRepo(db *gorm.DB, baseLog *logger.Logger) LectureRepo {
	repoLog := baseLog.With("repo", "LectureRepo")
	return &lectureRepo{db: db, log: repoLog}
}

func (r *lectureRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Lecture) ([]*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Lecture{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *lectureRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Lecture
	if err := transaction.WithContext(ctx).
		Preload("Speaker").
		Preload("Collection").
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *lectureRepo) GetByFileKey(ctx context.Context, tx *gorm.DB, fileKey string) (*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Lecture
	if err := transaction.WithContext(ctx).
		Where("file_key = ?", fileKey).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *lectureRepo) List(ctx context.Context, tx *gorm.DB, filter LectureFilter, page types.PageParams) ([]*types.Lecture, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Model(&types.Lecture{})
	if filter.SpeakerID != nil {
		query = query.Where("speaker_id = ?", *filter.SpeakerID)
	}
	if filter.CollectionID != nil {
		query = query.Where("collection_id = ?", *filter.CollectionID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	results := []*types.Lecture{}
	if err := query.
		Preload("Speaker").
		Preload("Collection").
		Order("title ASC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *lectureRepo) ListByCollection(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, page types.PageParams) ([]*types.Lecture, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if collectionID == uuid.Nil {
		return []*types.Lecture{}, 0, nil
	}

	query := transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Where("collection_id = ?", collectionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	results := []*types.Lecture{}
	if err := query.
		Order("position ASC, title ASC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *lectureRepo) ListByCategory(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, page types.PageParams) ([]*types.Lecture, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if categoryID == uuid.Nil {
		return []*types.Lecture{}, 0, nil
	}

	base := transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Joins("JOIN lecture_category lc ON lc.lecture_id = lecture.id").
		Where("lc.category_id = ?", categoryID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	results := []*types.Lecture{}
	if err := base.
		Preload("Speaker").
		Preload("Collection").
		Order("lc.is_primary DESC, lecture.title ASC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *lectureRepo) IncrementPlayCount(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Where("id = ?", id).
		UpdateColumn("play_count", gorm.Expr("play_count + 1")).Error
}

func (r *lectureRepo) UpsertByFileKey(ctx context.Context, tx *gorm.DB, row *types.Lecture) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "file_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"speaker_id", "collection_id", "title", "file_name", "file_size_bytes",
				"file_format", "duration_secs", "position", "updated_at",
			}),
		}).
		Create(row).Error
}

// UpsertBatchByFileKey loads rows in chunks with the same conflict handling
// as UpsertByFileKey. Used by the importer for incremental loads.
func (r *lectureRepo) UpsertBatchByFileKey(ctx context.Context, tx *gorm.DB, rows []*types.Lecture, batchSize int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		if err := transaction.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "file_key"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"speaker_id", "collection_id", "title", "file_name", "file_size_bytes",
					"file_format", "duration_secs", "position", "updated_at",
				}),
			}).
			Create(&chunk).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *lectureRepo) ListFileKeys(ctx context.Context, tx *gorm.DB) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	keys := []string{}
	if err := transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Pluck("file_key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// Orphans returns live lectures whose collection row is gone or soft deleted.
func (r *lectureRepo) Orphans(ctx context.Context, tx *gorm.DB) ([]*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*types.Lecture{}
	if err := transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Joins("LEFT JOIN collection c ON c.id = lecture.collection_id AND c.deleted_at IS NULL").
		Where("c.id IS NULL").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SpeakerMismatches returns lectures whose speaker reference disagrees with
// their collection's speaker.
func (r *lectureRepo) SpeakerMismatches(ctx context.Context, tx *gorm.DB) ([]*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []*types.Lecture{}
	if err := transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Joins("JOIN collection c ON c.id = lecture.collection_id").
		Where("c.speaker_id <> lecture.speaker_id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// RepairSpeakerIDs rewrites lecture.speaker_id from the owning collection and
// reports how many rows changed.
func (r *lectureRepo) RepairSpeakerIDs(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	result := transaction.WithContext(ctx).Exec(`
		UPDATE lecture
		SET speaker_id = (SELECT speaker_id FROM collection WHERE collection.id = lecture.collection_id)
		WHERE EXISTS (
			SELECT 1 FROM collection
			WHERE collection.id = lecture.collection_id
			  AND collection.speaker_id <> lecture.speaker_id
		)`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *lectureRepo) AggregateByCollection(ctx context.Context, tx *gorm.DB) ([]CollectionAggregate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []CollectionAggregate{}
	if err := transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Select("collection_id, COUNT(*) AS lecture_count, COALESCE(SUM(duration_secs), 0) AS total_duration_secs").
		Group("collection_id").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lectureRepo) AggregateBySpeaker(ctx context.Context, tx *gorm.DB) ([]SpeakerAggregate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	results := []SpeakerAggregate{}
	if err := transaction.WithContext(ctx).
		Model(&types.Lecture{}).
		Select("speaker_id, COUNT(*) AS lecture_count").
		Group("speaker_id").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
