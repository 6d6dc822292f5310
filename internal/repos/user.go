package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type UserRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	GetBySubject(ctx context.Context, tx *gorm.DB, subject string) (*types.User, error)
	UpsertBySubject(ctx context.Context, tx *gorm.DB, row *types.User) (*types.User, error)
	UpdateClaims(ctx context.Context, tx *gorm.DB, id uuid.UUID, email, displayName string) error
	UpdatePreferences(ctx context.Context, tx *gorm.DB, id uuid.UUID, prefs datatypes.JSON) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.User
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *userRepo) GetBySubject(ctx context.Context, tx *gorm.DB, subject string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.User
	if err := transaction.WithContext(ctx).
		Where("subject = ?", subject).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertBySubject inserts the row or, when the subject already exists,
// refreshes the claim-derived columns. Concurrent first requests for the same
// subject both land on the same row. The canonical row is re-read and
// returned; premium and preferences are never touched here.
func (r *userRepo) UpsertBySubject(ctx context.Context, tx *gorm.DB, row *types.User) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil, nil
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subject"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email", "display_name", "updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetBySubject(ctx, transaction, row.Subject)
}

func (r *userRepo) UpdateClaims(ctx context.Context, tx *gorm.DB, id uuid.UUID, email, displayName string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email":        email,
			"display_name": displayName,
		}).Error
}

func (r *userRepo) UpdatePreferences(ctx context.Context, tx *gorm.DB, id uuid.UUID, prefs datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if id == uuid.Nil {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		UpdateColumn("preferences", prefs).Error
}
