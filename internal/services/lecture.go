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

type LectureService interface {
	GetLecture(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lecture, error)
	ListLectures(ctx context.Context, tx *gorm.DB, filter repos.LectureFilter, categorySlug string, page types.PageParams) ([]*types.Lecture, int64, error)
}

type lectureService struct {
	db           *gorm.DB
	log          *logger.Logger
	lectureRepo  repos.LectureRepo
	categoryRepo repos.CategoryRepo
}

func NewLectureService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lectureRepo repos.LectureRepo,
	categoryRepo repos.CategoryRepo,
) LectureService {
	serviceLog := baseLog.With("service", "LectureService")
	return &lectureService{
		db:           db,
		log:          serviceLog,
		lectureRepo:  lectureRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *lectureService) GetLecture(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	lecture, err := s.lectureRepo.GetByID(ctx, transaction, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("lecture")
		}
		return nil, fmt.Errorf("load lecture: %w", err)
	}
	return lecture, nil
}

// ListLectures applies the flat filters, or the category junction when a
// category slug is given. The two are mutually exclusive; the slug wins.
func (s *lectureService) ListLectures(ctx context.Context, tx *gorm.DB, filter repos.LectureFilter, categorySlug string, page types.PageParams) ([]*types.Lecture, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	if categorySlug != "" {
		category, err := s.categoryRepo.GetBySlug(ctx, transaction, categorySlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, apierr.NotFound("category")
			}
			return nil, 0, fmt.Errorf("load category: %w", err)
		}
		lectures, total, err := s.lectureRepo.ListByCategory(ctx, transaction, category.ID, page.Normalize())
		if err != nil {
			return nil, 0, fmt.Errorf("list lectures by category: %w", err)
		}
		return lectures, total, nil
	}

	lectures, total, err := s.lectureRepo.List(ctx, transaction, filter, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list lectures: %w", err)
	}
	return lectures, total, nil
}
