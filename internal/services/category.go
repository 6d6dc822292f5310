package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type CategoryService interface {
	Tree(ctx context.Context, tx *gorm.DB) ([]*types.Category, error)
	Flat(ctx context.Context, tx *gorm.DB) ([]*types.Category, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Category, error)
	ListLectures(ctx context.Context, tx *gorm.DB, slug string, page types.PageParams) ([]*types.Lecture, int64, error)
	ListCollections(ctx context.Context, tx *gorm.DB, slug string, page types.PageParams) ([]*types.Collection, int64, error)
}

type categoryService struct {
	db             *gorm.DB
	log            *logger.Logger
	categoryRepo   repos.CategoryRepo
	lectureRepo    repos.LectureRepo
	collectionRepo repos.CollectionRepo
}

func NewCategoryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	categoryRepo repos.CategoryRepo,
	lectureRepo repos.LectureRepo,
	collectionRepo repos.CollectionRepo,
) CategoryService {
	serviceLog := baseLog.With("service", "CategoryService")
	return &categoryService{
		db:             db,
		log:            serviceLog,
		categoryRepo:   categoryRepo,
		lectureRepo:    lectureRepo,
		collectionRepo: collectionRepo,
	}
}

// Tree returns root categories with children nested. The whole table is
// loaded at once; the tree is small and read-heavy.
func (s *categoryService) Tree(ctx context.Context, tx *gorm.DB) ([]*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	all, err := s.categoryRepo.ListAll(ctx, transaction)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return buildTree(all), nil
}

func (s *categoryService) Flat(ctx context.Context, tx *gorm.DB) ([]*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	all, err := s.categoryRepo.ListAll(ctx, transaction)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return all, nil
}

func (s *categoryService) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Category, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	category, err := s.categoryRepo.GetBySlug(ctx, transaction, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("category")
		}
		return nil, fmt.Errorf("load category: %w", err)
	}

	children, err := s.categoryRepo.ListChildren(ctx, transaction, category.ID)
	if err != nil {
		return nil, fmt.Errorf("list category children: %w", err)
	}
	category.Children = children
	return category, nil
}

func (s *categoryService) ListLectures(ctx context.Context, tx *gorm.DB, slug string, page types.PageParams) ([]*types.Lecture, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	category, err := s.GetBySlug(ctx, transaction, slug)
	if err != nil {
		return nil, 0, err
	}

	lectures, total, err := s.lectureRepo.ListByCategory(ctx, transaction, category.ID, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list category lectures: %w", err)
	}
	return lectures, total, nil
}

func (s *categoryService) ListCollections(ctx context.Context, tx *gorm.DB, slug string, page types.PageParams) ([]*types.Collection, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	category, err := s.GetBySlug(ctx, transaction, slug)
	if err != nil {
		return nil, 0, err
	}

	collections, total, err := s.collectionRepo.ListByCategory(ctx, transaction, category.ID, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list category collections: %w", err)
	}
	return collections, total, nil
}

func buildTree(all []*types.Category) []*types.Category {
	byID := make(map[string]*types.Category, len(all))
	for _, c := range all {
		c.Children = nil
		byID[c.ID.String()] = c
	}

	roots := []*types.Category{}
	for _, c := range all {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		parent, ok := byID[c.ParentID.String()]
		if !ok {
			// Orphaned by a deleted parent; surface at the root.
			roots = append(roots, c)
			continue
		}
		parent.Children = append(parent.Children, c)
	}
	return roots
}
