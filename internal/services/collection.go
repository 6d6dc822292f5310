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

type CollectionService interface {
	GetCollection(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Collection, error)
	ListCollections(ctx context.Context, tx *gorm.DB, filter repos.CollectionFilter, page types.PageParams) ([]*types.Collection, int64, error)
	ListCollectionLectures(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, page types.PageParams) ([]*types.Lecture, int64, error)
}

type collectionService struct {
	db             *gorm.DB
	log            *logger.Logger
	collectionRepo repos.CollectionRepo
	lectureRepo    repos.LectureRepo
}

func NewCollectionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	collectionRepo repos.CollectionRepo,
	lectureRepo repos.LectureRepo,
) CollectionService {
	serviceLog := baseLog.With("service", "CollectionService")
	return &collectionService{
		db:             db,
		log:            serviceLog,
		collectionRepo: collectionRepo,
		lectureRepo:    lectureRepo,
	}
}

func (s *collectionService) GetCollection(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Collection, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	collection, err := s.collectionRepo.GetByID(ctx, transaction, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("collection")
		}
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return collection, nil
}

func (s *collectionService) ListCollections(ctx context.Context, tx *gorm.DB, filter repos.CollectionFilter, page types.PageParams) ([]*types.Collection, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	collections, total, err := s.collectionRepo.List(ctx, transaction, filter, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list collections: %w", err)
	}
	return collections, total, nil
}

func (s *collectionService) ListCollectionLectures(ctx context.Context, tx *gorm.DB, collectionID uuid.UUID, page types.PageParams) ([]*types.Lecture, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	if _, err := s.GetCollection(ctx, transaction, collectionID); err != nil {
		return nil, 0, err
	}

	lectures, total, err := s.lectureRepo.ListByCollection(ctx, transaction, collectionID, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list collection lectures: %w", err)
	}
	return lectures, total, nil
}
