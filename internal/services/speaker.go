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

type SpeakerService interface {
	GetSpeaker(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Speaker, error)
	ListSpeakers(ctx context.Context, tx *gorm.DB, filter repos.SpeakerFilter, page types.PageParams) ([]*types.Speaker, int64, error)
	ListSpeakerCollections(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID, page types.PageParams) ([]*types.Collection, int64, error)
}

type speakerService struct {
	db             *gorm.DB
	log            *logger.Logger
	speakerRepo    repos.SpeakerRepo
	collectionRepo repos.CollectionRepo
}

func NewSpeakerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	speakerRepo repos.SpeakerRepo,
	collectionRepo repos.CollectionRepo,
) SpeakerService {
	serviceLog := baseLog.With("service", "SpeakerService")
	return &speakerService{
		db:             db,
		log:            serviceLog,
		speakerRepo:    speakerRepo,
		collectionRepo: collectionRepo,
	}
}

func (s *speakerService) GetSpeaker(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Speaker, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	speaker, err := s.speakerRepo.GetByID(ctx, transaction, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("speaker")
		}
		return nil, fmt.Errorf("load speaker: %w", err)
	}
	return speaker, nil
}

func (s *speakerService) ListSpeakers(ctx context.Context, tx *gorm.DB, filter repos.SpeakerFilter, page types.PageParams) ([]*types.Speaker, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	speakers, total, err := s.speakerRepo.List(ctx, transaction, filter, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list speakers: %w", err)
	}
	return speakers, total, nil
}

func (s *speakerService) ListSpeakerCollections(ctx context.Context, tx *gorm.DB, speakerID uuid.UUID, page types.PageParams) ([]*types.Collection, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	// 404 for unknown speakers rather than an empty list.
	if _, err := s.GetSpeaker(ctx, transaction, speakerID); err != nil {
		return nil, 0, err
	}

	filter := repos.CollectionFilter{SpeakerID: &speakerID}
	collections, total, err := s.collectionRepo.List(ctx, transaction, filter, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list speaker collections: %w", err)
	}
	return collections, total, nil
}
