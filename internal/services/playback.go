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

type PlaybackService interface {
	GetPosition(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) (*types.PlaybackPosition, error)
	SavePosition(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID, positionSecs int) (*types.PlaybackPosition, error)
	ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.PlaybackPosition, int64, error)
}

type playbackService struct {
	db           *gorm.DB
	log          *logger.Logger
	playbackRepo repos.PlaybackRepo
	lectureRepo  repos.LectureRepo
}

func NewPlaybackService(
	db *gorm.DB,
	baseLog *logger.Logger,
	playbackRepo repos.PlaybackRepo,
	lectureRepo repos.LectureRepo,
) PlaybackService {
	serviceLog := baseLog.With("service", "PlaybackService")
	return &playbackService{
		db:           db,
		log:          serviceLog,
		playbackRepo: playbackRepo,
		lectureRepo:  lectureRepo,
	}
}

func (s *playbackService) GetPosition(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID) (*types.PlaybackPosition, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	position, err := s.playbackRepo.GetByUserAndLecture(ctx, transaction, userID, lectureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("playback position")
		}
		return nil, fmt.Errorf("load playback position: %w", err)
	}
	return position, nil
}

// SavePosition upserts the user's offset in a lecture. The offset is clamped
// to [0, duration] when the lecture's duration is known.
func (s *playbackService) SavePosition(ctx context.Context, tx *gorm.DB, userID, lectureID uuid.UUID, positionSecs int) (*types.PlaybackPosition, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	lecture, err := s.lectureRepo.GetByID(ctx, transaction, lectureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("lecture")
		}
		return nil, fmt.Errorf("load lecture: %w", err)
	}

	if positionSecs < 0 {
		positionSecs = 0
	}
	if lecture.DurationSecs > 0 && positionSecs > lecture.DurationSecs {
		positionSecs = lecture.DurationSecs
	}

	row := &types.PlaybackPosition{
		UserID:       userID,
		LectureID:    lectureID,
		PositionSecs: positionSecs,
		DurationSecs: lecture.DurationSecs,
	}
	saved, err := s.playbackRepo.Upsert(ctx, transaction, row)
	if err != nil {
		return nil, fmt.Errorf("save playback position: %w", err)
	}
	return saved, nil
}

func (s *playbackService) ListRecent(ctx context.Context, tx *gorm.DB, userID uuid.UUID, page types.PageParams) ([]*types.PlaybackPosition, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	positions, total, err := s.playbackRepo.ListByUser(ctx, transaction, userID, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("list playback positions: %w", err)
	}
	return positions, total, nil
}
