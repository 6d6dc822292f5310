package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/types"
)

// Preferences are an opaque client-owned JSON object, capped so a misbehaving
// client cannot grow the row without bound.
const MaxPreferencesBytes = 16 * 1024

type UserService interface {
	GetProfile(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
	UpdatePreferences(ctx context.Context, tx *gorm.DB, userID uuid.UUID, prefs json.RawMessage) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo) UserService {
	serviceLog := baseLog.With("service", "UserService")
	return &userService{db: db, log: serviceLog, userRepo: userRepo}
}

func (s *userService) GetProfile(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	user, err := s.userRepo.GetByID(ctx, transaction, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("user")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *userService) UpdatePreferences(ctx context.Context, tx *gorm.DB, userID uuid.UUID, prefs json.RawMessage) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	if len(prefs) > MaxPreferencesBytes {
		return nil, apierr.Validation(fmt.Errorf("preferences exceed %d bytes", MaxPreferencesBytes))
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(prefs, &obj); err != nil || obj == nil {
		return nil, apierr.Validation(fmt.Errorf("preferences must be a JSON object"))
	}

	if err := s.userRepo.UpdatePreferences(ctx, transaction, userID, datatypes.JSON(prefs)); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return s.GetProfile(ctx, transaction, userID)
}
