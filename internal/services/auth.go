package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/types"
)

// AuthService mirrors identity-provider accounts into local user rows. The
// first authenticated request creates the row; later requests refresh
// email/display name when the claims drift. Premium is never written here.
type AuthService interface {
	SyncUser(ctx context.Context, tx *gorm.DB, identity *requestdata.Identity) (*types.User, error)
}

type authService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo) AuthService {
	serviceLog := baseLog.With("service", "AuthService")
	return &authService{db: db, log: serviceLog, userRepo: userRepo}
}

func (s *authService) SyncUser(ctx context.Context, tx *gorm.DB, identity *requestdata.Identity) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	if identity == nil || identity.Subject == "" {
		return nil, fmt.Errorf("sync user: missing subject")
	}

	user, err := s.userRepo.GetBySubject(ctx, transaction, identity.Subject)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load user by subject: %w", err)
		}
		// First sight of this subject. The upsert absorbs the race when
		// two first requests arrive together.
		created, err := s.userRepo.UpsertBySubject(ctx, transaction, &types.User{
			Subject:     identity.Subject,
			Email:       identity.Email,
			DisplayName: identity.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("provision user: %w", err)
		}
		s.log.Info("provisioned user", "user_id", created.ID)
		return created, nil
	}

	if user.Email != identity.Email || user.DisplayName != identity.Name {
		if err := s.userRepo.UpdateClaims(ctx, transaction, user.ID, identity.Email, identity.Name); err != nil {
			return nil, fmt.Errorf("refresh user claims: %w", err)
		}
		user.Email = identity.Email
		user.DisplayName = identity.Name
	}
	return user, nil
}
