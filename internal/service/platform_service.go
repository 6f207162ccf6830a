package service

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/repository"
)

type PlatformService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	sa repository.SocialAccountRepository
}

func NewPlatformService(sa repository.SocialAccountRepository) PlatformService {
	return &platformService{sa: sa}
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts: %w", err)
	}
	return accounts, nil
}

// Delete disconnects an account. Scheduled posts targeting its platform
// will fail with a missing-account outcome when they come due.
func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	if userID == 0 {
		return ErrInvalidUser
	}
	if accountID == 0 {
		return ErrAccountNotFound
	}

	owned, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !owned {
		logger.L().Infof("social account %d not found for user %d", accountID, userID)
		return ErrAccountNotFound
	}

	if err := s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("error removing account: %w", err)
	}
	return nil
}
