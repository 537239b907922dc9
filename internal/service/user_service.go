package service

import (
	"context"
	"fmt"

	"balemuya/internal/database"
	"balemuya/internal/domain"
	"balemuya/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) SaveUser(ctx context.Context, user *models.User) error {
	if user.TelegramID == "" {
		return fmt.Errorf("%w: telegram_id is required", database.ErrValidation)
	}
	if user.Role != "" && user.Role != models.RoleCustomer && user.Role != models.RolePro {
		return fmt.Errorf("%w: unknown role %q", database.ErrValidation, user.Role)
	}
	return s.repo.CreateOrUpdateUser(ctx, user)
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	return s.repo.GetUserByTelegramID(ctx, telegramID)
}
