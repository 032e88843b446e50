package service

import (
	"context"

	"calsync-api/core/constants"
	"calsync-api/core/errors"
	"calsync-api/modules/auth/dto"
	"calsync-api/modules/auth/repository"

	"github.com/google/uuid"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error)
	UpdateSyncHorizon(ctx context.Context, userID uuid.UUID, months int) (*dto.ProfileResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.NewAppError(errors.ErrUserNotFound, "user not found", nil)
	}
	return &dto.ProfileResponse{
		ID:                user.ID.String(),
		Email:             user.Email,
		DisplayName:       user.DisplayName,
		SyncHorizonMonths: user.SyncHorizonMonths,
	}, nil
}

// UpdateSyncHorizon sets how far back a full resync reaches.
func (s *userService) UpdateSyncHorizon(ctx context.Context, userID uuid.UUID, months int) (*dto.ProfileResponse, error) {
	if months < constants.MinSyncHorizonMonths || months > constants.MaxSyncHorizonMonths {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "sync horizon out of range", nil)
	}
	if err := s.userRepo.UpdateSyncHorizon(ctx, userID, months); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}
