package service

import (
	"context"
	"errors"
	"strings"

	"fittrack/app/internal/domain"
	"fittrack/app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProfileService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, update domain.ProfileUpdate) (*domain.User, error)
}

type profileService struct {
	userRepo repository.UserRepository
}

func NewProfileService(userRepo repository.UserRepository) ProfileService {
	return &profileService{userRepo: userRepo}
}

func (s *profileService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("get user", err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update domain.ProfileUpdate) (*domain.User, error) {
	if update.IsEmpty() {
		return nil, invalidInput("nothing to update")
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, invalidInput("name cannot be empty")
		}
		update.Name = &name
	}
	if update.Age != nil && (*update.Age <= 0 || *update.Age > 150) {
		return nil, invalidInput("age out of range")
	}
	if update.Weight != nil && *update.Weight <= 0 {
		return nil, invalidInput("weight must be positive")
	}
	if update.Height != nil && *update.Height <= 0 {
		return nil, invalidInput("height must be positive")
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeErr("update profile", err)
	}
	user.PasswordHash = ""
	return user, nil
}
