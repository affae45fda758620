package service

import (
	"context"
	"fmt"

	"accounts/internal/dto"
	"accounts/internal/entity"
	"accounts/internal/repository"
	"accounts/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ProfileService struct {
	users    repository.UserRepository
	validate *validator.Validate
	audit    SecurityAudit
}

func NewProfileService(users repository.UserRepository, validate *validator.Validate, audit SecurityAudit) *ProfileService {
	return &ProfileService{users: users, validate: validate, audit: audit}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// UpdateProfile changes only the optional profile fields; identity and
// security columns are not reachable from here.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileRequest) (*entity.User, error) {
	if err := validation.Struct(s.validate, input); err != nil {
		return nil, err
	}
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateFields(ctx, userID, input.Changes()); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *ProfileService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.audit.record(ctx, &userID, entity.AccountDeleted, nil)
	return nil
}
