package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

// ProfileService resolves display profiles for the signed-in user.
type ProfileService interface {
	Me(ctx context.Context, actor authz.Actor) (dto.ProfileResponse, error)
}

type profileService struct {
	repo   repository.ProfileRepository
	logger zerolog.Logger
}

// NewProfileService constructs the profile service.
func NewProfileService(repo repository.ProfileRepository, logger zerolog.Logger) ProfileService {
	return &profileService{
		repo:   repo,
		logger: logger.With().Str("component", "profile_service").Logger(),
	}
}

// Me returns the caller's profile. A missing profile row yields a student fallback
// flagged with ProfileMissing instead of an error.
func (s *profileService) Me(ctx context.Context, actor authz.Actor) (dto.ProfileResponse, error) {
	if !actor.Authenticated() {
		return dto.ProfileResponse{}, ErrUnauthenticated
	}

	profile, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, fmt.Errorf("load profile: %w", err)
		}
		s.logger.Debug().Uint("user_id", actor.ID).Msg("profile not found, using fallback")
		return dto.ProfileResponse{
			ID:             actor.ID,
			Role:           models.RoleStudent,
			ProfileMissing: true,
		}, nil
	}

	role := authz.NormalizeRole(profile.Role)
	return dto.ProfileResponse{
		ID:          profile.ID,
		FullName:    profile.FullName,
		Email:       profile.Email,
		AvatarURL:   profile.AvatarURL,
		Role:        role,
		Faculty:     profile.Faculty,
		Department:  profile.Department,
		IsAdmin:     role == models.RoleAdmin,
		IsModerator: role == models.RoleModerator,
	}, nil
}
