package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// ProfileRepository reads display profiles.
type ProfileRepository interface {
	FindByID(ctx context.Context, id uint) (models.Profile, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository constructs the profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindByID(ctx context.Context, id uint) (models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (r *profileRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Profile, error) {
	profiles := make(map[uint]models.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}
	var rows []models.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		profiles[row.ID] = row
	}
	return profiles, nil
}
