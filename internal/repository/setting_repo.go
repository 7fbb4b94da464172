package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// SettingRepository stores platform key/value settings.
type SettingRepository interface {
	Get(ctx context.Context, key string) (models.PlatformSetting, error)
	Put(ctx context.Context, setting *models.PlatformSetting) error
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository constructs the settings repository.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) Get(ctx context.Context, key string) (models.PlatformSetting, error) {
	var setting models.PlatformSetting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		return models.PlatformSetting{}, err
	}
	return setting, nil
}

func (r *settingRepository) Put(ctx context.Context, setting *models.PlatformSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(setting).Error
}
