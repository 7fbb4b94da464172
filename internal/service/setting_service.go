package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

// DefaultEventCreationFee applies when no fee has been stored in platform settings.
const DefaultEventCreationFee = 2000

// SettingService reads and updates platform settings.
type SettingService interface {
	EventCreationFee(ctx context.Context) (dto.EventCreationFeeResponse, error)
	UpdateEventCreationFee(ctx context.Context, actor authz.Actor, req dto.EventCreationFeeRequest) (dto.EventCreationFeeResponse, error)
}

type settingService struct {
	repo       repository.SettingRepository
	activity   ActivityRecorder
	defaultFee float64
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewSettingService constructs the settings service. A non-positive defaultFee falls back
// to DefaultEventCreationFee.
func NewSettingService(repo repository.SettingRepository, activity ActivityRecorder, defaultFee float64, validate *validator.Validate, logger zerolog.Logger) SettingService {
	if defaultFee <= 0 {
		defaultFee = DefaultEventCreationFee
	}
	return &settingService{
		repo:       repo,
		activity:   activity,
		defaultFee: defaultFee,
		validator:  validate,
		logger:     logger.With().Str("component", "setting_service").Logger(),
		now:        time.Now,
	}
}

func (s *settingService) EventCreationFee(ctx context.Context) (dto.EventCreationFeeResponse, error) {
	setting, err := s.repo.Get(ctx, models.SettingEventCreationFee)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EventCreationFeeResponse{Fee: s.defaultFee, Source: dto.FeeSourceDefault}, nil
		}
		return dto.EventCreationFeeResponse{}, fmt.Errorf("load event creation fee: %w", err)
	}

	fee, err := strconv.ParseFloat(setting.Value, 64)
	if err != nil || fee < 0 {
		s.logger.Warn().Str("value", setting.Value).Msg("stored event creation fee is not a valid number, using default")
		return dto.EventCreationFeeResponse{Fee: s.defaultFee, Source: dto.FeeSourceDefault}, nil
	}

	updated := setting.UpdatedAt
	return dto.EventCreationFeeResponse{Fee: fee, Source: dto.FeeSourceSettings, UpdatedAt: &updated}, nil
}

func (s *settingService) UpdateEventCreationFee(ctx context.Context, actor authz.Actor, req dto.EventCreationFeeRequest) (dto.EventCreationFeeResponse, error) {
	if !authz.CanManageSettings(actor) {
		return dto.EventCreationFeeResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.EventCreationFeeResponse{}, err
	}

	setting := models.PlatformSetting{
		Key:       models.SettingEventCreationFee,
		Value:     strconv.FormatFloat(req.Fee, 'f', -1, 64),
		UpdatedBy: actor.ID,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, &setting); err != nil {
		return dto.EventCreationFeeResponse{}, err
	}

	if s.activity != nil {
		if _, err := s.activity.Record(ctx, ActivityEntry{
			Actor:      actor,
			Action:     "settings.event_creation_fee_updated",
			EntityType: "platform_setting",
			Metadata:   map[string]interface{}{"fee": req.Fee},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record settings activity")
		}
	}

	updated := setting.UpdatedAt
	return dto.EventCreationFeeResponse{Fee: req.Fee, Source: dto.FeeSourceSettings, UpdatedAt: &updated}, nil
}
