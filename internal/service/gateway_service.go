package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/observability"
	"github.com/noah-isme/campus-portal-api/internal/payment"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

// GatewayService manages payment gateway credentials for the admin panel.
type GatewayService interface {
	List(ctx context.Context, actor authz.Actor) (dto.GatewayListResponse, error)
	Save(ctx context.Context, actor authz.Actor, req dto.GatewaySaveRequest) (dto.GatewayResponse, error)
	ValidateKey(ctx context.Context, actor authz.Actor, req dto.KeyValidateRequest) (payment.KeyValidation, error)
}

type gatewayService struct {
	repo        repository.PaymentGatewayRepository
	activity    ActivityRecorder
	lock        *repository.KeyLock
	webhookBase string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGatewayService constructs the gateway service. webhookBase is the functions base URL
// used to derive default webhook endpoints.
func NewGatewayService(repo repository.PaymentGatewayRepository, activity ActivityRecorder, lock *repository.KeyLock, webhookBase string, validate *validator.Validate, logger zerolog.Logger) GatewayService {
	return &gatewayService{
		repo:        repo,
		activity:    activity,
		lock:        lock,
		webhookBase: webhookBase,
		validator:   validate,
		logger:      logger.With().Str("component", "gateway_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/campus-portal-api/internal/service/gateway"),
	}
}

func (s *gatewayService) List(ctx context.Context, actor authz.Actor) (dto.GatewayListResponse, error) {
	if !authz.CanManageGateways(actor) {
		return dto.GatewayListResponse{}, ErrForbidden
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		return dto.GatewayListResponse{}, err
	}

	return dto.NewGatewayListResponse(payment.Reconcile(rows, s.webhookBase)), nil
}

func (s *gatewayService) Save(ctx context.Context, actor authz.Actor, req dto.GatewaySaveRequest) (dto.GatewayResponse, error) {
	if !authz.CanManageGateways(actor) {
		return dto.GatewayResponse{}, ErrForbidden
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if err := s.validator.Struct(req); err != nil {
		return dto.GatewayResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "gateways.save", trace.WithAttributes(
		attribute.String("gateway.provider", req.Provider),
		attribute.String("gateway.mode", req.Mode),
		attribute.Bool("gateway.enabled", req.Enabled),
	))
	defer span.End()

	release, err := s.lock.Acquire(spanCtx, "gateway:"+req.Provider+":"+req.Mode)
	if err != nil {
		observability.GatewaySaves().WithLabelValues(req.Provider, req.Mode, "busy").Inc()
		return dto.GatewayResponse{}, err
	}
	defer release()

	gateway, err := s.repo.Find(spanCtx, req.Provider, req.Mode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.GatewayResponse{}, fmt.Errorf("load gateway: %w", err)
	}

	gateway.Provider = req.Provider
	gateway.Mode = req.Mode
	gateway.Enabled = req.Enabled
	gateway.PublicKey = strings.TrimSpace(req.PublicKey)
	gateway.MerchantID = strings.TrimSpace(req.MerchantID)
	gateway.BusinessName = strings.TrimSpace(req.BusinessName)
	// an omitted webhook keeps the stored one; new rows get the computed default
	if webhook := strings.TrimSpace(req.WebhookURL); webhook != "" {
		gateway.WebhookURL = webhook
	} else if gateway.WebhookURL == "" {
		gateway.WebhookURL = payment.WebhookURL(s.webhookBase, req.Provider)
	}
	if req.SecretKey != nil {
		gateway.SecretKey = strings.TrimSpace(*req.SecretKey)
	}
	if req.EncryptionKey != nil {
		gateway.EncryptionKey = strings.TrimSpace(*req.EncryptionKey)
	}

	if gateway.Enabled && gateway.SecretKey != "" {
		if check := payment.ValidateAPIKey(gateway.Provider, gateway.SecretKey); !check.Valid {
			observability.GatewaySaves().WithLabelValues(req.Provider, req.Mode, "invalid_key").Inc()
			return dto.GatewayResponse{}, &GatewayKeyError{Validation: check}
		}
	}

	saved, err := s.repo.Upsert(spanCtx, &gateway)
	if err != nil {
		span.RecordError(err)
		observability.GatewaySaves().WithLabelValues(req.Provider, req.Mode, "error").Inc()
		return dto.GatewayResponse{}, err
	}
	observability.GatewaySaves().WithLabelValues(req.Provider, req.Mode, "saved").Inc()

	if s.activity != nil {
		entityID := saved.ID
		if _, err := s.activity.Record(spanCtx, ActivityEntry{
			Actor:      actor,
			Action:     "payment_gateway.saved",
			EntityType: "payment_gateway",
			EntityID:   &entityID,
			Metadata: map[string]interface{}{
				"provider":    saved.Provider,
				"mode":        saved.Mode,
				"enabled":     saved.Enabled,
				"key_rotated": req.SecretKey != nil,
			},
		}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record gateway activity")
		}
	}

	return dto.NewGatewayResponse(saved), nil
}

func (s *gatewayService) ValidateKey(ctx context.Context, actor authz.Actor, req dto.KeyValidateRequest) (payment.KeyValidation, error) {
	if !authz.CanManageGateways(actor) {
		return payment.KeyValidation{}, ErrForbidden
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if err := s.validator.Struct(req); err != nil {
		return payment.KeyValidation{}, err
	}

	result := payment.ValidateAPIKey(req.Provider, strings.TrimSpace(req.SecretKey))
	outcome := "invalid"
	switch {
	case result.Valid:
		outcome = "valid"
	case result.IsPlaceholder:
		outcome = "placeholder"
	}
	observability.GatewayKeyChecks().WithLabelValues(req.Provider, outcome).Inc()
	return result, nil
}
