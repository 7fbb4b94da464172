package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// PaymentGatewayRepository stores provider credentials, one row per provider and mode.
type PaymentGatewayRepository interface {
	List(ctx context.Context) ([]models.PaymentGateway, error)
	Find(ctx context.Context, provider, mode string) (models.PaymentGateway, error)
	Upsert(ctx context.Context, gateway *models.PaymentGateway) (models.PaymentGateway, error)
}

type paymentGatewayRepository struct {
	db *gorm.DB
}

// NewPaymentGatewayRepository constructs the gateway repository.
func NewPaymentGatewayRepository(db *gorm.DB) PaymentGatewayRepository {
	return &paymentGatewayRepository{db: db}
}

func (r *paymentGatewayRepository) List(ctx context.Context) ([]models.PaymentGateway, error) {
	var gateways []models.PaymentGateway
	if err := r.db.WithContext(ctx).Order("provider ASC, mode ASC").Find(&gateways).Error; err != nil {
		return nil, err
	}
	return gateways, nil
}

func (r *paymentGatewayRepository) Find(ctx context.Context, provider, mode string) (models.PaymentGateway, error) {
	var gateway models.PaymentGateway
	if err := r.db.WithContext(ctx).
		Where("LOWER(provider) = ? AND LOWER(mode) = ?", strings.ToLower(provider), strings.ToLower(mode)).
		First(&gateway).Error; err != nil {
		return models.PaymentGateway{}, err
	}
	return gateway, nil
}

// Upsert writes the row keyed by (provider, mode) and returns the stored state. The
// primary key of the argument is ignored so the unique pair stays the only conflict target.
func (r *paymentGatewayRepository) Upsert(ctx context.Context, input *models.PaymentGateway) (models.PaymentGateway, error) {
	gateway := *input
	gateway.ID = 0
	gateway.CreatedAt = time.Time{}
	gateway.Provider = strings.ToLower(strings.TrimSpace(gateway.Provider))
	gateway.Mode = strings.ToLower(strings.TrimSpace(gateway.Mode))

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}, {Name: "mode"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled", "public_key", "secret_key", "encryption_key",
			"merchant_id", "business_name", "webhook_url", "updated_at",
		}),
	}).Create(&gateway).Error
	if err != nil {
		return models.PaymentGateway{}, err
	}

	return r.Find(ctx, gateway.Provider, gateway.Mode)
}
