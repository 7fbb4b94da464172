package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/payment"
)

// GatewaySaveRequest creates or updates the credentials for one provider and mode.
// A nil SecretKey or EncryptionKey keeps the stored value.
type GatewaySaveRequest struct {
	Provider      string  `json:"provider" validate:"required,oneof=flutterwave korapay paystack"`
	Mode          string  `json:"mode" validate:"required,oneof=test live"`
	Enabled       bool    `json:"enabled"`
	PublicKey     string  `json:"public_key" validate:"omitempty,max=255"`
	SecretKey     *string `json:"secret_key" validate:"omitempty,max=255"`
	EncryptionKey *string `json:"encryption_key" validate:"omitempty,max=255"`
	MerchantID    string  `json:"merchant_id" validate:"omitempty,max=128"`
	BusinessName  string  `json:"business_name" validate:"omitempty,max=160"`
	WebhookURL    string  `json:"webhook_url" validate:"omitempty,url,max=512"`
}

// KeyValidateRequest asks for an inline key check without saving.
type KeyValidateRequest struct {
	Provider  string `json:"provider" validate:"required,oneof=flutterwave korapay paystack"`
	SecretKey string `json:"secret_key"`
}

// GatewayResponse is a gateway row with its credentials masked.
type GatewayResponse struct {
	ID               uint                  `json:"id,omitempty"`
	Provider         string                `json:"provider"`
	Mode             string                `json:"mode"`
	Enabled          bool                  `json:"enabled"`
	Configured       bool                  `json:"configured"`
	PublicKey        string                `json:"public_key"`
	HasSecretKey     bool                  `json:"has_secret_key"`
	SecretKeyHint    string                `json:"secret_key_hint,omitempty"`
	HasEncryptionKey bool                  `json:"has_encryption_key"`
	MerchantID       string                `json:"merchant_id"`
	BusinessName     string                `json:"business_name"`
	WebhookURL       string                `json:"webhook_url"`
	KeyStatus        payment.KeyValidation `json:"key_status"`
	UpdatedAt        *time.Time            `json:"updated_at,omitempty"`
}

// GatewayListResponse is the full provider grid with its readiness summary.
type GatewayListResponse struct {
	Gateways []GatewayResponse `json:"gateways"`
	Status   payment.Status    `json:"status"`
}

// NewGatewayResponse masks a gateway row for display.
func NewGatewayResponse(model models.PaymentGateway) GatewayResponse {
	response := GatewayResponse{
		ID:               model.ID,
		Provider:         model.Provider,
		Mode:             model.Mode,
		Enabled:          model.Enabled,
		Configured:       model.ID != 0,
		PublicKey:        model.PublicKey,
		HasSecretKey:     strings.TrimSpace(model.SecretKey) != "",
		SecretKeyHint:    MaskSecret(model.SecretKey),
		HasEncryptionKey: strings.TrimSpace(model.EncryptionKey) != "",
		MerchantID:       model.MerchantID,
		BusinessName:     model.BusinessName,
		WebhookURL:       model.WebhookURL,
		KeyStatus:        payment.ValidateAPIKey(model.Provider, model.SecretKey),
	}
	if !model.UpdatedAt.IsZero() {
		updated := model.UpdatedAt
		response.UpdatedAt = &updated
	}
	return response
}

// NewGatewayListResponse converts a reconciled grid into its response.
func NewGatewayListResponse(grid []models.PaymentGateway) GatewayListResponse {
	out := make([]GatewayResponse, 0, len(grid))
	for _, row := range grid {
		out = append(out, NewGatewayResponse(row))
	}
	return GatewayListResponse{Gateways: out, Status: payment.Summarize(grid)}
}

// MaskSecret keeps the last four characters of a secret. Short secrets are fully hidden.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
