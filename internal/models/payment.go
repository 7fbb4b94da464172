package models

import "time"

// Supported payment providers.
const (
	ProviderFlutterwave = "flutterwave"
	ProviderKorapay     = "korapay"
	ProviderPaystack    = "paystack"
)

// Gateway modes.
const (
	GatewayModeTest = "test"
	GatewayModeLive = "live"
)

// PaymentGateway holds the credentials for one provider in one mode. (Provider, Mode) is unique.
type PaymentGateway struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Provider      string    `gorm:"size:32;not null;uniqueIndex:idx_gateway_provider_mode,priority:1" json:"provider"`
	Mode          string    `gorm:"size:8;not null;uniqueIndex:idx_gateway_provider_mode,priority:2" json:"mode"`
	Enabled       bool      `gorm:"not null;default:false" json:"enabled"`
	PublicKey     string    `gorm:"size:255" json:"public_key"`
	SecretKey     string    `gorm:"size:255" json:"-"`
	EncryptionKey string    `gorm:"size:255" json:"-"`
	MerchantID    string    `gorm:"size:128" json:"merchant_id"`
	BusinessName  string    `gorm:"size:160" json:"business_name"`
	WebhookURL    string    `gorm:"size:512" json:"webhook_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
