package models

import "time"

// Wallet transaction types.
const (
	WalletCredit = "credit"
	WalletDebit  = "debit"
)

// Wallet is the single balance held by a user.
type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Balance   float64   `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WalletTransaction records every credit or debit applied to a wallet. Amount is always positive.
type WalletTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WalletID    uint      `gorm:"not null;index" json:"wallet_id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Type        string    `gorm:"size:16;not null;index" json:"type"`
	Amount      float64   `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description string    `gorm:"size:255;not null" json:"description"`
	Reference   string    `gorm:"size:128;index" json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
}
