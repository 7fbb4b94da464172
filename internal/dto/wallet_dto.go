package dto

import (
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// WalletCreditRequest tops up a user's wallet from the admin panel.
type WalletCreditRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"omitempty,max=255"`
	Reference   string  `json:"reference" validate:"omitempty,max=128"`
}

// WalletTransactionResponse describes a ledger entry.
type WalletTransactionResponse struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// WalletResponse is a balance with its most recent transactions.
type WalletResponse struct {
	UserID       uint                        `json:"user_id"`
	Balance      float64                     `json:"balance"`
	Transactions []WalletTransactionResponse `json:"transactions"`
}

// NewWalletResponse converts a wallet and its ledger.
func NewWalletResponse(userID uint, wallet models.Wallet, transactions []models.WalletTransaction) WalletResponse {
	items := make([]WalletTransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		items = append(items, WalletTransactionResponse{
			ID:          tx.ID,
			Type:        tx.Type,
			Amount:      tx.Amount,
			Description: tx.Description,
			Reference:   tx.Reference,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return WalletResponse{UserID: userID, Balance: wallet.Balance, Transactions: items}
}

// Fee sources.
const (
	FeeSourceSettings = "settings"
	FeeSourceDefault  = "default"
)

// EventCreationFeeRequest updates the flat fee charged for paid events.
type EventCreationFeeRequest struct {
	Fee float64 `json:"fee" validate:"gte=0,lte=1000000"`
}

// EventCreationFeeResponse reports the fee in effect and where it came from.
type EventCreationFeeResponse struct {
	Fee       float64    `json:"fee"`
	Source    string     `json:"source"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
