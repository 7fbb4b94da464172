package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// WalletRepository reads balances and applies credits.
type WalletRepository interface {
	Find(ctx context.Context, userID uint) (models.Wallet, error)
	Credit(ctx context.Context, userID uint, amount float64, description, reference string) (models.Wallet, error)
	ListTransactions(ctx context.Context, userID uint, limit int) ([]models.WalletTransaction, error)
}

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository constructs the wallet repository.
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

// Find returns the user's wallet, or a zero balance wallet when none exists yet.
func (r *walletRepository) Find(ctx context.Context, userID uint) (models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Wallet{UserID: userID}, nil
	}
	if err != nil {
		return models.Wallet{}, err
	}
	return wallet, nil
}

func (r *walletRepository) Credit(ctx context.Context, userID uint, amount float64, description, reference string) (models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(models.Wallet{UserID: userID}).FirstOrCreate(&wallet).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Wallet{}).
			Where("id = ?", wallet.ID).
			UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.WalletTransaction{
			WalletID:    wallet.ID,
			UserID:      userID,
			Type:        models.WalletCredit,
			Amount:      amount,
			Description: description,
			Reference:   reference,
		}).Error; err != nil {
			return err
		}

		return tx.First(&wallet, wallet.ID).Error
	})
	if err != nil {
		return models.Wallet{}, err
	}
	return wallet, nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, userID uint, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var transactions []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}
