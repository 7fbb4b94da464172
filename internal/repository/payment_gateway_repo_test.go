package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func TestPaymentGatewayRepositoryUpsertDoesNotDuplicate(t *testing.T) {
	db := setupContentTestDB(t, &models.PaymentGateway{})
	repo := NewPaymentGatewayRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &models.PaymentGateway{Provider: "Paystack", Mode: "live", Enabled: false, SecretKey: "sk_live_first123456"})
	require.NoError(t, err)
	require.Equal(t, "paystack", first.Provider)

	second, err := repo.Upsert(ctx, &models.PaymentGateway{Provider: "paystack", Mode: "live", Enabled: true, SecretKey: "sk_live_second12345", BusinessName: "Campus Store"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.Enabled)
	require.Equal(t, "sk_live_second12345", second.SecretKey)
	require.Equal(t, "Campus Store", second.BusinessName)

	var count int64
	require.NoError(t, db.Model(&models.PaymentGateway{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	_, err = repo.Upsert(ctx, &models.PaymentGateway{Provider: "paystack", Mode: "test"})
	require.NoError(t, err)

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
