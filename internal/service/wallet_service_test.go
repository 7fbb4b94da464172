package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

func TestWalletServiceCreditIsAdminOnly(t *testing.T) {
	db := setupServiceDB(t, &models.Wallet{}, &models.WalletTransaction{})
	activity := &memoryActivityRepo{}
	svc := NewWalletService(repository.NewWalletRepository(db), NewActivityService(activity, testValidator(), testLogger()), testValidator(), testLogger())
	ctx := context.Background()

	_, err := svc.Credit(ctx, actorModerator, actorStudent.ID, dto.WalletCreditRequest{Amount: 100})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Credit(ctx, actorAdmin, actorStudent.ID, dto.WalletCreditRequest{Amount: -5})
	require.Error(t, err)

	wallet, err := svc.Credit(ctx, actorAdmin, actorStudent.ID, dto.WalletCreditRequest{Amount: 2500})
	require.NoError(t, err)
	require.Equal(t, 2500.0, wallet.Balance)
	require.Len(t, wallet.Transactions, 1)
	require.Equal(t, models.WalletCredit, wallet.Transactions[0].Type)
	require.Equal(t, "Wallet top-up", wallet.Transactions[0].Description)
	require.Equal(t, "admin:2", wallet.Transactions[0].Reference)

	require.Len(t, activity.entries, 1)
	require.Equal(t, "wallet.credited", activity.entries[0].Action)

	mine, err := svc.Get(ctx, actorStudent)
	require.NoError(t, err)
	require.Equal(t, 2500.0, mine.Balance)

	_, err = svc.Get(ctx, authz.Actor{})
	require.ErrorIs(t, err, ErrUnauthenticated)
}
