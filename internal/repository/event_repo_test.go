package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

func eventTestRepos(t *testing.T) (*gorm.DB, EventRepository, WalletRepository) {
	t.Helper()
	db := setupContentTestDB(t, &models.Event{}, &models.EventTicket{}, &models.Wallet{}, &models.WalletTransaction{})
	return db, NewEventRepository(db), NewWalletRepository(db)
}

func paidEvent(creator uint) models.Event {
	return models.Event{
		Title:           "Hackathon",
		Description:     "48 hours",
		Location:        "Engineering Hall",
		EventDate:       time.Now().Add(72 * time.Hour),
		EventType:       "competition",
		RequiresTickets: true,
		Price:           1500,
		CreatedBy:       creator,
	}
}

func TestEventRepositoryInsufficientBalanceBlocksCreation(t *testing.T) {
	db, events, wallets := eventTestRepos(t)
	ctx := context.Background()

	_, err := wallets.Credit(ctx, 3, 1999, "top up", "")
	require.NoError(t, err)

	event := paidEvent(3)
	err = events.CreateWithFee(ctx, &event, 2000)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	var count int64
	require.NoError(t, db.Model(&models.Event{}).Count(&count).Error)
	require.Zero(t, count)

	wallet, err := wallets.Find(ctx, 3)
	require.NoError(t, err)
	require.InDelta(t, 1999, wallet.Balance, 0.001)
}

func TestEventRepositoryNoWalletBlocksPaidCreation(t *testing.T) {
	_, events, _ := eventTestRepos(t)

	event := paidEvent(11)
	err := events.CreateWithFee(context.Background(), &event, 2000)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestEventRepositoryCreateDeductsFeeOnce(t *testing.T) {
	db, events, wallets := eventTestRepos(t)
	ctx := context.Background()

	_, err := wallets.Credit(ctx, 4, 3000, "top up", "bank:1")
	require.NoError(t, err)

	event := paidEvent(4)
	require.NoError(t, events.CreateWithFee(ctx, &event, 2000))
	require.NotZero(t, event.ID)

	wallet, err := wallets.Find(ctx, 4)
	require.NoError(t, err)
	require.InDelta(t, 1000, wallet.Balance, 0.001)

	// the remaining balance cannot cover a second fee
	second := paidEvent(4)
	require.ErrorIs(t, events.CreateWithFee(ctx, &second, 2000), ErrInsufficientBalance)

	var debits []models.WalletTransaction
	require.NoError(t, db.Where("type = ?", models.WalletDebit).Find(&debits).Error)
	require.Len(t, debits, 1)
	require.InDelta(t, 2000, debits[0].Amount, 0.001)

	transactions, err := wallets.ListTransactions(ctx, 4, 10)
	require.NoError(t, err)
	require.Len(t, transactions, 2)
}

func TestEventRepositoryFreeEventSkipsWallet(t *testing.T) {
	_, events, _ := eventTestRepos(t)

	event := paidEvent(5)
	event.Price = 0
	require.NoError(t, events.CreateWithFee(context.Background(), &event, 0))
	require.NotZero(t, event.ID)
}

func TestEventRepositoryListVisibility(t *testing.T) {
	_, events, _ := eventTestRepos(t)
	ctx := context.Background()

	published := paidEvent(1)
	published.IsPublished = true
	draft := paidEvent(2)
	for _, e := range []*models.Event{&published, &draft} {
		require.NoError(t, events.CreateWithFee(ctx, e, 0))
	}

	public, total, err := events.List(ctx, EventFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, published.ID, public[0].ID)

	_, total, err = events.List(ctx, EventFilter{ViewerID: 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	mine, total, err := events.List(ctx, EventFilter{ViewerID: 2, OnlyMine: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, draft.ID, mine[0].ID)
}

func TestEventTicketOversellRejected(t *testing.T) {
	_, events, _ := eventTestRepos(t)
	ctx := context.Background()

	event := paidEvent(1)
	require.NoError(t, events.CreateWithFee(ctx, &event, 0))

	ticket := models.EventTicket{EventID: event.ID, TicketType: "regular", Price: 1500, QuantityTotal: 2, IsActive: true}
	require.NoError(t, events.CreateTicket(ctx, &ticket))

	ticket.QuantitySold = 3
	require.ErrorIs(t, events.UpdateTicket(ctx, &ticket), models.ErrTicketOversold)

	loaded, err := events.FindByID(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Tickets, 1)
	require.Equal(t, 0, loaded.Tickets[0].QuantitySold)

	require.NoError(t, events.Delete(ctx, event.ID))
	_, err = events.FindByID(ctx, event.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
