package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// CommunityTotals are lifetime counters for the message board.
type CommunityTotals struct {
	Messages  int64
	Replies   int64
	Anonymous int64
	Pinned    int64
}

// EventTotals are lifetime counters for events and tickets.
type EventTotals struct {
	Events        int64
	Published     int64
	Paid          int64
	TicketsSold   int64
	TicketRevenue float64
	CreationFees  float64
}

// ActivityStamp is the creation time of one engagement item.
type ActivityStamp struct {
	CreatedAt time.Time
	IsReply   bool
}

// AdminAnalyticsRepository supplies data for administrator analytics dashboards.
type AdminAnalyticsRepository interface {
	CommunityTotals(ctx context.Context) (CommunityTotals, error)
	EventTotals(ctx context.Context) (EventTotals, error)
	MessagesSince(ctx context.Context, since time.Time) ([]ActivityStamp, error)
	ReactionsSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

type adminAnalyticsRepository struct {
	db *gorm.DB
}

// NewAdminAnalyticsRepository constructs the analytics repository.
func NewAdminAnalyticsRepository(db *gorm.DB) AdminAnalyticsRepository {
	return &adminAnalyticsRepository{db: db}
}

func (r *adminAnalyticsRepository) CommunityTotals(ctx context.Context) (CommunityTotals, error) {
	var totals CommunityTotals
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMessage{}).
		Select(`COUNT(CASE WHEN parent_id IS NULL THEN 1 END) AS messages,
			COUNT(CASE WHEN parent_id IS NOT NULL THEN 1 END) AS replies,
			COUNT(CASE WHEN is_anonymous THEN 1 END) AS anonymous,
			COUNT(CASE WHEN is_pinned THEN 1 END) AS pinned`).
		Scan(&totals).Error
	return totals, err
}

func (r *adminAnalyticsRepository) EventTotals(ctx context.Context) (EventTotals, error) {
	var totals EventTotals
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Event{}).
		Select(`COUNT(*) AS events,
			COUNT(CASE WHEN is_published THEN 1 END) AS published,
			COUNT(CASE WHEN requires_tickets AND price > 0 THEN 1 END) AS paid`).
		Scan(&totals).Error; err != nil {
		return EventTotals{}, err
	}

	var tickets struct {
		Sold    int64
		Revenue float64
	}
	if err := db.Model(&models.EventTicket{}).
		Select("COALESCE(SUM(quantity_sold), 0) AS sold, COALESCE(SUM(quantity_sold * price), 0) AS revenue").
		Scan(&tickets).Error; err != nil {
		return EventTotals{}, err
	}
	totals.TicketsSold = tickets.Sold
	totals.TicketRevenue = tickets.Revenue

	if err := db.Model(&models.WalletTransaction{}).
		Where("type = ? AND reference LIKE ?", models.WalletDebit, "event:%").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totals.CreationFees).Error; err != nil {
		return EventTotals{}, err
	}

	return totals, nil
}

func (r *adminAnalyticsRepository) MessagesSince(ctx context.Context, since time.Time) ([]ActivityStamp, error) {
	var stamps []ActivityStamp
	err := r.db.WithContext(ctx).
		Model(&models.CommunityMessage{}).
		Select("created_at, parent_id IS NOT NULL AS is_reply").
		Where("created_at >= ?", since).
		Scan(&stamps).Error
	return stamps, err
}

func (r *adminAnalyticsRepository) ReactionsSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.MessageReaction{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &stamps).Error
	return stamps, err
}
