package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

type fakeAnalyticsRepo struct {
	community repository.CommunityTotals
	events    repository.EventTotals
	messages  []repository.ActivityStamp
	reactions []time.Time
}

func (f *fakeAnalyticsRepo) CommunityTotals(ctx context.Context) (repository.CommunityTotals, error) {
	return f.community, nil
}

func (f *fakeAnalyticsRepo) EventTotals(ctx context.Context) (repository.EventTotals, error) {
	return f.events, nil
}

func (f *fakeAnalyticsRepo) MessagesSince(ctx context.Context, since time.Time) ([]repository.ActivityStamp, error) {
	return append([]repository.ActivityStamp(nil), f.messages...), nil
}

func (f *fakeAnalyticsRepo) ReactionsSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	return append([]time.Time(nil), f.reactions...), nil
}

type fakeGatewayRepo struct {
	rows []models.PaymentGateway
}

func (f *fakeGatewayRepo) List(ctx context.Context) ([]models.PaymentGateway, error) {
	return f.rows, nil
}

func (f *fakeGatewayRepo) Find(ctx context.Context, provider, mode string) (models.PaymentGateway, error) {
	return models.PaymentGateway{}, gorm.ErrRecordNotFound
}

func (f *fakeGatewayRepo) Upsert(ctx context.Context, gateway *models.PaymentGateway) (models.PaymentGateway, error) {
	return *gateway, nil
}

func TestAdminAnalyticsServiceCaching(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	// a Wednesday
	now := time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)
	repo := &fakeAnalyticsRepo{
		community: repository.CommunityTotals{Messages: 6, Replies: 2, Anonymous: 2, Pinned: 1},
		events:    repository.EventTotals{Events: 3, Published: 2, Paid: 1, TicketsSold: 4, TicketRevenue: 6000, CreationFees: 2000},
		messages: []repository.ActivityStamp{
			{CreatedAt: now.Add(-time.Hour)},
			{CreatedAt: now.Add(-2 * time.Hour), IsReply: true},
			{CreatedAt: now.AddDate(0, 0, -8)},
		},
		reactions: []time.Time{now.Add(-30 * time.Minute)},
	}
	gateways := &fakeGatewayRepo{rows: []models.PaymentGateway{
		{Provider: models.ProviderPaystack, Mode: models.GatewayModeLive, Enabled: true, SecretKey: "sk_live_abcdef123456"},
		{Provider: models.ProviderKorapay, Mode: models.GatewayModeTest, Enabled: true, SecretKey: "sk_test_abcdef123456"},
	}}

	svc := NewAdminAnalyticsService(repo, gateways, client, time.Minute, testLogger())
	svc.(*adminAnalyticsService).now = func() time.Time { return now }

	summary, err := svc.GetSummary(context.Background(), actorModerator)
	require.NoError(t, err)
	require.False(t, summary.CacheHit)
	require.Equal(t, int64(6), summary.Community.TotalMessages)
	require.InDelta(t, 0.25, summary.Community.AnonymousShare, 0.0001)
	require.Equal(t, int64(4), summary.Events.TicketsSold)
	require.Equal(t, 2, summary.Payments.TotalEnabled)
	require.True(t, summary.Payments.ProductionReady)

	require.Len(t, summary.WeeklyEngagement, engagementWeeks)
	current := summary.WeeklyEngagement[engagementWeeks-1]
	require.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), current.WeekStart)
	require.Equal(t, int64(1), current.Messages)
	require.Equal(t, int64(1), current.Replies)
	require.Equal(t, int64(1), current.Reactions)
	require.Equal(t, int64(1), summary.WeeklyEngagement[engagementWeeks-2].Messages)

	repo.community.Messages = 100
	cached, err := svc.GetSummary(context.Background(), actorAdmin)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, int64(6), cached.Community.TotalMessages)
}

func TestAdminAnalyticsServiceRequiresStaff(t *testing.T) {
	svc := NewAdminAnalyticsService(&fakeAnalyticsRepo{}, nil, nil, time.Minute, testLogger())

	_, err := svc.GetSummary(context.Background(), actorStudent)
	require.ErrorIs(t, err, ErrForbidden)

	summary, err := svc.GetSummary(context.Background(), actorAdmin)
	require.NoError(t, err)
	require.Len(t, summary.WeeklyEngagement, engagementWeeks)
	require.Zero(t, summary.Community.AnonymousShare)
}
