package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

type memoryActivityRepo struct {
	entries    []models.ActivityLog
	lastFilter repository.ActivityLogFilter
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.lastFilter = filter
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksSecrets(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testValidator(), testLogger())

	ctx := middleware.ContextWithCorrelation(context.Background(), "corr-1")
	entry, err := svc.Record(ctx, ActivityEntry{
		Actor:      authz.NewActor(1, "Admin"),
		Action:     "Gateway.Saved",
		EntityType: "payment_gateway",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"email":      "admin@example.com",
			"secret_key": "sk_live_abcdef",
			"provider":   "paystack",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "***", entry.Metadata["secret_key"])
	require.Equal(t, "paystack", entry.Metadata["provider"])
	require.Equal(t, "gateway.saved", entry.Action)
	require.Equal(t, models.RoleAdmin, entry.ActorRole)
	require.Equal(t, "corr-1", entry.CorrelationID)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testValidator(), testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "event"})
	require.Error(t, err)
}

func TestActivityServiceAnonymousActorIsSystem(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testValidator(), testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{Action: "settings.seeded", EntityType: "setting"})
	require.NoError(t, err)
	require.Equal(t, "system", entry.ActorRole)
}

func TestActivityServiceListBuildsFilter(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testValidator(), testLogger())
	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{Actor: authz.NewActor(2, "moderator"), Action: "message.pinned", EntityType: "community_message"})
		require.NoError(t, err)
	}

	resp, err := svc.List(context.Background(), dto.AdminActivityListRequest{ActorID: 2, Action: " Message.Pinned ", PageSize: 2, SinceDays: 7})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	require.Equal(t, 2, resp.Pagination.TotalPages)
	require.Equal(t, 1, resp.Pagination.Page)
	require.NotNil(t, repo.lastFilter.ActorID)
	require.Equal(t, uint(2), *repo.lastFilter.ActorID)
	require.Equal(t, "message.pinned", repo.lastFilter.Action)
	require.NotNil(t, repo.lastFilter.Since)
}
