package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

func newNotificationFixture(t *testing.T, client *redis.Client) NotificationService {
	t.Helper()
	return newNotificationNodes(t, client, 1)[0]
}

// newNotificationNodes builds services that share one database but each have their own node id.
func newNotificationNodes(t *testing.T, client *redis.Client, count int) []NotificationService {
	t.Helper()
	repo := repository.NewNotificationRepository(setupServiceDB(t, &models.Notification{}))
	nodes := make([]NotificationService, 0, count)
	for i := 0; i < count; i++ {
		nodes = append(nodes, NewNotificationService(repo, client, "portal:test", nil, testValidator(), testLogger()))
	}
	return nodes
}

func TestNotificationServicePublishDeliversToSubscriber(t *testing.T) {
	svc := newNotificationFixture(t, nil)
	ctx := context.Background()

	stream, cleanup := svc.Subscribe("1")
	defer cleanup()

	sent, err := svc.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  "1",
		Type:    dto.NotificationReply,
		Message: "<b>Grace</b> replied to your message",
		Link:    "/community/messages/4",
	})
	require.NoError(t, err)
	require.Equal(t, "Grace replied to your message", sent.Message)

	select {
	case got := <-stream:
		require.Equal(t, sent.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}

	_, err = svc.Publish(ctx, dto.NotificationCreateRequest{UserID: "1", Type: "x", Message: "<script>x()</script>"})
	require.ErrorIs(t, err, ErrEmptyContent)

	items, err := svc.List(ctx, "1", true, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	updated, err := svc.MarkAllRead(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, int64(1), updated)

	items, err = svc.List(ctx, "1", true, 10, 0)
	require.NoError(t, err)
	require.Empty(t, items)

	_, err = svc.List(ctx, " ", false, 10, 0)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNotificationServiceBroadcastRequiresStaff(t *testing.T) {
	svc := newNotificationFixture(t, nil)
	ctx := context.Background()
	req := dto.NotificationBroadcastRequest{UserIDs: []string{"1", "2", "1", " "}, Message: "Library closes early today"}

	_, err := svc.Broadcast(ctx, actorStudent, req)
	require.ErrorIs(t, err, ErrForbidden)

	result, err := svc.Broadcast(ctx, actorModerator, req)
	require.NoError(t, err)
	require.Equal(t, 2, result.Delivered)
}

func TestNotificationServiceFansOutThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodes := newNotificationNodes(t, client, 2)
	publisher, receiver := nodes[0], nodes[1]
	receiver.Start(ctx)

	stream, cleanup := receiver.Subscribe("7")
	defer cleanup()

	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("*")) > 0
	}, time.Second, 10*time.Millisecond)

	_, err := publisher.Publish(ctx, dto.NotificationCreateRequest{UserID: "7", Type: dto.NotificationMention, Message: "You were mentioned"})
	require.NoError(t, err)

	select {
	case got := <-stream:
		require.Equal(t, "You were mentioned", got.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("remote notification was not delivered")
	}
}
