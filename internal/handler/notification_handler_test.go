package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

func newNotificationApp(t *testing.T) (*fiber.App, service.NotificationService) {
	t.Helper()
	repo := repository.NewNotificationRepository(setupHandlerDB(t, &models.Notification{}))
	svc := service.NewNotificationService(repo, nil, "", nil, utils.NewValidator(), testLogger())
	h := handler.NewNotificationHandler(svc, testLogger(), time.Second)

	app := fiber.New()
	h.Register(app.Group("/api/v1/notifications", actorFromHeader))
	h.RegisterAdmin(app.Group("/api/v1/admin/notifications", actorFromHeader))
	return app, svc
}

func TestNotificationInboxFlow(t *testing.T) {
	app, svc := newNotificationApp(t)
	ctx := context.Background()

	for _, msg := range []string{"Ada reacted to your post", "Grace replied to your message"} {
		_, err := svc.Publish(ctx, dto.NotificationCreateRequest{UserID: "1", Type: dto.NotificationReply, Message: msg})
		require.NoError(t, err)
	}

	resp := doJSONAs(t, app, "student", http.MethodGet, "/api/v1/notifications/?unread_only=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listed envelope
	decodeResponse(t, resp, &listed)
	var items []dto.NotificationResponse
	require.NoError(t, json.Unmarshal(listed.Data, &items))
	require.Len(t, items, 2)

	resp = doJSONAs(t, app, "student", http.MethodPatch, "/api/v1/notifications/"+formatID(items[0].ID)+"/read", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// another user's inbox does not see or touch these rows
	resp = doJSONAs(t, app, "admin", http.MethodPatch, "/api/v1/notifications/"+formatID(items[1].ID)+"/read", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = doJSONAs(t, app, "student", http.MethodPatch, "/api/v1/notifications/read-all", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var marked struct {
		Data struct {
			Updated int64 `json:"updated"`
		} `json:"data"`
	}
	decodeResponse(t, resp, &marked)
	require.EqualValues(t, 1, marked.Data.Updated)
}

func TestNotificationInboxRejectsBadRequests(t *testing.T) {
	app, _ := newNotificationApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/notifications/", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSONAs(t, app, "student", http.MethodGet, "/api/v1/notifications/?limit=-3", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSONAs(t, app, "student", http.MethodPatch, "/api/v1/notifications/zero/read", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotificationBroadcastRespectsRole(t *testing.T) {
	app, _ := newNotificationApp(t)
	body := dto.NotificationBroadcastRequest{UserIDs: []string{"1", "1", "4"}, Message: "Library closes early today"}

	resp := doJSONAs(t, app, "student", http.MethodPost, "/api/v1/admin/notifications/", body)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSONAs(t, app, "moderator", http.MethodPost, "/api/v1/admin/notifications/", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var result struct {
		Data dto.NotificationBroadcastResponse `json:"data"`
	}
	decodeResponse(t, resp, &result)
	require.Equal(t, 2, result.Data.Delivered)
}
