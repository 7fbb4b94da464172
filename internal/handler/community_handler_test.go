package handler_test

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/repository"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

const testActorHeader = "X-Test-Actor"

var testActors = map[string]authz.Actor{
	"student":   actorStudent,
	"admin":     actorAdmin,
	"moderator": actorModerator,
}

// actorFromHeader lets one app serve requests from several users.
func actorFromHeader(c *fiber.Ctx) error {
	actor, ok := testActors[c.Get(testActorHeader)]
	if !ok {
		return c.Next()
	}
	c.Locals("user_id", actor.ID)
	c.Locals("user_role", actor.Role)
	return c.Next()
}

type communityApp struct {
	app  *fiber.App
	feed service.LiveFeedService
}

func newCommunityApp(t *testing.T) communityApp {
	t.Helper()
	db := setupHandlerDB(t, &models.CommunityMessage{}, &models.MessageReaction{}, &models.MessageReadStatus{}, &models.Profile{})
	require.NoError(t, db.Create(&[]models.Profile{
		{ID: 1, FullName: "Ada Student", Email: "ada@campus.test", Role: models.RoleStudent},
		{ID: 2, FullName: "Grace Admin", Email: "grace@campus.test", Role: models.RoleAdmin},
		{ID: 3, FullName: "Mod Erator", Email: "mod@campus.test", Role: models.RoleModerator},
	}).Error)

	validate := utils.NewValidator()
	feed := service.NewLiveFeedService(nil, "", nil, time.Minute, testLogger())
	svc := service.NewCommunityService(
		repository.NewCommunityRepository(db),
		repository.NewProfileRepository(db),
		service.CommunityDeps{Feed: feed},
		validate,
		testLogger(),
	)
	h := handler.NewCommunityHandler(svc, feed, validate, handler.CommunityLimits{}, testLogger())

	app := fiber.New()
	community := app.Group("/api/v1/community")
	h.RegisterFeed(community, func(c *fiber.Ctx) error {
		c.Locals("user_id", actorStudent.ID)
		return c.Next()
	})
	h.Register(community.Group("", actorFromHeader))
	return communityApp{app: app, feed: feed}
}

func (a communityApp) do(t *testing.T, actor, method, path string, body interface{}) *http.Response {
	t.Helper()
	return doJSONAs(t, a.app, actor, method, path, body)
}

func (a communityApp) post(t *testing.T, actor string, payload map[string]interface{}) dto.CommunityMessageResponse {
	t.Helper()
	resp := a.do(t, actor, http.MethodPost, "/api/v1/community/messages", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var body struct {
		Data dto.CommunityMessageResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	return body.Data
}

func TestCommunityListMatchesContract(t *testing.T) {
	a := newCommunityApp(t)

	named := a.post(t, "student", map[string]interface{}{"content": "Who is going to the hackathon?"})
	require.NotNil(t, named.Author.ID)
	require.Equal(t, "Ada Student", named.Author.DisplayName)

	anonymous := a.post(t, "student", map[string]interface{}{"content": "The library wifi is down again", "is_anonymous": true})
	require.Nil(t, anonymous.Author.ID)
	require.Equal(t, "Anonymous Student", anonymous.Author.DisplayName)
	require.False(t, anonymous.Author.ProfileLink)

	resp := a.do(t, "student", http.MethodPost, fmt.Sprintf("/api/v1/community/messages/%d/reactions", named.ID), map[string]string{"reaction_type": "fire"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "admin", http.MethodGet, "/api/v1/community/messages", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	requireSchema(t, resp, "message_list.schema.json")
}

func TestCommunityPostValidation(t *testing.T) {
	a := newCommunityApp(t)

	resp := a.do(t, "student", http.MethodPost, "/api/v1/community/messages", map[string]interface{}{"content": ""})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var body envelope
	decodeResponse(t, resp, &body)
	var fields []handler.FieldError
	require.NoError(t, json.Unmarshal(body.Details, &fields))
	require.Equal(t, []handler.FieldError{{Field: "content", Rule: "required"}}, fields)

	resp = a.do(t, "student", http.MethodPost, "/api/v1/community/messages", map[string]interface{}{"content": "<script>x()</script>"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "", http.MethodPost, "/api/v1/community/messages", map[string]interface{}{"content": "hello"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCommunityPostKeepsPunctuationWithinLimit(t *testing.T) {
	a := newCommunityApp(t)

	long := strings.Repeat("I'm here & ok. ", 66)
	msg := a.post(t, "student", map[string]interface{}{"content": long})
	require.Equal(t, strings.TrimSpace(long), msg.Content)

	msg = a.post(t, "student", map[string]interface{}{"content": "<i>Rock & roll</i> tonight, isn't it?"})
	require.Equal(t, "Rock & roll tonight, isn't it?", msg.Content)
}

func TestCommunityRepliesStayOneLevelDeep(t *testing.T) {
	a := newCommunityApp(t)

	root := a.post(t, "student", map[string]interface{}{"content": "Study group on Friday?"})
	reply := a.post(t, "moderator", map[string]interface{}{"content": "Count me in", "parent_id": root.ID})
	require.Equal(t, root.ID, *reply.ParentID)

	resp := a.do(t, "admin", http.MethodPost, "/api/v1/community/messages", map[string]interface{}{"content": "Me too", "parent_id": reply.ID})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "student", http.MethodGet, fmt.Sprintf("/api/v1/community/messages/%d/replies", root.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body struct {
		Data []dto.CommunityMessageResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Len(t, body.Data, 1)
	require.Equal(t, reply.ID, body.Data[0].ID)
}

func TestCommunityEditAndDeletePermissions(t *testing.T) {
	a := newCommunityApp(t)
	message := a.post(t, "student", map[string]interface{}{"content": "Selling a used calculus textbook"})
	path := fmt.Sprintf("/api/v1/community/messages/%d", message.ID)

	resp := a.do(t, "moderator", http.MethodPatch, path, map[string]string{"content": "edited by someone else"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "student", http.MethodPatch, path, map[string]string{"content": "Sold, thanks all"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var edited struct {
		Data dto.CommunityMessageResponse `json:"data"`
	}
	decodeResponse(t, resp, &edited)
	require.Equal(t, "Sold, thanks all", edited.Data.Content)
	require.NotNil(t, edited.Data.EditedAt)

	resp = a.do(t, "moderator", http.MethodDelete, path, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "admin", http.MethodDelete, path, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "student", http.MethodGet, path, nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "student", http.MethodGet, "/api/v1/community/messages/abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCommunityPinRequiresStaff(t *testing.T) {
	a := newCommunityApp(t)
	message := a.post(t, "student", map[string]interface{}{"content": "Orientation schedule"})
	path := fmt.Sprintf("/api/v1/community/messages/%d/pin", message.ID)

	resp := a.do(t, "student", http.MethodPost, path, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "moderator", http.MethodPost, path, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body struct {
		Data dto.CommunityMessageResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Data.IsPinned)
}

func TestCommunityMarkReadValidatesIDs(t *testing.T) {
	a := newCommunityApp(t)
	message := a.post(t, "admin", map[string]interface{}{"content": "Exam timetable is out"})

	resp := a.do(t, "student", http.MethodGet, "/api/v1/community/messages/unread-count", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var unread struct {
		Data dto.UnreadCountResponse `json:"data"`
	}
	decodeResponse(t, resp, &unread)
	require.Equal(t, int64(1), unread.Data.Unread)

	resp = a.do(t, "student", http.MethodPost, "/api/v1/community/messages/read", map[string]interface{}{"message_ids": []uint{}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "student", http.MethodPost, "/api/v1/community/messages/read", map[string]interface{}{"message_ids": []uint{message.ID}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, "student", http.MethodGet, "/api/v1/community/messages/unread-count", nil)
	decodeResponse(t, resp, &unread)
	require.Zero(t, unread.Data.Unread)
}

func TestCommunityLiveFeedDeliversEvents(t *testing.T) {
	a := newCommunityApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = a.app.Listener(ln) }()
	t.Cleanup(func() { _ = a.app.Shutdown() })

	url := fmt.Sprintf("ws://%s/api/v1/community/ws?topic=Events", ln.Addr().String())
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	defer conn.Close()

	// the hub registers the client after the upgrade, so keep publishing until it arrives
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.feed.Publish(t.Context(), dto.LiveFeedEvent{Type: dto.FeedMessageCreated, MessageID: 42, Topic: "events"})
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event dto.LiveFeedEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, dto.FeedMessageCreated, event.Type)
	require.Equal(t, uint(42), event.MessageID)
	require.Equal(t, "events", event.Topic)
}

func TestCommunityLiveFeedRejectsPlainHTTP(t *testing.T) {
	a := newCommunityApp(t)
	resp := a.do(t, "", http.MethodGet, "/api/v1/community/ws", nil)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	resp.Body.Close()
}
