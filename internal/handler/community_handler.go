package handler

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// CommunityLimits throttles writes per user.
type CommunityLimits struct {
	PostsPerMinute     int
	ReactionsPerMinute int
	// Store shares counters between nodes; nil counts per process.
	Store fiber.Storage
}

// CommunityHandler serves the message board and its live feed.
type CommunityHandler struct {
	service   service.CommunityService
	feed      service.LiveFeedService
	validator *validator.Validate
	limits    CommunityLimits
	logger    zerolog.Logger
}

// NewCommunityHandler constructs the handler.
func NewCommunityHandler(svc service.CommunityService, feed service.LiveFeedService, validate *validator.Validate, limits CommunityLimits, logger zerolog.Logger) *CommunityHandler {
	if limits.PostsPerMinute <= 0 {
		limits.PostsPerMinute = 10
	}
	if limits.ReactionsPerMinute <= 0 {
		limits.ReactionsPerMinute = 60
	}
	return &CommunityHandler{
		service:   svc,
		feed:      feed,
		validator: validate,
		limits:    limits,
		logger:    logger.With().Str("component", "community_handler").Logger(),
	}
}

// Register binds message board routes. The router must already authenticate the caller.
func (h *CommunityHandler) Register(router fiber.Router) {
	postLimit := middleware.RateLimit("community_post", h.limits.PostsPerMinute, time.Minute, h.limits.Store)
	reactLimit := middleware.RateLimit("community_react", h.limits.ReactionsPerMinute, time.Minute, h.limits.Store)

	router.Get("/messages", h.list)
	router.Post("/messages", postLimit, h.post)
	router.Get("/messages/unread-count", h.unreadCount)
	router.Post("/messages/read", h.markRead)
	router.Get("/messages/:id", h.get)
	router.Get("/messages/:id/replies", h.replies)
	router.Patch("/messages/:id", h.edit)
	router.Delete("/messages/:id", h.delete)
	router.Post("/messages/:id/pin", h.togglePin)
	router.Post("/messages/:id/reactions", reactLimit, h.toggleReaction)
	router.Post("/messages/:id/quick-react", reactLimit, h.quickReact)
}

// RegisterFeed binds the websocket upgrade behind auth. Browsers cannot set headers on a
// websocket handshake, so auth usually reads the token from the query string.
func (h *CommunityHandler) RegisterFeed(router fiber.Router, auth fiber.Handler) {
	router.Get("/ws", auth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, websocket.New(h.handleFeed))
}

func (h *CommunityHandler) handleFeed(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"))
		_ = conn.Close()
		return
	}

	correlation, _ := conn.Locals("correlation_id").(string)
	opts := service.FeedConnectionOptions{
		UserID:        formatUint(userID),
		Topic:         strings.TrimSpace(conn.Query("topic")),
		CorrelationID: correlation,
	}

	h.logger.Info().Str("user_id", opts.UserID).Str("topic", opts.Topic).Msg("live feed connected")
	h.feed.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", opts.UserID).Str("topic", opts.Topic).Msg("live feed disconnected")
}

func (h *CommunityHandler) list(c *fiber.Ctx) error {
	var query dto.CommunityMessageListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}
	if err := h.validator.Struct(query); err != nil {
		return respondError(c, h.logger, err, "failed to list messages")
	}

	result, err := h.service.List(requestContext(c), middleware.ActorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list messages")
	}
	return utils.OK(c, result.Items, "messages", result.Pagination)
}

func (h *CommunityHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}
	message, err := h.service.Get(requestContext(c), middleware.ActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load message")
	}
	return utils.SendSuccess(c, "message", message)
}

func (h *CommunityHandler) replies(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}
	replies, err := h.service.Replies(requestContext(c), middleware.ActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load replies")
	}
	return utils.SendSuccess(c, "replies", replies)
}

func (h *CommunityHandler) post(c *fiber.Ctx) error {
	var payload dto.CommunityMessageCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	message, err := h.service.Post(requestContext(c), middleware.ActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to post message")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message posted", message)
}

func (h *CommunityHandler) edit(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}
	var payload dto.CommunityMessageUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	message, err := h.service.Edit(requestContext(c), middleware.ActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to edit message")
	}
	return utils.SendSuccess(c, "message updated", message)
}

func (h *CommunityHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}
	if err := h.service.Delete(requestContext(c), middleware.ActorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete message")
	}
	return utils.SendSuccess(c, "message deleted", fiber.Map{"id": id})
}

func (h *CommunityHandler) togglePin(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}
	message, err := h.service.TogglePin(requestContext(c), middleware.ActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to pin message")
	}
	return utils.SendSuccess(c, "pin toggled", message)
}

func (h *CommunityHandler) toggleReaction(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}
	var payload dto.ReactionToggleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.ToggleReaction(requestContext(c), middleware.ActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to toggle reaction")
	}
	return utils.SendSuccess(c, "reaction toggled", result)
}

func (h *CommunityHandler) quickReact(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}
	result, err := h.service.QuickReact(requestContext(c), middleware.ActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to toggle reaction")
	}
	return utils.SendSuccess(c, "reaction toggled", result)
}

func (h *CommunityHandler) markRead(c *fiber.Ctx) error {
	var payload dto.MarkReadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return respondError(c, h.logger, err, "failed to mark messages read")
	}

	if err := h.service.MarkRead(requestContext(c), middleware.ActorFromContext(c), payload.MessageIDs); err != nil {
		return respondError(c, h.logger, err, "failed to mark messages read")
	}
	return utils.SendSuccess(c, "messages marked read", fiber.Map{"count": len(payload.MessageIDs)})
}

func (h *CommunityHandler) unreadCount(c *fiber.Ctx) error {
	result, err := h.service.UnreadCount(requestContext(c), middleware.ActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to count unread messages")
	}
	return utils.SendSuccess(c, "unread count", result)
}
