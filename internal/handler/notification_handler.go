package handler

import (
	"bufio"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

const (
	defaultKeepAlive = 15 * time.Second
	// sseRetryMillis tells EventSource clients how long to wait before reconnecting.
	sseRetryMillis = 3000
)

// NotificationHandler serves the per-user inbox and its server-sent event stream.
type NotificationHandler struct {
	service   service.NotificationService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewNotificationHandler constructs a handler. Comment frames are written every keepAlive
// so that proxies keep idle streams open.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &NotificationHandler{
		service:   service,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the inbox routes; every route needs an authenticated caller.
func (h *NotificationHandler) Register(router fiber.Router) {
	inbox := router.Group("", requireUser)
	inbox.Get("/", h.list)
	inbox.Get("/stream", h.stream)
	inbox.Patch("/read-all", h.markAllRead)
	inbox.Patch("/:id/read", h.markRead)
}

// RegisterAdmin binds the broadcast route on a staff group.
func (h *NotificationHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/", h.broadcast)
}

func requireUser(c *fiber.Ctx) error {
	if !middleware.ActorFromContext(c).Authenticated() {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	return c.Next()
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	var page [2]int
	for i, key := range []string{"limit", "offset"} {
		v, err := parseQueryInt(c, key)
		if err != nil || v < 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid "+key)
		}
		page[i] = v
	}

	items, err := h.service.List(requestContext(c), userIDStringFromContext(c), c.QueryBool("unread_only"), page[0], page[1])
	if err != nil {
		return respondError(c, h.logger, err, "failed to list notifications")
	}
	return utils.OK(c, items, "notifications", fiber.Map{"limit": page[0], "offset": page[1], "count": len(items)})
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	updated, err := h.service.MarkRead(requestContext(c), id, userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update notification")
	}
	return utils.SendSuccess(c, "notification updated", updated)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	count, err := h.service.MarkAllRead(requestContext(c), userIDStringFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update notifications")
	}
	return utils.SendSuccess(c, "notifications updated", fiber.Map{"updated": count})
}

func (h *NotificationHandler) broadcast(c *fiber.Ctx) error {
	var payload dto.NotificationBroadcastRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Broadcast(requestContext(c), middleware.ActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to broadcast notification")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "notification broadcast", result)
}

// stream holds the connection open and relays the caller's notifications as SSE frames.
// The subscription is released when the client goes away or the service closes the channel.
func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	userID := userIDStringFromContext(c)
	ctx := requestContext(c)
	events, release := h.service.Subscribe(userID)
	log := requestLogger(h.logger, c).With().Str("user_id", userID).Logger()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	keepAlive := h.keepAlive
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer release()

		frames := sseWriter{w: w}
		frames.raw("retry: " + strconv.Itoa(sseRetryMillis) + "\n\n")
		if frames.flush() != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				frames.raw(": ping " + time.Now().UTC().Format(time.RFC3339) + "\n\n")
			case n, ok := <-events:
				if !ok {
					return
				}
				frames.event(n)
			}
			if err := frames.flush(); err != nil {
				log.Debug().Err(err).Msg("notification stream closed")
				return
			}
		}
	})
	return nil
}

// sseWriter accumulates the first write error so a frame can be composed without
// checking every call.
type sseWriter struct {
	w   *bufio.Writer
	err error
}

func (s *sseWriter) raw(frame string) {
	if s.err == nil {
		_, s.err = s.w.WriteString(frame)
	}
}

func (s *sseWriter) event(n dto.NotificationResponse) {
	data, err := json.Marshal(n)
	if err != nil {
		s.err = err
		return
	}
	s.raw("id: " + formatUint(n.ID) + "\nevent: notification\ndata: ")
	if s.err == nil {
		_, s.err = s.w.Write(data)
	}
	s.raw("\n\n")
}

func (s *sseWriter) flush() error {
	if s.err != nil {
		return s.err
	}
	return s.w.Flush()
}
