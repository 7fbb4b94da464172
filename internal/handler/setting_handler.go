package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// SettingHandler exposes platform settings to administrators.
type SettingHandler struct {
	service service.SettingService
	logger  zerolog.Logger
}

// NewSettingHandler constructs the handler.
func NewSettingHandler(svc service.SettingService, logger zerolog.Logger) *SettingHandler {
	return &SettingHandler{
		service: svc,
		logger:  logger.With().Str("component", "setting_handler").Logger(),
	}
}

// Register attaches settings routes to an admin group.
func (h *SettingHandler) Register(router fiber.Router) {
	router.Get("/event-creation-fee", h.getFee)
	router.Put("/event-creation-fee", h.updateFee)
}

func (h *SettingHandler) getFee(c *fiber.Ctx) error {
	fee, err := h.service.EventCreationFee(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load event creation fee")
	}
	return utils.SendSuccess(c, "event creation fee", fee)
}

func (h *SettingHandler) updateFee(c *fiber.Ctx) error {
	var payload dto.EventCreationFeeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	fee, err := h.service.UpdateEventCreationFee(requestContext(c), middleware.ActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update event creation fee")
	}
	return utils.SendSuccess(c, "event creation fee updated", fee)
}
