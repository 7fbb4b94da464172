package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// PaymentGatewayHandler exposes the admin payment settings panel.
type PaymentGatewayHandler struct {
	service service.GatewayService
	logger  zerolog.Logger
}

// NewPaymentGatewayHandler constructs the handler.
func NewPaymentGatewayHandler(svc service.GatewayService, logger zerolog.Logger) *PaymentGatewayHandler {
	return &PaymentGatewayHandler{
		service: svc,
		logger:  logger.With().Str("component", "payment_gateway_handler").Logger(),
	}
}

// Register attaches gateway routes to an admin group.
func (h *PaymentGatewayHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Put("", h.save)
	router.Post("/validate-key", h.validateKey)
}

func (h *PaymentGatewayHandler) list(c *fiber.Ctx) error {
	result, err := h.service.List(requestContext(c), middleware.ActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load payment gateways")
	}
	return utils.SendSuccess(c, "payment gateways", result)
}

func (h *PaymentGatewayHandler) save(c *fiber.Ctx) error {
	var payload dto.GatewaySaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	gateway, err := h.service.Save(requestContext(c), middleware.ActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to save payment gateway")
	}
	return utils.SendSuccess(c, "payment gateway saved", gateway)
}

func (h *PaymentGatewayHandler) validateKey(c *fiber.Ctx) error {
	var payload dto.KeyValidateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.ValidateKey(requestContext(c), middleware.ActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to validate key")
	}
	return utils.SendSuccess(c, result.Message, result)
}
