package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// WalletHandler exposes wallet balances and admin top-ups.
type WalletHandler struct {
	service service.WalletService
	logger  zerolog.Logger
}

// NewWalletHandler constructs the handler.
func NewWalletHandler(svc service.WalletService, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		service: svc,
		logger:  logger.With().Str("component", "wallet_handler").Logger(),
	}
}

// Register binds the caller's wallet route.
func (h *WalletHandler) Register(router fiber.Router) {
	router.Get("", h.get)
}

// RegisterAdmin binds the top-up route on an admin group.
func (h *WalletHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/:userId/credit", h.credit)
}

func (h *WalletHandler) get(c *fiber.Ctx) error {
	wallet, err := h.service.Get(requestContext(c), middleware.ActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load wallet")
	}
	return utils.SendSuccess(c, "wallet", wallet)
}

func (h *WalletHandler) credit(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}
	var payload dto.WalletCreditRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	wallet, err := h.service.Credit(requestContext(c), middleware.ActorFromContext(c), userID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to credit wallet")
	}
	return utils.SendSuccess(c, "wallet credited", wallet)
}
