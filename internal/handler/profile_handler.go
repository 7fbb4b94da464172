package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// ProfileHandler returns the caller's own profile and resolved role.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: svc,
		logger:  logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register binds /me.
func (h *ProfileHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
}

func (h *ProfileHandler) me(c *fiber.Ctx) error {
	profile, err := h.service.Me(requestContext(c), middleware.ActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile", profile)
}
