package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// AdminAnalyticsHandler serves the staff dashboard summary.
type AdminAnalyticsHandler struct {
	analytics service.AdminAnalyticsService
	logger    zerolog.Logger
}

func NewAdminAnalyticsHandler(analytics service.AdminAnalyticsService, logger zerolog.Logger) *AdminAnalyticsHandler {
	return &AdminAnalyticsHandler{
		analytics: analytics,
		logger:    logger.With().Str("component", "analytics_handler").Logger(),
	}
}

func (h *AdminAnalyticsHandler) Register(router fiber.Router) {
	router.Get("", h.summary)
}

// summary reports community, event and payment figures plus weekly engagement. The
// figures are cached per deployment, so the response must not be stored by shared caches.
func (h *AdminAnalyticsHandler) summary(c *fiber.Ctx) error {
	result, err := h.analytics.GetSummary(requestContext(c), middleware.ActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load analytics")
	}

	c.Set(fiber.HeaderCacheControl, "private, no-store")
	c.Set("X-Cache-Hit", strconv.FormatBool(result.CacheHit))
	return utils.OK(c, result, "analytics summary", fiber.Map{
		"weeks":        len(result.WeeklyEngagement),
		"generated_at": result.GeneratedAt,
	})
}
