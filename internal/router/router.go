package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-portal-api/internal/config"
	"github.com/noah-isme/campus-portal-api/internal/handler"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration. Nil handlers leave their routes
// unregistered.
type Dependencies struct {
	CommunityHandler      *handler.CommunityHandler
	PaymentGatewayHandler *handler.PaymentGatewayHandler
	EventHandler          *handler.EventHandler
	WalletHandler         *handler.WalletHandler
	SettingHandler        *handler.SettingHandler
	BlogHandler           *handler.BlogHandler
	AnalyticsHandler      *handler.AdminAnalyticsHandler
	ActivityHandler       *handler.AdminActivityHandler
	NotificationHandler   *handler.NotificationHandler
	UploadHandler         *handler.UploadHandler
	ProfileHandler        *handler.ProfileHandler
	HealthChecks          map[string]handler.Pinger
	JWTMiddleware         fiber.Handler
	OptionalJWT           fiber.Handler
	WebsocketJWT          fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = passthrough
	}
	optionalJWT := deps.OptionalJWT
	if optionalJWT == nil {
		optionalJWT = passthrough
	}
	websocketJWT := deps.WebsocketJWT
	if websocketJWT == nil {
		websocketJWT = jwtMiddleware
	}

	// public reads; a token, when present, widens what drafts are visible
	if deps.BlogHandler != nil {
		deps.BlogHandler.Register(api.Group("/blog", optionalJWT))
	}
	if deps.EventHandler != nil {
		deps.EventHandler.RegisterPublic(api.Group("/events", optionalJWT))
	}

	// the feed route is registered ahead of the community group so its own auth runs instead
	if deps.CommunityHandler != nil {
		deps.CommunityHandler.RegisterFeed(api.Group("/community"), websocketJWT)
		deps.CommunityHandler.Register(api.Group("/community", jwtMiddleware))
	}

	authed := api.Group("", jwtMiddleware)
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.Register(authed)
	}
	if deps.EventHandler != nil {
		deps.EventHandler.Register(authed.Group("/events"))
	}
	if deps.WalletHandler != nil {
		deps.WalletHandler.Register(authed.Group("/wallet"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(authed.Group("/notifications"))
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(authed.Group("/uploads"))
	}

	staff := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin, models.RoleModerator))
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(staff.Group("/analytics"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(staff.Group("/activity"))
	}
	if deps.BlogHandler != nil {
		deps.BlogHandler.RegisterAdmin(staff.Group("/blog"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.RegisterAdmin(staff.Group("/notifications"))
	}

	adminOnly := middleware.RequireRole(models.RoleAdmin)
	if deps.PaymentGatewayHandler != nil {
		deps.PaymentGatewayHandler.Register(staff.Group("/payment-gateways", adminOnly))
	}
	if deps.SettingHandler != nil {
		deps.SettingHandler.Register(staff.Group("/settings", adminOnly))
	}
	if deps.WalletHandler != nil {
		deps.WalletHandler.RegisterAdmin(staff.Group("/wallets", adminOnly))
	}
}
