package middleware

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// AdminPrefix scopes the admin request metrics.
const AdminPrefix = "/api/v1/admin"

// Config customises the middleware registration pipeline.
type Config struct {
	Logger *zerolog.Logger
	// AllowOrigins is a comma separated CORS origin list; empty allows any origin.
	AllowOrigins string
	// QuietPaths are left out of the access log. Defaults to the health and metrics endpoints.
	QuietPaths []string
}

// Register attaches the common middlewares used across the API.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	origins := strings.TrimSpace(cfg.AllowOrigins)
	if origins == "" {
		origins = "*"
	}

	quiet := cfg.QuietPaths
	if quiet == nil {
		quiet = []string{"/metrics", "/api/v1/health"}
	}
	quietSet := make(map[string]struct{}, len(quiet))
	for _, path := range quiet {
		quietSet[path] = struct{}{}
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Logger != nil}))
	app.Use(CorrelationID(requestLogger))
	app.Use(Observability(requestLogger, AdminPrefix))
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			_, skip := quietSet[c.Path()]
			return skip
		},
		Format: "${time} ${status} ${method} ${path} ${latency} ${respHeader:X-Correlation-ID}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		ExposeHeaders: "X-Correlation-ID, X-Cache-Hit",
	}))
}
