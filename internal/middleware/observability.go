package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/observability"
)

const slowRequestThreshold = 500 * time.Millisecond

// Observability records request metrics and a structured log line for every request under
// prefix. Websocket upgrades are skipped since their duration is the lifetime of the socket.
func Observability(logger zerolog.Logger, prefix string) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), prefix) || websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		// fiber writes the error response after the chain returns, so map it here
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		route := routeTemplate(c)
		method := c.Method()
		statusLabel := strconv.Itoa(status)

		observability.AdminRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.AdminLatency().WithLabelValues(method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.AdminErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		event := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error()
		case status >= fiber.StatusBadRequest, duration > slowRequestThreshold:
			event = logger.Warn()
		}

		actor := ActorFromContext(c)
		event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Dur("latency", duration).
			Bool("slow", duration > slowRequestThreshold).
			Uint("actor_id", actor.ID).
			Str("actor_role", actor.Role).
			Msg("admin request")

		return err
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}
