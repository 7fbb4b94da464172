package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// RateLimit allows max requests per window for each caller of the bucket named scope.
// Authenticated callers are keyed by user id, anonymous ones by IP. A nil store keeps
// counters in process memory.
func RateLimit(scope string, max int, window time.Duration, store fiber.Storage) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    store,
		KeyGenerator: func(c *fiber.Ctx) string {
			if actor := ActorFromContext(c); actor.Authenticated() {
				return scope + ":u" + strconv.FormatUint(uint64(actor.ID), 10)
			}
			return scope + ":ip" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests, slow down", fiber.Map{
				"scope": scope,
				"limit": max,
			})
		},
	})
}
