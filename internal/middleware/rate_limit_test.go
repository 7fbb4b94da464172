package middleware_test

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/database"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
)

func limitedApp(store fiber.Storage) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if uid := c.QueryInt("uid"); uid > 0 {
			c.Locals("user_id", uint(uid))
		}
		return c.Next()
	})
	app.Get("/", middleware.RateLimit("community_post", 2, time.Minute, store), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func hit(t *testing.T, app *fiber.App, uid string) int {
	t.Helper()
	resp, err := app.Test(httptestRequest("/?uid="+uid), -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRateLimitIsPerUser(t *testing.T) {
	app := limitedApp(nil)

	require.Equal(t, fiber.StatusOK, hit(t, app, "1"))
	require.Equal(t, fiber.StatusOK, hit(t, app, "1"))
	require.Equal(t, fiber.StatusTooManyRequests, hit(t, app, "1"))
	require.Equal(t, fiber.StatusOK, hit(t, app, "2"))

	resp, err := app.Test(httptestRequest("/?uid=1"), -1)
	require.NoError(t, err)
	require.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRateLimitSharesBudgetThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := database.NewRedisStorage(client, "portal:ratelimit:")
	nodeA, nodeB := limitedApp(store), limitedApp(store)

	require.Equal(t, fiber.StatusOK, hit(t, nodeA, "7"))
	require.Equal(t, fiber.StatusOK, hit(t, nodeB, "7"))
	require.Equal(t, fiber.StatusTooManyRequests, hit(t, nodeA, "7"))
	require.NotEmpty(t, mr.Keys())

	require.NoError(t, store.Reset())
	require.Empty(t, mr.Keys())
	require.Equal(t, fiber.StatusOK, hit(t, nodeB, "7"))
}

func TestNewRedisStorageWithoutClient(t *testing.T) {
	require.Nil(t, database.NewRedisStorage(nil, "x:"))
}
