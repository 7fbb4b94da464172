package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		userID interface{}
		role   interface{}
		status int
	}{
		{name: "admin", userID: uint(1), role: "admin", status: fiber.StatusOK},
		{name: "moderator mixed case", userID: uint(2), role: " Moderator ", status: fiber.StatusOK},
		{name: "student", userID: uint(3), role: "student", status: fiber.StatusForbidden},
		{name: "unknown role falls back to student", userID: uint(4), role: "teacher", status: fiber.StatusForbidden},
		{name: "role without user", role: "admin", status: fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				if tc.userID != nil {
					c.Locals("user_id", tc.userID)
				}
				c.Locals("user_role", tc.role)
				return c.Next()
			})
			app.Use(RequireRole("admin", "moderator"))
			app.Get("/admin", func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
