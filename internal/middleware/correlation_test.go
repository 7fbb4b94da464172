package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAcceptCorrelationID(t *testing.T) {
	require.Equal(t, "req-42.a_b", acceptCorrelationID(" req-42.a_b "))
	require.Empty(t, acceptCorrelationID("bad id"))
	require.Empty(t, acceptCorrelationID("line\nbreak"))
	require.Empty(t, acceptCorrelationID(string(make([]byte, maxCorrelationLength+1))))
}

func TestCorrelationIDBindsContextAndHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID(zerolog.Nop()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CorrelationIDFromContext(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "<script>")
	resp, err = app.Test(req)
	require.NoError(t, err)
	generated := resp.Header.Get("X-Correlation-ID")
	require.Len(t, generated, 36)
}
