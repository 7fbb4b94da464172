package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func call(t *testing.T, handler fiber.Handler) (int, envelope) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestOKCarriesPaginationMeta(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		events := []map[string]string{{"slug": "freshers-week"}}
		return utils.OK(c, events, "", map[string]int{"page": 2, "total": 11})
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, body.Success)
	require.Equal(t, "success", body.Message)
	require.JSONEq(t, `[{"slug":"freshers-week"}]`, string(body.Data))
	require.JSONEq(t, `{"page":2,"total":11}`, string(body.Meta))
	require.Empty(t, body.Details)
}

func TestSendSuccessWithStatusKeepsStatus(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "event created", fiber.Map{"id": 7})
	})

	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, "event created", body.Message)
	require.JSONEq(t, `{"id":7}`, string(body.Data))

	status, body = call(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, 0, "", nil)
	})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "success", body.Message)
	require.Empty(t, body.Data)
}

func TestFailDefaultsAndFieldDetails(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, 0, "", nil)
	})
	require.Equal(t, fiber.StatusInternalServerError, status)
	require.False(t, body.Success)
	require.Equal(t, "error", body.Message)

	type topUp struct {
		Amount int64  `json:"amount" validate:"gt=0"`
		Note   string `json:"note" validate:"max=4"`
	}
	var verrs validator.ValidationErrors
	require.ErrorAs(t, utils.NewValidator().Struct(topUp{Note: "too long"}), &verrs)

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}

	status, body = call(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", fields)
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "validation failed", body.Message)
	require.JSONEq(t, `["amount","note"]`, string(body.Details))
	require.Empty(t, body.Data)
}
