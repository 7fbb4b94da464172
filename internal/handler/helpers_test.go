package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/models"
)

var (
	actorStudent   = authz.NewActor(1, models.RoleStudent)
	actorAdmin     = authz.NewActor(2, models.RoleAdmin)
	actorModerator = authz.NewActor(3, models.RoleModerator)
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupHandlerDB(t *testing.T, tables ...interface{}) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(tables...))
	return db
}

// asActor stands in for the JWT middleware.
func asActor(actor authz.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if actor.ID != 0 {
			c.Locals("user_id", actor.ID)
		}
		c.Locals("user_role", actor.Role)
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	return doJSONAs(t, app, "", method, path, body)
}

// doJSONAs sends the request as one of testActors; an empty name sends it anonymously.
func doJSONAs(t *testing.T, app *fiber.App, actor, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(testActorHeader, actor)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

// requireSchema checks a response body against a contract under testdata.
func requireSchema(t *testing.T, resp *http.Response, file string) {
	t.Helper()
	defer resp.Body.Close()

	path, err := filepath.Abs(filepath.Join("testdata", file))
	require.NoError(t, err)
	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(path))
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NoError(t, schema.Validate(payload))
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}
