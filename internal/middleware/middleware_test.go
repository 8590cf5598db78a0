package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vortexboard/internal/repository"
	"vortexboard/pkg/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(RequestID(), RequestLogger(), Recover(), Tracing())
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestUseToken(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	app := newTestApp()
	app.Get("/me", UseToken(tm), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": UserID(c).Hex(), "role": Role(c)})
	})

	id := primitive.NewObjectID()
	token, err := tm.Generate(id, "user")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, fiber.StatusUnauthorized},
		{"garbage", "Bearer nope", fiber.StatusUnauthorized},
		{"valid", "Bearer " + token, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := decode(t, resp)
			if tc.status == fiber.StatusOK {
				assert.Equal(t, id.Hex(), body["id"])
				assert.Equal(t, "user", body["role"])
			} else {
				assert.Equal(t, false, body["success"])
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestUseTokenExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	token, err := auth.NewTokenManager(testSecret, time.Hour).WithClock(func() time.Time { return past }).Generate(primitive.NewObjectID(), "user")
	require.NoError(t, err)

	app := newTestApp()
	app.Get("/me", UseToken(auth.NewTokenManager(testSecret, time.Hour)), func(c *fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token expired", decode(t, resp)["error"])
}

func TestValidateObjectID(t *testing.T) {
	app := newTestApp()
	app.Get("/boards/:id", ValidateObjectID("id"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boards/not-an-id", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid id format", decode(t, resp)["error"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boards/"+primitive.NewObjectID().Hex(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRecoverReturnsEnvelope(t *testing.T) {
	app := newTestApp()
	app.Get("/panic", func(c *fiber.Ctx) error { panic("kaboom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Server Error", body["error"])
}

func TestErrorHandlerMapsRepositoryErrors(t *testing.T) {
	app := newTestApp()
	app.Get("/missing", func(c *fiber.Ctx) error { return repository.ErrNotFound })
	app.Get("/dup", func(c *fiber.Ctx) error { return repository.ErrDuplicateEmail })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("mongo: connection reset") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/dup", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already exists with this email", decode(t, resp)["error"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Server Error", decode(t, resp)["error"], "internal errors are not leaked")
}

func TestRequestIDEchoesHeader(t *testing.T) {
	app := newTestApp()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(fiber.HeaderXRequestID))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "req-123", string(body))
}

func TestRequireRole(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	app := newTestApp()
	app.Get("/admin", UseToken(tm), RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"role": Role(c)})
	})

	admin, err := tm.Generate(primitive.NewObjectID(), "admin")
	require.NoError(t, err)
	user, err := tm.Generate(primitive.NewObjectID(), "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+user)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "User role 'user' is not authorized to access this route", decode(t, resp)["error"])

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", decode(t, resp)["role"])
}
