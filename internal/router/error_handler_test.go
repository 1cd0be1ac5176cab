package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/response"
)

func perform(t *testing.T, h echo.HandlerFunc) (int, response.Envelope) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	e.GET("/test", h)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestErrorHandler(t *testing.T) {
	t.Run("domain error maps to its status", func(t *testing.T) {
		code, env := perform(t, func(c echo.Context) error {
			return apperrors.ErrTaskNotFound
		})
		assert.Equal(t, http.StatusNotFound, code)
		assert.False(t, env.Success)
		assert.Equal(t, "task not found", env.Message)
	})

	t.Run("no-fields maps to 400", func(t *testing.T) {
		code, env := perform(t, func(c echo.Context) error {
			return apperrors.ErrNoFields
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "no fields to update", env.Message)
	})

	t.Run("validation error carries field messages", func(t *testing.T) {
		type payload struct {
			Email string `validate:"required,email"`
		}
		code, env := perform(t, func(c echo.Context) error {
			return c.Validate(&payload{Email: "nope"})
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Validation failed", env.Message)
		require.Len(t, env.Errors, 1)
		assert.Equal(t, "email", env.Errors[0].Field)
	})

	t.Run("unexpected error reduces to a generic 500", func(t *testing.T) {
		code, env := perform(t, func(c echo.Context) error {
			return assert.AnError
		})
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "internal server error", env.Message)
	})

	t.Run("echo http error keeps its envelope shape", func(t *testing.T) {
		code, env := perform(t, func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Access denied. No token provided.")
		})
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Access denied. No token provided.", env.Message)
	})
}
