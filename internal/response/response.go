package response

import (
	"github.com/labstack/echo/v4"

	apperrors "taskhub/internal/errors"
)

// Envelope is the uniform JSON body shared by every endpoint.
type Envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Errors  []apperrors.FieldError `json:"errors,omitempty"`
}

// OK writes a success envelope with the given status code.
func OK(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Fail writes a failure envelope.
func Fail(c echo.Context, status int, message string, fields []apperrors.FieldError) error {
	return c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Errors:  fields,
	})
}
