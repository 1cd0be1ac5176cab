package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/response"
)

// ErrorHandler is the single place that turns errors into response envelopes.
// Expected domain failures surface verbatim; anything unexpected is logged in
// full and reduced to a generic message.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status  int
			message string
			fields  []apperrors.FieldError
		)

		var httpErr *apperrors.HTTPError
		var validationErrs validator.ValidationErrors
		var echoErr *echo.HTTPError

		switch {
		case errors.As(err, &httpErr):
			status = httpErr.StatusCode
			message = httpErr.Message
			fields = httpErr.Fields
		case errors.As(err, &validationErrs):
			status = http.StatusBadRequest
			message = "Validation failed"
			fields = translateValidationErrors(validationErrs)
		case errors.As(err, &echoErr):
			status = echoErr.Code
			message = fmt.Sprintf("%v", echoErr.Message)
		default:
			mapped := apperrors.MapError(err)
			status = mapped.StatusCode
			message = mapped.Message
			fields = mapped.Fields
		}

		if status >= http.StatusInternalServerError {
			log.Error("unhandled error",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
			)
		}

		if writeErr := response.Fail(c, status, message, fields); writeErr != nil {
			log.Error("write error response", zap.Error(writeErr))
		}
	}
}

func translateValidationErrors(errs validator.ValidationErrors) []apperrors.FieldError {
	fields := make([]apperrors.FieldError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, apperrors.FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: validationMessage(fe),
		})
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", field, fe.Param())
	case "strongpassword":
		return "Password must contain an uppercase letter, a number, and a special character"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
