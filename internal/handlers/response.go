package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/threadline/backend/internal/apperr"
)

// Envelope is the shape of every JSON response
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    apperr.Kind `json:"code,omitempty"`
}

func ok(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// ErrorHandler renders every error returned by a handler or middleware as
// a failed Envelope
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("could not write error response", zap.Error(err))
		}
	}
}

func render(err error) (int, Envelope) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, Envelope{Error: fmt.Sprint(he.Message), Code: kindForStatus(he.Code)}
	}
	kind := apperr.KindOf(err)
	return apperr.HTTPStatus(kind), Envelope{Error: apperr.Message(err), Code: kind}
}

func kindForStatus(status int) apperr.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return apperr.Unauthenticated
	case status == http.StatusForbidden:
		return apperr.Forbidden
	case status == http.StatusNotFound:
		return apperr.TargetNotFound
	case status == http.StatusTooManyRequests:
		return apperr.PersistenceUnavailable
	case status < http.StatusInternalServerError:
		return apperr.Invalid
	default:
		return apperr.PersistenceUnavailable
	}
}

// bindAndValidate decodes the body into req and runs the registered validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Wrap(apperr.Invalid, "Invalid request payload", err)
	}
	return c.Validate(req)
}
