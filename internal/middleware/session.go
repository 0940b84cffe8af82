package middleware

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/session"
)

const sessionKey = "session"

// Session resolves the request's session once and stores it on the context.
// Requests without credentials pass through with no session; services decide
// whether that is enough. Bad credentials are rejected here.
func Session(provider session.Provider, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := provider.GetSession(c.Request().Context(), c.Request())
			if err != nil {
				log.Debug("rejected credentials", zap.String("path", c.Path()), zap.Error(err))
				return apperr.Wrap(apperr.Unauthenticated, "Invalid or expired token", err)
			}
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

// SessionFrom returns the session stored by Session, or the zero session
func SessionFrom(c echo.Context) session.Session {
	sess, _ := c.Get(sessionKey).(session.Session)
	return sess
}
