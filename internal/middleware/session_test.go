package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/session"
)

type stubProvider struct {
	sess session.Session
	err  error
}

func (p stubProvider) GetSession(context.Context, *http.Request) (session.Session, error) {
	return p.sess, p.err
}

func run(t *testing.T, p session.Provider) (session.Session, error) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	var seen session.Session
	err := Session(p, zap.NewNop())(func(c echo.Context) error {
		seen = SessionFrom(c)
		return nil
	})(c)
	return seen, err
}

func TestSessionStoresResolvedActor(t *testing.T) {
	seen, err := run(t, stubProvider{sess: session.Session{ActorID: "alice"}})
	require.NoError(t, err)
	assert.Equal(t, "alice", seen.ActorID)
}

func TestSessionPassesAnonymousThrough(t *testing.T) {
	seen, err := run(t, stubProvider{})
	require.NoError(t, err)
	assert.False(t, seen.Authenticated())
}

func TestSessionRejectsBadCredentials(t *testing.T) {
	_, err := run(t, stubProvider{err: errors.New("bad signature")})
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}
