package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anonto42/threadline/backend/internal/handlers"
	"github.com/anonto42/threadline/backend/internal/session"
)

func newTestEcho(t *testing.T, health map[string]handlers.Pinger) *echo.Echo {
	t.Helper()
	pg, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	// the driver connects lazily, nothing here reaches a server
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	e := echo.New()
	SetupRoutes(e, Dependencies{
		Postgres: pg,
		Mongo:    client.Database("test"),
		Sessions: session.NewJWTProvider("secret", 0),
		Health:   health,
		Log:      zap.NewNop(),
	})
	return e
}

func TestSetupRoutesRegistersEngagementSurface(t *testing.T) {
	e := newTestEcho(t, nil)

	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/engagements/:kind/:target_id/toggle",
		"GET /api/v1/engagements/:kind",
		"POST /api/v1/engagements/:kind/state",
		"POST /api/v1/posts/:id/like",
		"POST /api/v1/posts/:id/bookmark",
		"POST /api/v1/users/:id/follow",
		"GET /api/v1/feed",
		"GET /api/v1/me/posts",
		"GET /api/v1/notifications",
		"GET /health",
	} {
		assert.True(t, registered[want], want)
	}
	assert.False(t, registered["POST /api/v1/auth/firebase-login"], "auth routes need firebase")
}

func TestToggleWithoutSessionIsUnauthorized(t *testing.T) {
	e := newTestEcho(t, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/posts/abc/like", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestHealthReportsDegradedStore(t *testing.T) {
	e := newTestEcho(t, map[string]handlers.Pinger{
		"postgres": func(context.Context) error { return nil },
		"mongo":    func(context.Context) error { return errors.New("unreachable") },
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mongo":"down"`)
	assert.Contains(t, rec.Body.String(), `"postgres":"up"`)
}
