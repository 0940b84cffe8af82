package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/middleware"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/session"
	"github.com/anonto42/threadline/backend/validators"
)

type fakeEngagements struct {
	lastSession session.Session
	lastKind    models.Kind
	lastTarget  string
	result      models.ToggleResult
	err         error
}

func (f *fakeEngagements) Toggle(_ context.Context, sess session.Session, kind models.Kind, targetID string) (models.ToggleResult, error) {
	f.lastSession, f.lastKind, f.lastTarget = sess, kind, targetID
	if !sess.Authenticated() {
		return models.ToggleResult{}, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	return f.result, f.err
}

func (f *fakeEngagements) ListEngagedTargetIDs(_ context.Context, sess session.Session, kind models.Kind) ([]string, error) {
	f.lastSession, f.lastKind = sess, kind
	return []string{"p2", "p1"}, f.err
}

func (f *fakeEngagements) BatchState(_ context.Context, _ session.Session, _ models.Kind, ids []string) (map[string]models.TargetState, error) {
	out := map[string]models.TargetState{}
	for i, id := range ids {
		out[id] = models.TargetState{HasEngaged: i == 0, Count: int64(i + 3)}
	}
	return out, f.err
}

type testServer struct {
	e      *echo.Echo
	tokens *session.JWTProvider
}

func newTestServer(t *testing.T, register func(g *echo.Group)) *testServer {
	t.Helper()
	tokens := session.NewJWTProvider("test-secret", time.Hour)
	e := echo.New()
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	api := e.Group("/api/v1", middleware.Session(tokens, zap.NewNop()))
	register(api)
	return &testServer{e: e, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, actor, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if actor != "" {
		token, err := s.tokens.IssueToken(&models.User{ID: actor})
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestToggleEndpointReturnsAuthoritativeState(t *testing.T) {
	svc := &fakeEngagements{result: models.ToggleResult{Added: true, Count: 4}}
	srv := newTestServer(t, func(g *echo.Group) { NewEngagementHandler(svc).RegisterEngagementRoutes(g) })

	rec, env := srv.do(t, http.MethodPost, "/api/v1/engagements/like/p1/toggle", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, map[string]interface{}{"added": true, "count": float64(4)}, env.Data)
	assert.Equal(t, "alice", svc.lastSession.ActorID)
	assert.Equal(t, models.KindLike, svc.lastKind)
	assert.Equal(t, "p1", svc.lastTarget)
}

func TestToggleShorthandRoutes(t *testing.T) {
	svc := &fakeEngagements{}
	srv := newTestServer(t, func(g *echo.Group) { NewEngagementHandler(svc).RegisterEngagementRoutes(g) })

	srv.do(t, http.MethodPost, "/api/v1/users/bob/follow", "alice", "")
	assert.Equal(t, models.KindFollow, svc.lastKind)
	assert.Equal(t, "bob", svc.lastTarget)

	srv.do(t, http.MethodPost, "/api/v1/posts/p9/bookmark", "alice", "")
	assert.Equal(t, models.KindBookmark, svc.lastKind)
}

func TestToggleFailuresUseTheEnvelope(t *testing.T) {
	cases := []struct {
		name   string
		actor  string
		err    error
		status int
		code   apperr.Kind
	}{
		{"no session", "", nil, http.StatusUnauthorized, apperr.Unauthenticated},
		{"self follow", "alice", apperr.New(apperr.InvalidSelfReference, "You cannot follow yourself"), http.StatusBadRequest, apperr.InvalidSelfReference},
		{"missing target", "alice", apperr.New(apperr.TargetNotFound, "Post not found"), http.StatusNotFound, apperr.TargetNotFound},
		{"store down", "alice", apperr.Unavailable("Could not update engagement", errors.New("dial tcp")), http.StatusServiceUnavailable, apperr.PersistenceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, func(g *echo.Group) { NewEngagementHandler(&fakeEngagements{err: tc.err}).RegisterEngagementRoutes(g) })
			rec, env := srv.do(t, http.MethodPost, "/api/v1/engagements/like/p1/toggle", tc.actor, "")
			assert.Equal(t, tc.status, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.code, env.Code)
			assert.NotEmpty(t, env.Error)
			assert.Nil(t, env.Data)
		})
	}
}

func TestUnknownKindIsRejected(t *testing.T) {
	srv := newTestServer(t, func(g *echo.Group) { NewEngagementHandler(&fakeEngagements{}).RegisterEngagementRoutes(g) })
	rec, env := srv.do(t, http.MethodPost, "/api/v1/engagements/retweet/p1/toggle", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.Invalid, env.Code)
}

func TestInvalidTokenIsRejectedBeforeTheHandler(t *testing.T) {
	svc := &fakeEngagements{}
	srv := newTestServer(t, func(g *echo.Group) { NewEngagementHandler(svc).RegisterEngagementRoutes(g) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/engagements/like/p1/toggle", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	srv.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.lastTarget)
}

func TestListAndBatchStateEndpoints(t *testing.T) {
	srv := newTestServer(t, func(g *echo.Group) { NewEngagementHandler(&fakeEngagements{}).RegisterEngagementRoutes(g) })

	rec, env := srv.do(t, http.MethodGet, "/api/v1/engagements/bookmark", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"targetIds": []interface{}{"p2", "p1"}}, env.Data)

	rec, env = srv.do(t, http.MethodPost, "/api/v1/engagements/like/state", "alice", `{"target_ids":["p1","p2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"p1": map[string]interface{}{"hasEngaged": true, "count": float64(3)},
		"p2": map[string]interface{}{"hasEngaged": false, "count": float64(4)},
	}, env.Data)

	rec, env = srv.do(t, http.MethodPost, "/api/v1/engagements/like/state", "alice", `{"target_ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.Invalid, env.Code)
}

type fakeComments struct {
	created models.CreateCommentRequest
}

func (f *fakeComments) List(context.Context, string) ([]models.CommentView, error) {
	return []models.CommentView{}, nil
}

func (f *fakeComments) Create(_ context.Context, _ session.Session, postID string, req models.CreateCommentRequest) (models.CommentView, error) {
	f.created = req
	return models.CommentView{Comment: models.Comment{ID: "c1", PostID: postID, Description: req.Description}}, nil
}

func (f *fakeComments) Delete(context.Context, session.Session, string) error {
	return apperr.New(apperr.Forbidden, "You can only delete your own comments")
}

func TestCommentRoutes(t *testing.T) {
	svc := &fakeComments{}
	srv := newTestServer(t, NewCommentHandler(svc).RegisterCommentRoutes)

	rec, env := srv.do(t, http.MethodPost, "/api/v1/posts/p1/comments", "alice", `{"description":"nice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "nice", svc.created.Description)

	rec, env = srv.do(t, http.MethodPost, "/api/v1/posts/p1/comments", "alice", `{"description":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.Invalid, env.Code)

	rec, env = srv.do(t, http.MethodDelete, "/api/v1/comments/c1", "bob", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.Forbidden, env.Code)
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) Verify(context.Context, string) (session.Identity, error) {
	return session.Identity{UID: "fb-1", Email: "ann@example.com"}, f.err
}

type fakeSyncer struct{}

func (fakeSyncer) SyncUser(_ context.Context, id session.Identity) (*models.User, error) {
	return &models.User{ID: id.UID, Email: id.Email, Name: "Ann"}, nil
}

func TestFirebaseLoginIssuesUsableToken(t *testing.T) {
	srv := newTestServer(t, func(g *echo.Group) {
		NewAuthHandler(fakeVerifier{}, fakeSyncer{}, session.NewJWTProvider("test-secret", time.Hour)).RegisterAuthRoutes(g.Group("/auth"))
	})

	rec, env := srv.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", `{"idToken":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := env.Data.(map[string]interface{})
	sess, err := srv.tokens.Parse(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "fb-1", sess.ActorID)

	bad := newTestServer(t, func(g *echo.Group) {
		NewAuthHandler(fakeVerifier{err: session.ErrInvalidToken}, fakeSyncer{}, srv.tokens).RegisterAuthRoutes(g.Group("/auth"))
	})
	rec, env = bad.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", `{"idToken":"abc"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.Unauthenticated, env.Code)
}

func TestHealthReportsDependencies(t *testing.T) {
	e := echo.New()
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("timeout") }

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, NewHealthHandler("engagement-api", map[string]Pinger{"postgres": up}).HealthCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, NewHealthHandler("engagement-api", map[string]Pinger{"postgres": up, "mongo": down}).HealthCheck(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mongo":"down"`)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	srv := newTestServer(t, func(*echo.Group) {})
	rec, env := srv.do(t, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, apperr.TargetNotFound, env.Code)
}
