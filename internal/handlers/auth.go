package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/session"
)

// IdentityVerifier checks an ID token issued by the external auth service
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (session.Identity, error)
}

type UserSyncer interface {
	SyncUser(ctx context.Context, id session.Identity) (*models.User, error)
}

type TokenIssuer interface {
	IssueToken(user *models.User) (string, error)
}

// AuthHandler exchanges a Firebase ID token for a local session token
type AuthHandler struct {
	verifier IdentityVerifier
	users    UserSyncer
	tokens   TokenIssuer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(verifier IdentityVerifier, users UserSyncer, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{verifier: verifier, users: users, tokens: tokens}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/firebase-login", h.FirebaseLogin)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies the ID token, records the user and issues a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	identity, err := h.verifier.Verify(c.Request().Context(), req.IDToken)
	if err != nil {
		return apperr.Wrap(apperr.Unauthenticated, "Invalid Firebase ID token", err)
	}

	user, err := h.users.SyncUser(c.Request().Context(), identity)
	if err != nil {
		return err
	}

	token, err := h.tokens.IssueToken(user)
	if err != nil {
		return apperr.Unavailable("Failed to generate token", err)
	}
	return ok(c, http.StatusOK, echo.Map{"token": token, "user": user.ToCompact()})
}
