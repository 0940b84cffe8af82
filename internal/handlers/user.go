package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/threadline/backend/internal/middleware"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/session"
)

type ProfileService interface {
	Me(ctx context.Context, sess session.Session) (models.Profile, error)
	UpdateMe(ctx context.Context, sess session.Session, req models.UpdateProfileRequest) (models.Profile, error)
	ListUsers(ctx context.Context, sess session.Session) ([]models.UserWithFollowStatus, error)
}

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	profiles ProfileService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(profiles ProfileService) *UserHandler {
	return &UserHandler{profiles: profiles}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/me", h.GetProfile)
	g.PUT("/me", h.UpdateProfile)
	g.GET("/users", h.ListUsers)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	profile, err := h.profiles.Me(c.Request().Context(), middleware.SessionFrom(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	profile, err := h.profiles.UpdateMe(c.Request().Context(), middleware.SessionFrom(c), req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, profile)
}

// ListUsers lists everyone else with the caller's follow status
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.profiles.ListUsers(c.Request().Context(), middleware.SessionFrom(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, users)
}
