package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/middleware"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/session"
)

// EngagementService is what the engagement routes need from the service layer
type EngagementService interface {
	Toggle(ctx context.Context, sess session.Session, kind models.Kind, targetID string) (models.ToggleResult, error)
	ListEngagedTargetIDs(ctx context.Context, sess session.Session, kind models.Kind) ([]string, error)
	BatchState(ctx context.Context, sess session.Session, kind models.Kind, targetIDs []string) (map[string]models.TargetState, error)
}

// EngagementHandler serves the like, bookmark and follow toggles
type EngagementHandler struct {
	engagements EngagementService
}

func NewEngagementHandler(svc EngagementService) *EngagementHandler {
	return &EngagementHandler{engagements: svc}
}

// RegisterEngagementRoutes registers the generic routes plus a per-kind
// shorthand for each toggle. toggleMW wraps the toggle routes only.
func (h *EngagementHandler) RegisterEngagementRoutes(g *echo.Group, toggleMW ...echo.MiddlewareFunc) {
	g.POST("/engagements/:kind/:target_id/toggle", h.Toggle, toggleMW...)
	g.GET("/engagements/:kind", h.ListEngaged)
	g.POST("/engagements/:kind/state", h.BatchState)

	g.POST("/posts/:id/like", h.toggleKind(models.KindLike), toggleMW...)
	g.POST("/posts/:id/bookmark", h.toggleKind(models.KindBookmark), toggleMW...)
	g.POST("/users/:id/follow", h.toggleKind(models.KindFollow), toggleMW...)
}

func (h *EngagementHandler) Toggle(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	return h.toggle(c, kind, c.Param("target_id"))
}

func (h *EngagementHandler) toggleKind(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error { return h.toggle(c, kind, c.Param("id")) }
}

func (h *EngagementHandler) toggle(c echo.Context, kind models.Kind, targetID string) error {
	res, err := h.engagements.Toggle(c.Request().Context(), middleware.SessionFrom(c), kind, targetID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res)
}

// ListEngaged returns the IDs of every target the actor has engaged with
func (h *EngagementHandler) ListEngaged(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	ids, err := h.engagements.ListEngagedTargetIDs(c.Request().Context(), middleware.SessionFrom(c), kind)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"targetIds": ids})
}

func (h *EngagementHandler) BatchState(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	var req models.BatchStateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	state, err := h.engagements.BatchState(c.Request().Context(), middleware.SessionFrom(c), kind, req.TargetIDs)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, state)
}

func kindParam(c echo.Context) (models.Kind, error) {
	kind, err := models.ParseKind(c.Param("kind"))
	if err != nil {
		return "", apperr.Wrap(apperr.Invalid, "Unknown engagement kind", err)
	}
	return kind, nil
}
