package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/threadline/backend/internal/middleware"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/session"
)

type NotificationService interface {
	List(ctx context.Context, sess session.Session) ([]models.NotificationView, error)
	UnreadCount(ctx context.Context, sess session.Session) (int64, error)
	MarkAllRead(ctx context.Context, sess session.Session) (int64, error)
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: svc}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	items, err := h.notifications.List(c.Request().Context(), middleware.SessionFrom(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, items)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.notifications.UnreadCount(c.Request().Context(), middleware.SessionFrom(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"count": count})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	updated, err := h.notifications.MarkAllRead(c.Request().Context(), middleware.SessionFrom(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"updated": updated})
}
