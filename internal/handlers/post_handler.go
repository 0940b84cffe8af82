package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/threadline/backend/internal/middleware"
	"github.com/anonto42/threadline/backend/internal/models"
)

// PostHandler handles single-post requests
type PostHandler struct {
	feed FeedService
}

func NewPostHandler(feed FeedService) *PostHandler {
	return &PostHandler{feed: feed}
}

func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.DELETE("/posts/:id", h.DeletePost)
}

func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.feed.CreatePost(c.Request().Context(), middleware.SessionFrom(c), req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, post)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.feed.GetPost(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c echo.Context) error {
	if err := h.feed.DeletePost(c.Request().Context(), middleware.SessionFrom(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Post deleted successfully"})
}
