package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/threadline/backend/internal/middleware"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/session"
)

type CommentService interface {
	List(ctx context.Context, postID string) ([]models.CommentView, error)
	Create(ctx context.Context, sess session.Session, postID string, req models.CreateCommentRequest) (models.CommentView, error)
	Delete(ctx context.Context, sess session.Session, commentID string) error
}

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	comments CommentService
}

func NewCommentHandler(comments CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/posts/:id/comments", h.GetCommentsForPost)
	g.POST("/posts/:id/comments", h.CreateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

func (h *CommentHandler) GetCommentsForPost(c echo.Context) error {
	comments, err := h.comments.List(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, comments)
}

func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Create(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, comment)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	if err := h.comments.Delete(c.Request().Context(), middleware.SessionFrom(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Comment deleted successfully"})
}
