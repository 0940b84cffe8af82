package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/threadline/backend/internal/middleware"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/session"
)

// FeedService is the read and write side of posts
type FeedService interface {
	ListFeed(ctx context.Context, sess session.Session) ([]models.PostView, error)
	GetPost(ctx context.Context, sess session.Session, id string) (models.PostView, error)
	LikedPosts(ctx context.Context, sess session.Session) ([]models.PostView, error)
	BookmarkedPosts(ctx context.Context, sess session.Session) ([]models.PostView, error)
	MyPosts(ctx context.Context, sess session.Session) ([]models.PostView, error)
	CreatePost(ctx context.Context, sess session.Session, req models.CreatePostRequest) (models.PostView, error)
	DeletePost(ctx context.Context, sess session.Session, id string) error
}

// FeedHandler serves the post lists
type FeedHandler struct {
	feed FeedService
}

func NewFeedHandler(feed FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/me/likes", h.GetLikedPosts)
	g.GET("/me/bookmarks", h.GetBookmarkedPosts)
	g.GET("/me/posts", h.GetMyPosts)
}

func (h *FeedHandler) GetFeed(c echo.Context) error {
	return h.list(c, h.feed.ListFeed)
}

func (h *FeedHandler) GetLikedPosts(c echo.Context) error {
	return h.list(c, h.feed.LikedPosts)
}

func (h *FeedHandler) GetBookmarkedPosts(c echo.Context) error {
	return h.list(c, h.feed.BookmarkedPosts)
}

func (h *FeedHandler) GetMyPosts(c echo.Context) error {
	return h.list(c, h.feed.MyPosts)
}

func (h *FeedHandler) list(c echo.Context, load func(context.Context, session.Session) ([]models.PostView, error)) error {
	posts, err := load(c.Request().Context(), middleware.SessionFrom(c))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, posts)
}
