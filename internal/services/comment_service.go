package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/notify"
	"github.com/anonto42/threadline/backend/internal/repositories"
	"github.com/anonto42/threadline/backend/internal/session"
)

type CommentService struct {
	comments repositories.CommentRepository
	posts    repositories.PostRepository
	users    repositories.UserRepository
	sink     notify.Sink
	log      *zap.Logger
}

func NewCommentService(comments repositories.CommentRepository, posts repositories.PostRepository, users repositories.UserRepository, sink notify.Sink, log *zap.Logger) *CommentService {
	if sink == nil {
		sink = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CommentService{comments: comments, posts: posts, users: users, sink: sink, log: log}
}

func (s *CommentService) List(ctx context.Context, postID string) ([]models.CommentView, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, postLookupError(err)
	}
	comments, err := s.comments.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, apperr.Unavailable("Could not load comments", err)
	}
	authorIDs := make([]string, len(comments))
	for i, c := range comments {
		authorIDs[i] = c.UserID
	}
	authors, err := s.users.GetUsersByIDs(ctx, dedupe(authorIDs))
	if err != nil {
		return nil, apperr.Unavailable("Could not load comments", err)
	}

	views := make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		author := authors[c.UserID]
		views = append(views, models.CommentView{Comment: c, User: author.ToCompact()})
	}
	return views, nil
}

// Create adds a comment and notifies the post owner when someone else commented
func (s *CommentService) Create(ctx context.Context, sess session.Session, postID string, req models.CreateCommentRequest) (models.CommentView, error) {
	if !sess.Authenticated() {
		return models.CommentView{}, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return models.CommentView{}, postLookupError(err)
	}

	comment := models.Comment{
		ID:          uuid.NewString(),
		PostID:      postID,
		UserID:      sess.ActorID,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	if err := s.comments.CreateComment(ctx, &comment); err != nil {
		return models.CommentView{}, apperr.Unavailable("Could not create comment", err)
	}

	if post.UserID != sess.ActorID {
		commentID := comment.ID
		pid := postID
		n := models.Notification{
			Type:          models.NotificationComment,
			RecipientID:   post.UserID,
			TriggeredByID: sess.ActorID,
			PostID:        &pid,
			CommentID:     &commentID,
			CreatedAt:     comment.CreatedAt,
		}
		if err := s.sink.Emit(ctx, n); err != nil {
			s.log.Warn("notification not delivered", zap.String("type", n.Type), zap.Error(err))
		}
	}

	view := models.CommentView{Comment: comment}
	if author, err := s.users.GetUserByID(ctx, sess.ActorID); err == nil {
		view.User = author.ToCompact()
	}
	return view, nil
}

// Delete removes a comment; only its author may do so
func (s *CommentService) Delete(ctx context.Context, sess session.Session, commentID string) error {
	if !sess.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if errors.Is(err, repositories.ErrCommentNotFound) {
		return apperr.New(apperr.TargetNotFound, "Comment not found")
	}
	if err != nil {
		return apperr.Unavailable("Could not load comment", err)
	}
	if comment.UserID != sess.ActorID {
		return apperr.New(apperr.Forbidden, "You can only delete your own comments")
	}
	if err := s.comments.DeleteComment(ctx, commentID); err != nil {
		return apperr.Unavailable("Could not delete comment", err)
	}
	return nil
}
