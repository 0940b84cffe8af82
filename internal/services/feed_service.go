package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/repositories"
	"github.com/anonto42/threadline/backend/internal/session"
)

// FeedService serves posts enriched with the actor's like and bookmark state
type FeedService struct {
	posts       repositories.PostRepository
	users       repositories.UserRepository
	engagements repositories.EngagementRepository
	comments    repositories.CommentRepository
	log         *zap.Logger
}

func NewFeedService(posts repositories.PostRepository, users repositories.UserRepository, engagements repositories.EngagementRepository, comments repositories.CommentRepository, log *zap.Logger) *FeedService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedService{posts: posts, users: users, engagements: engagements, comments: comments, log: log}
}

func (s *FeedService) ListFeed(ctx context.Context, sess session.Session) ([]models.PostView, error) {
	posts, err := s.posts.GetAllPosts(ctx)
	if err != nil {
		return nil, apperr.Unavailable("Could not load posts", err)
	}
	return s.enrich(ctx, sess, posts)
}

func (s *FeedService) GetPost(ctx context.Context, sess session.Session, id string) (models.PostView, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return models.PostView{}, postLookupError(err)
	}
	views, err := s.enrich(ctx, sess, []models.Post{*post})
	if err != nil {
		return models.PostView{}, err
	}
	return views[0], nil
}

// LikedPosts lists the posts the actor has liked, most recently liked first
func (s *FeedService) LikedPosts(ctx context.Context, sess session.Session) ([]models.PostView, error) {
	return s.engagedPosts(ctx, sess, models.KindLike)
}

func (s *FeedService) BookmarkedPosts(ctx context.Context, sess session.Session) ([]models.PostView, error) {
	return s.engagedPosts(ctx, sess, models.KindBookmark)
}

// MyPosts lists the actor's own posts, newest first
func (s *FeedService) MyPosts(ctx context.Context, sess session.Session) ([]models.PostView, error) {
	if !sess.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	posts, err := s.posts.GetPostsByUserID(ctx, sess.ActorID)
	if err != nil {
		return nil, apperr.Unavailable("Could not load posts", err)
	}
	return s.enrich(ctx, sess, posts)
}

func (s *FeedService) engagedPosts(ctx context.Context, sess session.Session, kind models.Kind) ([]models.PostView, error) {
	if !sess.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	ids, err := s.engagements.ListTargetIDs(ctx, sess.ActorID, kind)
	if err != nil {
		return nil, apperr.Unavailable("Could not load engagements", err)
	}
	posts, err := s.posts.GetPostsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Unavailable("Could not load posts", err)
	}
	return s.enrich(ctx, sess, posts)
}

func (s *FeedService) CreatePost(ctx context.Context, sess session.Session, req models.CreatePostRequest) (models.PostView, error) {
	if !sess.Authenticated() {
		return models.PostView{}, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	post := &models.Post{UserID: sess.ActorID, Message: req.Message, PostImage: req.PostImage}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return models.PostView{}, apperr.Unavailable("Could not create post", err)
	}
	views, err := s.enrich(ctx, sess, []models.Post{*post})
	if err != nil {
		return models.PostView{}, err
	}
	return views[0], nil
}

// DeletePost removes the actor's own post together with its likes,
// bookmarks and comments
func (s *FeedService) DeletePost(ctx context.Context, sess session.Session, id string) error {
	if !sess.Authenticated() {
		return apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return postLookupError(err)
	}
	if post.UserID != sess.ActorID {
		return apperr.New(apperr.Forbidden, "You can only delete your own posts")
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return postLookupError(err)
	}

	if _, err := s.engagements.DeleteByTarget(ctx, id, models.KindLike, models.KindBookmark); err != nil {
		s.log.Error("post engagements not removed", zap.String("post", id), zap.Error(err))
	}
	if _, err := s.comments.DeleteByPostID(ctx, id); err != nil {
		s.log.Error("post comments not removed", zap.String("post", id), zap.Error(err))
	}
	return nil
}

func (s *FeedService) enrich(ctx context.Context, sess session.Session, posts []models.Post) ([]models.PostView, error) {
	views := make([]models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	postIDs := make([]string, len(posts))
	authorIDs := make([]string, 0, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID.Hex()
		authorIDs = append(authorIDs, p.UserID)
	}

	var (
		authors           map[string]models.User
		likes, bookmarks  map[string]int64
		commentCounts     map[string]int64
		liked, bookmarked map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		authors, err = s.users.GetUsersByIDs(gctx, dedupe(authorIDs))
		return
	})
	g.Go(func() (err error) {
		likes, err = s.engagements.CountMany(gctx, postIDs, models.KindLike)
		return
	})
	g.Go(func() (err error) {
		bookmarks, err = s.engagements.CountMany(gctx, postIDs, models.KindBookmark)
		return
	})
	g.Go(func() (err error) {
		commentCounts, err = s.comments.CountByPostIDs(gctx, postIDs)
		return
	})
	if sess.Authenticated() {
		g.Go(func() (err error) {
			liked, err = s.engagements.EngagedAmong(gctx, sess.ActorID, postIDs, models.KindLike)
			return
		})
		g.Go(func() (err error) {
			bookmarked, err = s.engagements.EngagedAmong(gctx, sess.ActorID, postIDs, models.KindBookmark)
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Unavailable("Could not load posts", err)
	}

	for i, p := range posts {
		id := postIDs[i]
		author := authors[p.UserID]
		views = append(views, models.PostView{
			Post: p,
			User: author.ToCompact(),
			Count: models.PostCounts{
				Comments:  commentCounts[id],
				Votes:     likes[id],
				Bookmarks: bookmarks[id],
			},
			HasLiked:       liked[id],
			HasBookmarked:  bookmarked[id],
			LikesCount:     likes[id],
			BookmarksCount: bookmarks[id],
		})
	}
	return views, nil
}

func postLookupError(err error) error {
	if errors.Is(err, repositories.ErrPostNotFound) {
		return apperr.New(apperr.TargetNotFound, "Post not found")
	}
	return apperr.Unavailable("Could not load post", err)
}
