package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/repositories"
	"github.com/anonto42/threadline/backend/internal/session"
)

type ProfileService struct {
	users       repositories.UserRepository
	posts       repositories.PostRepository
	engagements repositories.EngagementRepository
	log         *zap.Logger
}

func NewProfileService(users repositories.UserRepository, posts repositories.PostRepository, engagements repositories.EngagementRepository, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{users: users, posts: posts, engagements: engagements, log: log}
}

// SyncUser records a verified identity on sign-in. Existing users keep the
// profile they edited; only a changed email is refreshed.
func (s *ProfileService) SyncUser(ctx context.Context, id session.Identity) (*models.User, error) {
	existing, err := s.users.GetUserByID(ctx, id.UID)
	switch {
	case err == nil:
		if id.Email == "" || id.Email == existing.Email {
			return existing, nil
		}
		existing.Email = id.Email
		if err := s.users.UpdateUser(ctx, existing); err != nil {
			return nil, apperr.Unavailable("Could not update user", err)
		}
		return existing, nil
	case !errors.Is(err, repositories.ErrUserNotFound):
		return nil, apperr.Unavailable("Could not load user", err)
	}

	user := &models.User{
		ID:       id.UID,
		Name:     id.Name,
		Username: usernameFromEmail(id.Email),
		Email:    id.Email,
		Image:    id.Picture,
	}
	if err := s.users.UpsertUser(ctx, user); err != nil {
		return nil, apperr.Unavailable("Could not create user", err)
	}
	s.log.Info("user registered", zap.String("user", user.ID))
	return user, nil
}

func usernameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return ""
}

// Me returns the actor's profile with follower and following counts
func (s *ProfileService) Me(ctx context.Context, sess session.Session) (models.Profile, error) {
	if !sess.Authenticated() {
		return models.Profile{}, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	user, err := s.users.GetUserByID(ctx, sess.ActorID)
	if err != nil {
		return models.Profile{}, userLookupError(err)
	}
	return s.profileOf(ctx, user)
}

func (s *ProfileService) profileOf(ctx context.Context, user *models.User) (models.Profile, error) {
	followers, err := s.engagements.Count(ctx, user.ID, models.KindFollow)
	if err != nil {
		return models.Profile{}, apperr.Unavailable("Could not load profile", err)
	}
	following, err := s.engagements.CountByActor(ctx, user.ID, models.KindFollow)
	if err != nil {
		return models.Profile{}, apperr.Unavailable("Could not load profile", err)
	}
	return models.Profile{User: *user, FollowersCount: followers, FollowingCount: following}, nil
}

func (s *ProfileService) UpdateMe(ctx context.Context, sess session.Session, req models.UpdateProfileRequest) (models.Profile, error) {
	if !sess.Authenticated() {
		return models.Profile{}, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	user, err := s.users.GetUserByID(ctx, sess.ActorID)
	if err != nil {
		return models.Profile{}, userLookupError(err)
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Description != nil {
		user.Description = *req.Description
	}
	if req.Location != nil {
		user.Location = *req.Location
	}
	if req.Website != nil {
		user.Website = *req.Website
	}
	if req.Image != nil {
		user.Image = *req.Image
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return models.Profile{}, apperr.Unavailable("Could not update profile", err)
	}
	return s.profileOf(ctx, user)
}

// ListUsers returns everyone except the actor, with whether the actor follows them
func (s *ProfileService) ListUsers(ctx context.Context, sess session.Session) ([]models.UserWithFollowStatus, error) {
	if !sess.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	users, err := s.users.ListUsersExcept(ctx, sess.ActorID)
	if err != nil {
		return nil, apperr.Unavailable("Could not load users", err)
	}
	result := make([]models.UserWithFollowStatus, 0, len(users))
	if len(users) == 0 {
		return result, nil
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	var (
		followers, following, posts map[string]int64
		isFollowing                 map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		followers, err = s.engagements.CountMany(gctx, ids, models.KindFollow)
		return
	})
	g.Go(func() (err error) {
		following, err = s.engagements.CountManyByActor(gctx, ids, models.KindFollow)
		return
	})
	g.Go(func() (err error) {
		isFollowing, err = s.engagements.EngagedAmong(gctx, sess.ActorID, ids, models.KindFollow)
		return
	})
	g.Go(func() (err error) {
		posts, err = s.posts.CountByUserIDs(gctx, ids)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Unavailable("Could not load users", err)
	}

	for i := range users {
		u := &users[i]
		result = append(result, models.UserWithFollowStatus{
			UserCompact:    u.ToCompact(),
			Description:    u.Description,
			IsFollowing:    isFollowing[u.ID],
			FollowersCount: followers[u.ID],
			FollowingCount: following[u.ID],
			PostsCount:     posts[u.ID],
		})
	}
	return result, nil
}

func userLookupError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperr.New(apperr.TargetNotFound, "User not found")
	}
	return apperr.Unavailable("Could not load user", err)
}
