package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/lock"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/notify"
	"github.com/anonto42/threadline/backend/internal/repositories"
	"github.com/anonto42/threadline/backend/internal/session"
)

// ToggleObserver is satisfied by *metrics.Metrics
type ToggleObserver interface {
	ObserveToggle(kind, outcome string, started time.Time)
}

// EngagementService flips likes, bookmarks and follows and reports the
// recounted total for the target
type EngagementService struct {
	repo     repositories.EngagementRepository
	targets  Directories
	sink     notify.Sink
	locker   lock.Locker
	observer ToggleObserver
	log      *zap.Logger
}

type EngagementOption func(*EngagementService)

// WithLocker serializes toggles on the same (actor, target, kind) across instances
func WithLocker(l lock.Locker) EngagementOption {
	return func(s *EngagementService) { s.locker = l }
}

func WithObserver(o ToggleObserver) EngagementOption {
	return func(s *EngagementService) { s.observer = o }
}

func NewEngagementService(repo repositories.EngagementRepository, targets Directories, sink notify.Sink, log *zap.Logger, opts ...EngagementOption) *EngagementService {
	if sink == nil {
		sink = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &EngagementService{repo: repo, targets: targets, sink: sink, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Toggle creates the engagement if absent and removes it if present. A
// creation that loses a race to an identical concurrent one is reported as
// added without a second notification.
func (s *EngagementService) Toggle(ctx context.Context, sess session.Session, kind models.Kind, targetID string) (models.ToggleResult, error) {
	started := time.Now()
	res, outcome, err := s.toggle(ctx, sess, kind, targetID)
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	if s.observer != nil {
		s.observer.ObserveToggle(string(kind), outcome, started)
	}
	return res, err
}

func (s *EngagementService) toggle(ctx context.Context, sess session.Session, kind models.Kind, targetID string) (models.ToggleResult, string, error) {
	if !sess.Authenticated() {
		return models.ToggleResult{}, "", apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	dir, ok := s.targets[kind]
	if !ok {
		return models.ToggleResult{}, "", apperr.New(apperr.Invalid, "Unknown engagement kind")
	}
	if targetID == "" {
		return models.ToggleResult{}, "", apperr.New(apperr.TargetNotFound, notFoundMessage(kind))
	}
	if kind == models.KindFollow && targetID == sess.ActorID {
		return models.ToggleResult{}, "", apperr.New(apperr.InvalidSelfReference, "You cannot follow yourself")
	}

	var owner string
	out, err := s.lockedToggle(ctx, sess.ActorID, targetID, kind, func(ctx context.Context) error {
		o, err := dir.OwnerOf(ctx, targetID)
		if errors.Is(err, ErrTargetMissing) {
			return apperr.New(apperr.TargetNotFound, notFoundMessage(kind))
		}
		if err != nil {
			return err
		}
		owner = o
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.PersistenceUnavailable {
			s.log.Error("toggle failed",
				zap.String("kind", string(kind)),
				zap.String("actor", sess.ActorID),
				zap.String("target", targetID),
				zap.Error(err))
		}
		return models.ToggleResult{}, "", apperr.From(err, "Could not update engagement")
	}

	outcome := "removed"
	switch {
	case out.Conflict:
		outcome = "conflict"
		s.log.Debug("toggle raced with an identical request",
			zap.String("kind", string(kind)),
			zap.String("actor", sess.ActorID),
			zap.String("target", targetID))
	case out.Added:
		outcome = "added"
		if kind.Notifies() && owner != "" && owner != sess.ActorID {
			s.emit(ctx, notificationFor(kind, sess.ActorID, owner, targetID))
		}
	}

	return models.ToggleResult{Added: out.Added, Count: out.Count}, outcome, nil
}

// lockedToggle holds the per-key lock for the repository call only.
// Notifications go out after it is released.
func (s *EngagementService) lockedToggle(ctx context.Context, actorID, targetID string, kind models.Kind, beforeCreate func(context.Context) error) (repositories.ToggleOutcome, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, actorID+":"+targetID+":"+string(kind))
		if err != nil {
			return repositories.ToggleOutcome{}, apperr.Unavailable("Please try again", err)
		}
		defer release()
	}
	return s.repo.Toggle(ctx, actorID, targetID, kind, beforeCreate)
}

func (s *EngagementService) emit(ctx context.Context, n models.Notification) {
	if err := s.sink.Emit(ctx, n); err != nil {
		s.log.Warn("notification not delivered",
			zap.String("type", n.Type),
			zap.String("recipient", n.RecipientID),
			zap.Error(err))
	}
}

func notificationFor(kind models.Kind, actorID, ownerID, targetID string) models.Notification {
	n := models.Notification{
		RecipientID:   ownerID,
		TriggeredByID: actorID,
		CreatedAt:     time.Now(),
	}
	switch kind {
	case models.KindLike:
		n.Type = models.NotificationLike
		postID := targetID
		n.PostID = &postID
	case models.KindFollow:
		n.Type = models.NotificationFollow
	}
	return n
}

func notFoundMessage(kind models.Kind) string {
	if kind.TargetsPosts() {
		return "Post not found"
	}
	return "User not found"
}

// ListEngagedTargetIDs returns every target the actor currently has an
// engagement of the kind with, newest first
func (s *EngagementService) ListEngagedTargetIDs(ctx context.Context, sess session.Session, kind models.Kind) ([]string, error) {
	if !sess.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	ids, err := s.repo.ListTargetIDs(ctx, sess.ActorID, kind)
	if err != nil {
		return nil, apperr.Unavailable("Could not load engagements", err)
	}
	return ids, nil
}

func (s *EngagementService) CountFor(ctx context.Context, kind models.Kind, targetID string) (int64, error) {
	count, err := s.repo.Count(ctx, targetID, kind)
	if err != nil {
		return 0, apperr.Unavailable("Could not count engagements", err)
	}
	return count, nil
}

// BatchState reports engagement state and count for each target, used to
// seed a client's local belief. Without a session hasEngaged is always false.
func (s *EngagementService) BatchState(ctx context.Context, sess session.Session, kind models.Kind, targetIDs []string) (map[string]models.TargetState, error) {
	ids := dedupe(targetIDs)

	var (
		counts  map[string]int64
		engaged map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.repo.CountMany(gctx, ids, kind)
		return err
	})
	if sess.Authenticated() {
		g.Go(func() error {
			var err error
			engaged, err = s.repo.EngagedAmong(gctx, sess.ActorID, ids, kind)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Unavailable("Could not load engagement state", err)
	}

	state := make(map[string]models.TargetState, len(ids))
	for _, id := range ids {
		state[id] = models.TargetState{HasEngaged: engaged[id], Count: counts[id]}
	}
	return state, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
