package services

import (
	"context"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/repositories"
	"github.com/anonto42/threadline/backend/internal/session"
)

const notificationPageSize = 50

type NotificationService struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
}

func NewNotificationService(notifications repositories.NotificationRepository, users repositories.UserRepository) *NotificationService {
	return &NotificationService{notifications: notifications, users: users}
}

// List returns the notifications the actor received or triggered, newest first
func (s *NotificationService) List(ctx context.Context, sess session.Session) ([]models.NotificationView, error) {
	if !sess.Authenticated() {
		return nil, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	items, err := s.notifications.ListForUser(ctx, sess.ActorID, notificationPageSize)
	if err != nil {
		return nil, apperr.Unavailable("Could not load notifications", err)
	}

	ids := make([]string, 0, 2*len(items))
	for _, n := range items {
		ids = append(ids, n.RecipientID, n.TriggeredByID)
	}
	people, err := s.users.GetUsersByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, apperr.Unavailable("Could not load notifications", err)
	}

	views := make([]models.NotificationView, 0, len(items))
	for _, n := range items {
		recipient := people[n.RecipientID]
		trigger := people[n.TriggeredByID]
		views = append(views, models.NotificationView{
			Notification: n,
			Recipient:    recipient.ToCompact(),
			TriggeredBy:  trigger.ToCompact(),
		})
	}
	return views, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, sess session.Session) (int64, error) {
	if !sess.Authenticated() {
		return 0, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	count, err := s.notifications.GetUnreadCount(ctx, sess.ActorID)
	if err != nil {
		return 0, apperr.Unavailable("Could not count notifications", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, sess session.Session) (int64, error) {
	if !sess.Authenticated() {
		return 0, apperr.New(apperr.Unauthenticated, "Unauthorized")
	}
	n, err := s.notifications.MarkAllAsRead(ctx, sess.ActorID)
	if err != nil {
		return 0, apperr.Unavailable("Could not update notifications", err)
	}
	return n, nil
}
