// Package notify delivers notifications produced by engagements and comments.
// Delivery is best effort: callers log failures and carry on.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/repositories"
)

// Sink receives notifications
type Sink interface {
	Emit(ctx context.Context, n models.Notification) error
}

// FailureCounter is satisfied by *metrics.Metrics
type FailureCounter interface {
	NotifyFailed(sink string)
}

// StoreSink persists notifications so they show up in the recipient's list
type StoreSink struct {
	repo repositories.NotificationRepository
}

func NewStoreSink(repo repositories.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Emit(ctx context.Context, n models.Notification) error {
	return s.repo.CreateNotification(ctx, &n)
}

type namedSink struct {
	name string
	sink Sink
}

// FanOut emits to every registered sink; one failing sink does not stop the others
type FanOut struct {
	sinks    []namedSink
	log      *zap.Logger
	failures FailureCounter
}

func NewFanOut(log *zap.Logger, failures FailureCounter) *FanOut {
	if log == nil {
		log = zap.NewNop()
	}
	return &FanOut{log: log, failures: failures}
}

// Add registers a sink under a name used in logs and metrics
func (f *FanOut) Add(name string, sink Sink) *FanOut {
	f.sinks = append(f.sinks, namedSink{name: name, sink: sink})
	return f
}

func (f *FanOut) Emit(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.sink.Emit(ctx, n); err != nil {
			f.log.Warn("notification sink failed",
				zap.String("sink", s.name),
				zap.String("type", n.Type),
				zap.String("recipient", n.RecipientID),
				zap.Error(err))
			if f.failures != nil {
				f.failures.NotifyFailed(s.name)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every notification
type Discard struct{}

func (Discard) Emit(context.Context, models.Notification) error { return nil }
