package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/models"
)

// DefaultTimeout bounds a toggle call before it is treated as failed
const DefaultTimeout = 10 * time.Second

// ErrIntentPending is returned when a toggle for the same target is still in flight
var ErrIntentPending = errors.New("a toggle for this target is already pending")

// Notifier surfaces a failed intent to the user without blocking
type Notifier interface {
	Notify(targetID string, err error)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(targetID string, err error)

func (f NotifierFunc) Notify(targetID string, err error) { f(targetID, err) }

// OptimisticStore holds the local belief about one kind of engagement for a
// rendered collection of targets. ApplyIntent flips the belief at once and
// settles it to either the server's answer or the pre-intent state.
type OptimisticStore struct {
	kind     models.Kind
	server   Toggler
	notifier Notifier
	timeout  time.Duration

	mu      sync.Mutex
	engaged map[string]bool
	counts  map[string]int64
	pending map[string]bool
}

type Option func(*OptimisticStore)

func WithTimeout(d time.Duration) Option { return func(s *OptimisticStore) { s.timeout = d } }

func WithNotifier(n Notifier) Option { return func(s *OptimisticStore) { s.notifier = n } }

func NewOptimisticStore(kind models.Kind, server Toggler, opts ...Option) *OptimisticStore {
	s := &OptimisticStore{
		kind:    kind,
		server:  server,
		timeout: DefaultTimeout,
		engaged: map[string]bool{},
		counts:  map[string]int64{},
		pending: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed replaces the belief for the given targets
func (s *OptimisticStore) Seed(state map[string]models.TargetState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range state {
		s.setLocked(id, st.HasEngaged, st.Count)
	}
}

// Load seeds the store from a batch read
func (s *OptimisticStore) Load(ctx context.Context, reader StateReader, targetIDs []string) error {
	state, err := reader.BatchState(ctx, s.kind, targetIDs)
	if err != nil {
		return err
	}
	s.Seed(state)
	return nil
}

func (s *OptimisticStore) IsEngaged(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engaged[targetID]
}

func (s *OptimisticStore) Count(targetID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[targetID]
}

// Pending reports whether a toggle for the target is in flight
func (s *OptimisticStore) Pending(targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[targetID]
}

// Snapshot copies the current belief
func (s *OptimisticStore) Snapshot() (engaged map[string]bool, counts map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	engaged = make(map[string]bool, len(s.engaged))
	for id := range s.engaged {
		engaged[id] = true
	}
	counts = make(map[string]int64, len(s.counts))
	for id, c := range s.counts {
		counts[id] = c
	}
	return engaged, counts
}

// ApplyIntent flips the belief for targetID, calls the server and settles.
// It blocks until settled; callers that must not block run it in a goroutine.
// A second intent for a target with one in flight is dropped with
// ErrIntentPending and leaves the belief untouched.
func (s *OptimisticStore) ApplyIntent(ctx context.Context, targetID string) (models.ToggleResult, error) {
	s.mu.Lock()
	if s.pending[targetID] {
		s.mu.Unlock()
		return models.ToggleResult{}, ErrIntentPending
	}
	s.pending[targetID] = true
	wasEngaged := s.engaged[targetID]
	previousCount, hadCount := s.counts[targetID]

	optimistic := previousCount + 1
	if wasEngaged {
		optimistic = previousCount - 1
	}
	if optimistic < 0 {
		optimistic = 0
	}
	s.setLocked(targetID, !wasEngaged, optimistic)
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	res, err := s.server.Toggle(callCtx, s.kind, targetID)
	cancel()

	s.mu.Lock()
	delete(s.pending, targetID)
	if err != nil {
		s.setLocked(targetID, wasEngaged, previousCount)
		if !hadCount {
			delete(s.counts, targetID)
		}
	} else {
		s.setLocked(targetID, res.Added, res.Count)
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperr.Unavailable("The server did not answer in time", err)
		}
		if s.notifier != nil {
			s.notifier.Notify(targetID, err)
		}
		return models.ToggleResult{}, err
	}
	return res, nil
}

func (s *OptimisticStore) setLocked(id string, engaged bool, count int64) {
	if engaged {
		s.engaged[id] = true
	} else {
		delete(s.engaged, id)
	}
	s.counts[id] = count
}
