package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/repositories"
)

type engagementKey struct {
	actor, target string
	kind          models.Kind
}

// memEngagements keeps engagement rows in memory with the same toggle
// contract as the GORM repository
type memEngagements struct {
	mu   sync.Mutex
	rows map[engagementKey]time.Time
	seq  int

	// conflictNext makes the next insert behave as if an identical row
	// had been committed by another request first
	conflictNext bool
	err          error
}

func newMemEngagements() *memEngagements {
	return &memEngagements{rows: map[engagementKey]time.Time{}}
}

func (m *memEngagements) Toggle(ctx context.Context, actorID, targetID string, kind models.Kind, beforeCreate func(ctx context.Context) error) (repositories.ToggleOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return repositories.ToggleOutcome{}, m.err
	}
	key := engagementKey{actorID, targetID, kind}
	var out repositories.ToggleOutcome
	if _, ok := m.rows[key]; ok {
		delete(m.rows, key)
	} else {
		if beforeCreate != nil {
			if err := beforeCreate(ctx); err != nil {
				return repositories.ToggleOutcome{}, err
			}
		}
		out.Added = true
		out.Conflict = m.conflictNext
		m.conflictNext = false
		m.seq++
		m.rows[key] = time.Unix(int64(m.seq), 0)
	}
	out.Count = m.countLocked(targetID, kind)
	return out, nil
}

func (m *memEngagements) countLocked(targetID string, kind models.Kind) int64 {
	var n int64
	for k := range m.rows {
		if k.target == targetID && k.kind == kind {
			n++
		}
	}
	return n
}

func (m *memEngagements) Exists(_ context.Context, actorID, targetID string, kind models.Kind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[engagementKey{actorID, targetID, kind}]
	return ok, m.err
}

func (m *memEngagements) Count(_ context.Context, targetID string, kind models.Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(targetID, kind), m.err
}

func (m *memEngagements) CountMany(_ context.Context, targetIDs []string, kind models.Kind) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]int64{}
	for _, id := range targetIDs {
		out[id] = m.countLocked(id, kind)
	}
	return out, nil
}

func (m *memEngagements) CountByActor(_ context.Context, actorID string, kind models.Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.rows {
		if k.actor == actorID && k.kind == kind {
			n++
		}
	}
	return n, m.err
}

func (m *memEngagements) CountManyByActor(ctx context.Context, actorIDs []string, kind models.Kind) (map[string]int64, error) {
	out := map[string]int64{}
	for _, id := range actorIDs {
		n, err := m.CountByActor(ctx, id, kind)
		if err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, nil
}

func (m *memEngagements) ListTargetIDs(_ context.Context, actorID string, kind models.Kind) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type row struct {
		id string
		at time.Time
	}
	var rows []row
	for k, at := range m.rows {
		if k.actor == actorID && k.kind == kind {
			rows = append(rows, row{k.target, at})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].at.After(rows[j].at) })
	ids := []string{}
	for _, r := range rows {
		ids = append(ids, r.id)
	}
	return ids, m.err
}

func (m *memEngagements) EngagedAmong(_ context.Context, actorID string, targetIDs []string, kind models.Kind) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]bool{}
	for _, id := range targetIDs {
		if _, ok := m.rows[engagementKey{actorID, id, kind}]; ok {
			out[id] = true
		}
	}
	return out, m.err
}

func (m *memEngagements) DeleteByTarget(_ context.Context, targetID string, kinds ...models.Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.rows {
		if k.target != targetID {
			continue
		}
		match := len(kinds) == 0
		for _, kind := range kinds {
			match = match || k.kind == kind
		}
		if match {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

type fakePosts struct {
	posts map[string]models.Post
	order []string
}

func newFakePosts() *fakePosts { return &fakePosts{posts: map[string]models.Post{}} }

func (f *fakePosts) add(owner, message string) string {
	p := models.Post{ID: primitive.NewObjectID(), UserID: owner, Message: message, CreatedAt: time.Now()}
	id := p.ID.Hex()
	f.posts[id] = p
	f.order = append([]string{id}, f.order...)
	return id
}

func (f *fakePosts) CreatePost(_ context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	f.posts[post.ID.Hex()] = *post
	f.order = append([]string{post.ID.Hex()}, f.order...)
	return nil
}

func (f *fakePosts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	return &p, nil
}

func (f *fakePosts) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	out := []models.Post{}
	for _, id := range ids {
		if p, ok := f.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) GetPostsByUserID(_ context.Context, userID string) ([]models.Post, error) {
	out := []models.Post{}
	for _, id := range f.order {
		if p, ok := f.posts[id]; ok && p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) GetAllPosts(context.Context) ([]models.Post, error) {
	out := []models.Post{}
	for _, id := range f.order {
		if p, ok := f.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) CountByUserIDs(_ context.Context, userIDs []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, p := range f.posts {
		for _, u := range userIDs {
			if p.UserID == u {
				out[u]++
			}
		}
	}
	return out, nil
}

func (f *fakePosts) DeletePost(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return repositories.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}

type fakeUsers struct {
	users map[string]models.User
}

func newFakeUsers(ids ...string) *fakeUsers {
	f := &fakeUsers{users: map[string]models.User{}}
	for _, id := range ids {
		f.users[id] = models.User{ID: id, Name: "name-" + id, Email: id + "@example.com"}
	}
	return f
}

func (f *fakeUsers) UpsertUser(_ context.Context, user *models.User) error {
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetUsersByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	out := map[string]models.User{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeUsers) ListUsersExcept(_ context.Context, id string) ([]models.User, error) {
	out := []models.User{}
	for uid, u := range f.users {
		if uid != id {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) UpdateUser(_ context.Context, user *models.User) error {
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

type fakeComments struct {
	comments []models.Comment
}

func (f *fakeComments) CreateComment(_ context.Context, c *models.Comment) error {
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeComments) GetCommentByID(_ context.Context, id string) (*models.Comment, error) {
	for _, c := range f.comments {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, repositories.ErrCommentNotFound
}

func (f *fakeComments) GetCommentsByPostID(_ context.Context, postID string) ([]models.Comment, error) {
	out := []models.Comment{}
	for i := len(f.comments) - 1; i >= 0; i-- {
		if f.comments[i].PostID == postID {
			out = append(out, f.comments[i])
		}
	}
	return out, nil
}

func (f *fakeComments) CountByPostIDs(_ context.Context, postIDs []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, c := range f.comments {
		for _, id := range postIDs {
			if c.PostID == id {
				out[id]++
			}
		}
	}
	return out, nil
}

func (f *fakeComments) DeleteComment(_ context.Context, id string) error {
	kept := f.comments[:0]
	for _, c := range f.comments {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	f.comments = kept
	return nil
}

func (f *fakeComments) DeleteByPostID(_ context.Context, postID string) (int64, error) {
	var n int64
	kept := f.comments[:0]
	for _, c := range f.comments {
		if c.PostID == postID {
			n++
			continue
		}
		kept = append(kept, c)
	}
	f.comments = kept
	return n, nil
}

type fakeNotifications struct {
	items []models.Notification
	err   error
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	n.ID = uint(len(f.items) + 1)
	f.items = append(f.items, *n)
	return f.err
}

func (f *fakeNotifications) ListForUser(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	out := []models.Notification{}
	for i := len(f.items) - 1; i >= 0; i-- {
		n := f.items[i]
		if n.RecipientID == userID || n.TriggeredByID == userID {
			out = append(out, n)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, f.err
}

func (f *fakeNotifications) GetUnreadCount(_ context.Context, recipientID string) (int64, error) {
	var n int64
	for _, item := range f.items {
		if item.RecipientID == recipientID && !item.IsRead {
			n++
		}
	}
	return n, f.err
}

func (f *fakeNotifications) MarkAllAsRead(_ context.Context, recipientID string) (int64, error) {
	var n int64
	for i := range f.items {
		if f.items[i].RecipientID == recipientID && !f.items[i].IsRead {
			f.items[i].IsRead = true
			n++
		}
	}
	return n, f.err
}

type recordingSink struct {
	got    []models.Notification
	err    error
	onEmit func()
}

func (r *recordingSink) Emit(_ context.Context, n models.Notification) error {
	if r.onEmit != nil {
		r.onEmit()
	}
	r.got = append(r.got, n)
	return r.err
}

type fakeLocker struct {
	acquired []string
	released int
	err      error
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, key)
	return func() { l.released++ }, nil
}

type observed struct{ kind, outcome string }

type fakeObserver struct{ seen []observed }

func (o *fakeObserver) ObserveToggle(kind, outcome string, _ time.Time) {
	o.seen = append(o.seen, observed{kind, outcome})
}

var errStoreDown = errors.New("connection refused")
