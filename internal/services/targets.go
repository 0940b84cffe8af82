package services

import (
	"context"
	"errors"

	"github.com/anonto42/threadline/backend/internal/models"
	"github.com/anonto42/threadline/backend/internal/repositories"
)

// ErrTargetMissing is returned by a TargetDirectory for unknown IDs
var ErrTargetMissing = errors.New("target does not exist")

// TargetDirectory answers whether a target exists and who owns it
type TargetDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	OwnerOf(ctx context.Context, id string) (string, error)
}

// PostDirectory resolves like and bookmark targets
type PostDirectory struct {
	posts repositories.PostRepository
}

func NewPostDirectory(posts repositories.PostRepository) *PostDirectory {
	return &PostDirectory{posts: posts}
}

func (d *PostDirectory) Exists(ctx context.Context, id string) (bool, error) {
	_, err := d.OwnerOf(ctx, id)
	if errors.Is(err, ErrTargetMissing) {
		return false, nil
	}
	return err == nil, err
}

func (d *PostDirectory) OwnerOf(ctx context.Context, id string) (string, error) {
	post, err := d.posts.GetPostByID(ctx, id)
	if errors.Is(err, repositories.ErrPostNotFound) {
		return "", ErrTargetMissing
	}
	if err != nil {
		return "", err
	}
	return post.UserID, nil
}

// ActorDirectory resolves follow targets; an actor owns itself
type ActorDirectory struct {
	users repositories.UserRepository
}

func NewActorDirectory(users repositories.UserRepository) *ActorDirectory {
	return &ActorDirectory{users: users}
}

func (d *ActorDirectory) Exists(ctx context.Context, id string) (bool, error) {
	return d.users.Exists(ctx, id)
}

func (d *ActorDirectory) OwnerOf(ctx context.Context, id string) (string, error) {
	ok, err := d.users.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrTargetMissing
	}
	return id, nil
}

// Directories maps each kind to the directory of its targets
type Directories map[models.Kind]TargetDirectory

func NewDirectories(posts repositories.PostRepository, users repositories.UserRepository) Directories {
	postDir := NewPostDirectory(posts)
	return Directories{
		models.KindLike:     postDir,
		models.KindBookmark: postDir,
		models.KindFollow:   NewActorDirectory(users),
	}
}
