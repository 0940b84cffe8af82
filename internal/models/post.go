package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a social media post stored in MongoDB. Like and bookmark
// counts are not stored here; they are recounted from engagements.
type Post struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"user_id" bson:"user_id"`
	Message   string             `json:"message" bson:"message"`
	PostImage string             `json:"postImage,omitempty" bson:"post_image,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// PostCounts carries the recounted aggregates for a post
type PostCounts struct {
	Comments  int64 `json:"comments"`
	Votes     int64 `json:"votes"`
	Bookmarks int64 `json:"bookmarks"`
}

// PostView is a post enriched for the current actor
type PostView struct {
	Post
	User           UserCompact `json:"user"`
	Count          PostCounts  `json:"_count"`
	HasLiked       bool        `json:"hasLiked"`
	HasBookmarked  bool        `json:"hasBookmarked"`
	LikesCount     int64       `json:"likesCount"`
	BookmarksCount int64       `json:"bookmarksCount"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Message   string `json:"message" validate:"required,min=1,max=280"`
	PostImage string `json:"postImage,omitempty" validate:"omitempty,url"`
}
