package models

import "time"

// Comment represents a comment on a post
type Comment struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID      string    `json:"post_id" gorm:"type:varchar(64);index"` // MongoDB ObjectID as hex
	UserID      string    `json:"user_id" gorm:"type:varchar(128);index"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// CommentView is a comment with its author resolved
type CommentView struct {
	Comment
	User UserCompact `json:"user"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Description string `json:"description" validate:"required,min=1,max=500"`
}
