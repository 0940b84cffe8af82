package models

import "time"

const (
	NotificationLike    = "LIKE"
	NotificationFollow  = "FOLLOW"
	NotificationComment = "COMMENT"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Type          string    `json:"type" gorm:"size:20;index"`
	RecipientID   string    `json:"recipient_id" gorm:"type:varchar(128);index"`
	TriggeredByID string    `json:"triggered_by_id" gorm:"type:varchar(128);index"`
	PostID        *string   `json:"post_id,omitempty" gorm:"type:varchar(64)"`
	CommentID     *string   `json:"comment_id,omitempty" gorm:"type:varchar(36)"`
	IsRead        bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}

// NotificationView is a notification with the people involved resolved
type NotificationView struct {
	Notification
	Recipient   UserCompact `json:"user"`
	TriggeredBy UserCompact `json:"triggeredBy"`
}
