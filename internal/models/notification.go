package models

import "time"

type NotificationType string

const (
	NotificationMentionPost    NotificationType = "mention_post"
	NotificationMentionComment NotificationType = "mention_comment"
	NotificationCommentOnPost  NotificationType = "comment_on_post"
	NotificationCommentReply   NotificationType = "comment_reply"
	NotificationPostLike       NotificationType = "post_like"
	NotificationCommentLike    NotificationType = "comment_like"
)

// Notification represents a user notification (PostgreSQL).
// DedupeKey is only set for like notifications and is unique, so at most one
// row exists per (type, recipient, sender, target).
type Notification struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	Type        NotificationType `json:"type" gorm:"size:30;index;not null"`
	Message     string           `json:"message" gorm:"type:text;not null"`
	IsRead      bool             `json:"isRead" gorm:"default:false;index"`
	RecipientID uint             `json:"recipientId" gorm:"not null;index:idx_notifications_recipient_created,priority:1"`
	SenderID    uint             `json:"senderId" gorm:"not null;index"`
	PostID      *string          `json:"postId,omitempty" gorm:"size:24;index"`
	CommentID   *uint            `json:"commentId,omitempty" gorm:"index"`
	DedupeKey   *string          `json:"-" gorm:"size:160;uniqueIndex"`
	CreatedAt   time.Time        `json:"createdAt" gorm:"index:idx_notifications_recipient_created,priority:2"`
}

// NotificationView is the wire shape returned to clients.
type NotificationView struct {
	ID             uint               `json:"id"`
	Type           NotificationType   `json:"type"`
	Message        string             `json:"message"`
	IsRead         bool               `json:"isRead"`
	CreatedAt      time.Time          `json:"createdAt"`
	Sender         UserCompact        `json:"sender"`
	PostID         *string            `json:"postId,omitempty"`
	CommentID      *uint              `json:"commentId,omitempty"`
	RelatedPost    *RelatedPostRef    `json:"relatedPost,omitempty"`
	RelatedComment *RelatedCommentRef `json:"relatedComment,omitempty"`
}

type RelatedPostRef struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type RelatedCommentRef struct {
	ID      uint   `json:"id"`
	Message string `json:"message"`
}
