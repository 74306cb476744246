package models

import "time"

// CommentLike represents a like on a comment
type CommentLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CommentID uint      `json:"commentId" gorm:"index;uniqueIndex:idx_comment_user_like"`
	Comment   *Comment  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UserID    uint      `json:"userId" gorm:"index;uniqueIndex:idx_comment_user_like"`
	CreatedAt time.Time `json:"createdAt"`
}
