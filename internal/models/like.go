package models

import "time"

// Like is one row of the post <-> user like relation.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"postId" gorm:"size:24;index;uniqueIndex:idx_post_user_like"`
	UserID    uint      `json:"userId" gorm:"index;uniqueIndex:idx_post_user_like"`
	CreatedAt time.Time `json:"createdAt"`
}
