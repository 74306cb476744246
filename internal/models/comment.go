package models

import "time"

// Comment represents a comment on a post. A nil ParentCommentID marks a
// top-level comment; otherwise it replies to another comment on the same post.
// Deleting a comment removes its replies through the self-referencing foreign key.
type Comment struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	PostID          string    `json:"postId" gorm:"size:24;index;not null"` // MongoDB ObjectID hex
	AuthorID        uint      `json:"authorId" gorm:"index;not null"`
	Message         string    `json:"message" gorm:"type:text;not null"`
	ParentCommentID *uint     `json:"parentCommentId" gorm:"index"`
	Parent          *Comment  `json:"-" gorm:"foreignKey:ParentCommentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Likes           int       `json:"likes" gorm:"default:0"`
	CreatedAt       time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CreateCommentRequest defines the request body for creating a new comment.
// Omitting parentCommentId (or sending null) creates a top-level comment.
type CreateCommentRequest struct {
	Message         string `json:"message" validate:"required,notblank,max=1000,safecontent"`
	PostID          string `json:"postId" validate:"required,len=24,hexadecimal"`
	ParentCommentID *uint  `json:"parentCommentId" validate:"omitempty,min=1"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Message string `json:"message" validate:"required,notblank,max=1000,safecontent"`
}
