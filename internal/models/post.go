package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a message stored in MongoDB. AuthorID wrote it, WallOwnerID is the
// profile it appears on; the two differ for posts left on someone else's wall.
type Post struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AuthorID      uint               `json:"authorId" bson:"author_id"`
	WallOwnerID   uint               `json:"wallOwnerId" bson:"wall_owner_id"`
	Message       string             `json:"message" bson:"message"`
	Likes         int                `json:"likes" bson:"likes_count"`
	CommentsCount int                `json:"commentsCount" bson:"comments_count"`
	Embed         *Embed             `json:"embed,omitempty" bson:"embed,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Embed types
const (
	EmbedTwitter = "twitter"
	EmbedYouTube = "youtube"
	EmbedImage   = "image"
	EmbedGeneric = "generic"
)

// Embed is the preview metadata derived from the first link in a post.
type Embed struct {
	Type string            `json:"type" bson:"type"`
	URL  string            `json:"url" bson:"url"`
	ID   string            `json:"id,omitempty" bson:"id,omitempty"`
	Data map[string]string `json:"data,omitempty" bson:"data,omitempty"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Message string `json:"message" validate:"required,notblank,max=2000,safecontent"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Message string `json:"message" validate:"required,notblank,max=2000,safecontent"`
}
