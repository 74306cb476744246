package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is a registered account. Usernames are stored lowercase and never change.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:30;uniqueIndex;not null"`
	Email       string    `json:"email,omitempty" gorm:"size:255;uniqueIndex:idx_users_email,where:email <> ''"`
	Password    string    `json:"-"`                             // bcrypt hash
	FirebaseUID *string   `json:"-" gorm:"size:128;uniqueIndex"` // set once the account is linked to Firebase
	ProfilePic  string    `json:"profilePic"`
	Description string    `json:"description"`
	OpenProfile bool      `json:"openProfile" gorm:"default:true"` // others may post on this wall
	Verified    bool      `json:"verified" gorm:"default:false"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserCompact is the public projection embedded in other payloads.
type UserCompact struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic"`
}

// ToCompact returns the public projection of the user.
func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, ProfilePic: u.ProfilePic}
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SignInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type UpdateProfileRequest struct {
	Description *string `json:"description,omitempty" validate:"omitempty,max=500,safecontent"`
	ProfilePic  *string `json:"profilePic,omitempty" validate:"omitempty,url"`
	OpenProfile *bool   `json:"openProfile,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
