package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is keyed by the subject issued by the auth provider
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(128)"`
	Name        string    `json:"name"`
	Username    string    `json:"username" gorm:"index"`
	Email       string    `json:"email" gorm:"uniqueIndex"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Website     string    `json:"website"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserCompact is the author/actor projection embedded in lists
type UserCompact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Image    string `json:"image"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Image:    u.Image,
	}
}

// Profile is the signed-in user's own profile with follow counts
type Profile struct {
	User
	FollowersCount int64 `json:"followersCount"`
	FollowingCount int64 `json:"followingCount"`
}

// UserWithFollowStatus is an entry of the people directory
type UserWithFollowStatus struct {
	UserCompact
	Description    string `json:"description"`
	IsFollowing    bool   `json:"isFollowing"`
	FollowersCount int64  `json:"followersCount"`
	FollowingCount int64  `json:"followingCount"`
	PostsCount     int64  `json:"postsCount"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=160"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=60"`
	Website     *string `json:"website,omitempty" validate:"omitempty,url"`
	Image       *string `json:"image,omitempty" validate:"omitempty,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
