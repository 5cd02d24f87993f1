package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model  `json:"-"`
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name"`
	Handler     string `json:"handler" gorm:"uniqueIndex;size:50"` // public handle, unique across all users
	Email       string `json:"email" gorm:"uniqueIndex"`
	Password    string `json:"-"` // bcrypt hash, never serialized
	FirebaseUID string `json:"firebase_uid,omitempty" gorm:"index"`
}

// UserCompact is the embeddable representation used when a user appears
// inside another payload (notifications, comments, thread members).
type UserCompact struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Handler string `json:"handler"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Name: u.Name, Handler: u.Handler}
}

type CreateUserRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Handler     string `json:"handler" validate:"required,min=3,max=50,alphanum"`
	Email       string `json:"email" validate:"required,email"`
	FirebaseUID string `json:"firebase_uid" validate:"required"`
}

type CreateLocalUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Handler  string `json:"handler" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
