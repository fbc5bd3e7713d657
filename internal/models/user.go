package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type User struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	FullName      string         `json:"full_name"`
	Email         string         `json:"email" gorm:"uniqueIndex"` // Stored lower-cased
	Password      string         `json:"-"`                        // Store hashed password, ignore for JSON serialization
	Timezone      string         `json:"timezone"`
	Department    string         `json:"department"`
	University    string         `json:"university" gorm:"index"` // Email domain the account signed up with
	NotifyEmail   bool           `json:"notify_email"`
	CalendarToken *string        `json:"-" gorm:"uniqueIndex"`
	FirebaseUID   *string        `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // Link to Firebase User UID
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// UserCompact is the public subset of a user embedded in other payloads
type UserCompact struct {
	ID         uint   `json:"id"`
	FullName   string `json:"full_name"`
	Department string `json:"department,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, FullName: u.FullName, Department: u.Department}
}

type SignupRequest struct {
	FullName   string `json:"full_name" validate:"required,min=2,max=80"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Timezone   string `json:"timezone,omitempty" validate:"omitempty,max=64"`
	Department string `json:"department,omitempty" validate:"omitempty,max=120"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName    string `json:"full_name,omitempty" validate:"omitempty,min=2,max=80"`
	Timezone    string `json:"timezone,omitempty" validate:"omitempty,max=64"`
	Department  string `json:"department,omitempty" validate:"omitempty,max=120"`
	NotifyEmail *bool  `json:"notify_email,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
