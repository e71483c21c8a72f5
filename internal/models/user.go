package models

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Roles recognised by the JWT middleware.
const (
	RoleClient   = "client"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	FCMToken  *string   `json:"fcm_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	UserID       int
	Role         string
	RefreshToken string
	ExpiresAt    time.Time
}

type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type SignInRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type SignInResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}
