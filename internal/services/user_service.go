package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"qyzmetBack/internal/models"
)

// TokenManager issues the access/refresh token pair. utils.Manager satisfies
// it.
type TokenManager interface {
	NewJWT(userID int, role string, ttl time.Duration) (string, error)
	NewRefreshToken() (string, error)
}

// UserService covers the thin slice of identity this system needs: signing in
// and refreshing tokens. Registration and profile management live elsewhere.
type UserService struct {
	Users  UserStore
	Tokens TokenManager

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (s *UserService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return 15 * time.Minute
}

func (s *UserService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return 30 * 24 * time.Hour
}

func (s *UserService) SignIn(ctx context.Context, req models.SignInRequest) (models.SignInResponse, error) {
	user, err := s.Users.GetByPhone(ctx, req.Phone)
	if err != nil {
		if err == models.ErrUserNotFound {
			return models.SignInResponse{}, models.ErrInvalidCredentials
		}
		return models.SignInResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return models.SignInResponse{}, models.ErrInvalidCredentials
	}
	return s.issueTokens(ctx, user)
}

// Refresh trades a valid refresh token for a fresh pair. The stored session is
// rotated so a leaked refresh token stops working after its first use.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (models.SignInResponse, error) {
	session, err := s.Users.GetSessionByToken(ctx, refreshToken)
	if err != nil {
		return models.SignInResponse{}, err
	}
	if session.UserID == 0 || time.Now().After(session.ExpiresAt) {
		return models.SignInResponse{}, models.ErrInvalidCredentials
	}
	user, err := s.Users.GetByID(ctx, session.UserID)
	if err != nil {
		return models.SignInResponse{}, err
	}
	return s.issueTokens(ctx, user)
}

func (s *UserService) issueTokens(ctx context.Context, user models.User) (models.SignInResponse, error) {
	access, err := s.Tokens.NewJWT(user.ID, user.Role, s.accessTTL())
	if err != nil {
		return models.SignInResponse{}, err
	}
	refresh, err := s.Tokens.NewRefreshToken()
	if err != nil {
		refresh = uuid.New().String()
	}
	if err := s.Users.SaveSession(ctx, models.Session{
		UserID:       user.ID,
		Role:         user.Role,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.refreshTTL()),
	}); err != nil {
		return models.SignInResponse{}, err
	}
	user.Password = ""
	return models.SignInResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}
