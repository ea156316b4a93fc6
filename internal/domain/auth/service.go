package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLoginUnavailable   = errors.New("login requires a user store")
)

const DefaultTokenTTL = 8 * time.Hour

type Service struct {
	Store    StoreAPI
	Secret   string
	TokenTTL time.Duration
	Logger   *zap.Logger
}

func NewService(store StoreAPI, secret string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Store: store, Secret: secret, TokenTTL: DefaultTokenTTL, Logger: logger}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if s.Store == nil {
		return LoginResult{}, ErrLoginUnavailable
	}
	user, err := s.Store.FindActiveUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	expires := time.Now().Add(s.TokenTTL)
	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Email: user.Email, Role: user.Role}, s.TokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.Logger.Warn("last login update failed", zap.String("userId", user.ID), zap.Error(err))
	}
	return LoginResult{Token: token, ExpiresAt: expires, UserID: user.ID, Role: user.Role}, nil
}
