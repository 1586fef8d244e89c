package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"canteen/internal/auth"
	apperrors "canteen/internal/errors"
	"canteen/internal/model"
	"canteen/internal/repository"
)

// AuthService handles account registration and sessions.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*auth.Session, *model.User, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error)
	EnsureAdmin(ctx context.Context, username, email, password string) (created bool, err error)
}

type authService struct {
	users    repository.UserRepository
	sessions *auth.SessionManager
	revoked  auth.SessionStore
	logger   zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, sessions *auth.SessionManager, revoked auth.SessionStore, logger zerolog.Logger) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		revoked:  revoked,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates a non-admin user with a hashed password.
func (s *authService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", apperrors.ErrInvalidInput)
	}

	if err := s.ensureUnique(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can win the race past the lookups above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

func (s *authService) ensureUnique(ctx context.Context, username, email string) error {
	existing, err := s.users.FindByUsername(ctx, username)
	if err == nil && existing != nil {
		return apperrors.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check username: %w", err)
	}

	existing, err = s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return apperrors.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}

// Login verifies credentials and issues a session.
func (s *authService) Login(ctx context.Context, username, password string) (*auth.Session, *model.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Msg("user lookup failed during login")
		}
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	session, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user logged in")
	return session, user, nil
}

// Logout revokes the session carried by token. Unparseable tokens have nothing
// left to revoke.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.sessions.Parse(token)
	if err != nil {
		return nil
	}

	ttl := s.sessions.RemainingTTL(claims)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.logger.Info().Uint("user_id", claims.UserID).Msg("user logged out")
	return nil
}

// Authenticate resolves validated session claims to the current user.
func (s *authService) Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	if claims == nil {
		return nil, apperrors.ErrUnauthorized
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session revocation check failed")
	}
	if revoked {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator, or resets an existing
// account of that name to admin with the given email and password.
func (s *authService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}

	user, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		user.Email = email
		user.PasswordHash = hash
		user.IsAdmin = true
		if err := s.users.Update(ctx, user); err != nil {
			return false, fmt.Errorf("update admin: %w", err)
		}
		s.logger.Info().Str("username", username).Msg("admin user updated")
		return false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &model.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			IsAdmin:      true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return false, fmt.Errorf("create admin: %w", err)
		}
		s.logger.Info().Str("username", username).Msg("admin user created")
		return true, nil
	default:
		return false, fmt.Errorf("find admin: %w", err)
	}
}
