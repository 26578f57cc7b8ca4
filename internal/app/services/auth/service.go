// Package auth implements account registration, login, and token issuance.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hooptrack/backend/internal/app/domain/user"
	"github.com/hooptrack/backend/internal/app/storage"
	"github.com/hooptrack/backend/pkg/logger"
)

var (
	// ErrEmailTaken is returned when registering with an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service manages user accounts and signed access tokens.
type Service struct {
	users    storage.UserStore
	secret   []byte
	tokenTTL time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// New constructs an auth service. tokenTTL defaults to 7 days.
func New(users storage.UserStore, secret string, tokenTTL time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		log:      log,
		now:      time.Now,
	}
}

// Register creates an account with a bcrypt-hashed password and returns the
// user with a fresh token.
func (s *Service) Register(ctx context.Context, email, username, password string) (user.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, "", fmt.Errorf("a valid email is required")
	}
	if username == "" {
		return user.User{}, "", fmt.Errorf("username is required")
	}
	if len(password) < 6 {
		return user.User{}, "", fmt.Errorf("password must be at least 6 characters")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, "", ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, "", err
	}

	username, err = s.uniqueUsername(ctx, username)
	if err != nil {
		return user.User{}, "", err
	}

	u, err := s.users.CreateUser(ctx, user.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Tier:         user.TierFree,
		AuthProvider: "email",
	})
	if err != nil {
		return user.User{}, "", err
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return user.User{}, "", err
	}
	s.log.WithField("user_id", u.ID).Info("user registered")
	return u, token, nil
}

// Login verifies the password and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, "", ErrInvalidCredentials
		}
		return user.User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return user.User{}, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

// LoginWithGoogle finds or creates the account for a verified Google
// identity. Password login stays disabled for accounts created this way.
func (s *Service) LoginWithGoogle(ctx context.Context, email, name string) (user.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return user.User{}, "", fmt.Errorf("email is required")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		username := strings.TrimSpace(name)
		if username == "" {
			username = strings.SplitN(email, "@", 2)[0]
		}
		username, err = s.uniqueUsername(ctx, username)
		if err != nil {
			return user.User{}, "", err
		}
		u, err = s.users.CreateUser(ctx, user.User{
			Email:        email,
			Username:     username,
			Tier:         user.TierFree,
			AuthProvider: "google",
		})
		if err != nil {
			return user.User{}, "", err
		}
		s.log.WithField("user_id", u.ID).Info("google user registered")
	} else if err != nil {
		return user.User{}, "", err
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.users.GetUser(ctx, id)
}

// tokenClaims carries the user id in the subject plus the account email.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for the user.
func (s *Service) IssueToken(u user.User) (string, error) {
	now := s.now().UTC()
	claims := tokenClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// uniqueUsername appends a numeric suffix until the name is free.
func (s *Service) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		_, err := s.users.GetUserByUsername(ctx, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
		if i > 1000 {
			return "", fmt.Errorf("could not find a free username for %q", base)
		}
	}
}
