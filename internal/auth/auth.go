// Package auth implements credential verification and stateless JWT
// session tokens for the query API.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"bankgen/internal/domain"
	"bankgen/internal/repository"
	"bankgen/internal/util"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service verifies credentials against stored bcrypt hashes and issues
// HS256-signed tokens.
type Service struct {
	repo   repository.Repository
	secret []byte
	ttl    time.Duration
	log    *slog.Logger
}

// NewService builds an auth service. A zero ttl falls back to
// DefaultTokenTTL; a negative ttl is kept as-is and yields already-expired
// tokens.
func NewService(repo repository.Repository, secret string, ttl time.Duration, log *slog.Logger) *Service {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, secret: []byte(secret), ttl: ttl, log: log}
}

// Login checks the username and password and returns a signed token on
// success. Unknown users and bad passwords both map to ErrUnauthorized so
// the response does not reveal which part failed.
func (s *Service) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.repo.UserByUsername(ctx, username)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) || util.IsError(err, util.ErrUserNotFound) {
			return "", nil, util.ErrUnauthorized
		}
		return "", nil, fmt.Errorf("auth: look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt", "username", username)
		return "", nil, util.ErrUnauthorized
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GenerateToken issues an HS256 token for the given user.
func (s *Service) GenerateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.UserID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a signed token string and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: %w: %v", util.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, util.ErrUnauthorized
	}
	return claims, nil
}
