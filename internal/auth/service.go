package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/user"
	"github.com/golang-jwt/jwt/v5"
)

// Authenticator checks credentials. A nil user with a nil error means the
// credentials did not match.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*user.User, error)
}

type Service struct {
	users  Authenticator
	tokens TokenGenerator
	logger *slog.Logger
}

func NewService(users Authenticator, tokens TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// NewJWTTokenGenerator signs HS256 tokens with secret.
func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: ttl,
		now:            time.Now,
	}
}

// Login validates credentials and returns an access token.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.Authenticate(ctx, dto.Username, dto.Password)
	if err != nil {
		return AuthTokens{}, err
	}
	if u == nil {
		s.logger.Info("login rejected", "username", dto.Username)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(Identity{
		UserID:   u.ID,
		Username: u.Username,
		Roles:    u.Roles,
	})
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue token", err)
	}

	return AuthTokens{
		AccessToken:        token,
		ExpiresAt:          expiresAt,
		MustChangePassword: u.MustChangePassword,
	}, nil
}

// ValidateAccessToken returns the principal named by a valid token.
func (s *Service) ValidateAccessToken(tokenString string) (*internal.Principal, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &internal.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		Roles:    claims.Roles,
	}, nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(p Identity) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.AccessTokenTTL)

	claims := &Claims{
		UserID:   p.UserID,
		Username: p.Username,
		Roles:    p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   p.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(j.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}

// GenerateRandomToken generates a cryptographically secure random token
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
