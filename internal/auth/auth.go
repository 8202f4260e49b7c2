package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenGenerator issues and verifies access tokens.
type TokenGenerator interface {
	GenerateAccessToken(p Identity) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Identity is what an access token asserts about its bearer.
type Identity struct {
	UserID   string
	Username string
	Roles    []string
}

type AuthTokens struct {
	AccessToken        string    `json:"access_token"`
	ExpiresAt          time.Time `json:"expires_at"`
	MustChangePassword bool      `json:"must_change_password"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	now            func() time.Time
}
