package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/imspidey6989/MediBridge/pkg/config"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

// Claims are the session claims embedded in issued tokens
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HMAC-signed session tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenManager creates a token manager from JWT configuration
func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.SecretKey),
		ttl:    time.Duration(cfg.TokenTTL) * time.Second,
		issuer: cfg.Issuer,
	}
}

// TTL returns the configured token lifetime
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a session token for the given user
func (m *TokenManager) Issue(user *types.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "Failed to sign session token", err)
	}
	return signed, nil
}

// Parse validates a session token and returns its claims. Expired tokens are
// distinguished from malformed or tampered ones.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.NewAuthenticationError(types.ErrCodeTokenExpired, "Session token has expired")
		}
		return nil, types.NewAuthenticationError(types.ErrCodeInvalidToken, "Invalid session token")
	}
	if !token.Valid {
		return nil, types.NewAuthenticationError(types.ErrCodeInvalidToken, "Invalid session token")
	}
	return claims, nil
}
