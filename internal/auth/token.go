package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/congo-pay/credisave/internal/identity"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry, issuer
// or type checks.
var ErrInvalidToken = errors.New("invalid token")

// TokenType separates access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims are the JWT claims issued to a user. Version must match the user's
// current token version for the token to be honoured.
type Claims struct {
	Role    identity.Role `json:"role"`
	Version int           `json:"ver"`
	Type    TokenType     `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager creates a manager. Access and refresh tokens are signed with
// different secrets.
func NewTokenManager(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// Issue signs a fresh access and refresh token for user.
func (m *TokenManager) Issue(user identity.User) (TokenPair, error) {
	access, err := m.sign(user, TokenAccess, m.accessSecret, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(user, TokenRefresh, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(m.accessTTL.Seconds())}, nil
}

func (m *TokenManager) sign(user identity.User, typ TokenType, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		Role:    user.Role,
		Version: user.TokenVersion,
		Type:    typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// ParseAccess verifies an access token.
func (m *TokenManager) ParseAccess(token string) (Claims, error) {
	return m.parse(token, TokenAccess, m.accessSecret)
}

// ParseRefresh verifies a refresh token.
func (m *TokenManager) ParseRefresh(token string) (Claims, error) {
	return m.parse(token, TokenRefresh, m.refreshSecret)
}

func (m *TokenManager) parse(token string, typ TokenType, secret []byte) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != typ || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
