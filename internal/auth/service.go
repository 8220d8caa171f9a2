// Package auth issues and revokes session tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/congo-pay/credisave/internal/identity"
)

// ErrTokenRevoked is returned for tokens whose version no longer matches the user.
var ErrTokenRevoked = errors.New("token has been revoked")

// Service handles login, refresh and logout.
type Service struct {
	tokens *TokenManager
	users  *identity.Service
	repo   identity.Repository
	logger *slog.Logger
}

// NewService wires the token manager to the identity store.
func NewService(tokens *TokenManager, users *identity.Service, repo identity.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tokens: tokens, users: users, repo: repo, logger: logger}
}

// Session is the result of a successful login.
type Session struct {
	User identity.User `json:"user"`
	TokenPair
}

// Login validates credentials and issues tokens.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (Session, error) {
	user, err := s.users.Authenticate(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("login", slog.String("user_id", user.ID))
	return Session{User: user, TokenPair: pair}, nil
}

// Refresh verifies the refresh token and returns a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := s.Verify(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	return s.tokens.Issue(user)
}

// Verify loads the token subject and checks it is active and its token
// version is current.
func (s *Service) Verify(ctx context.Context, claims Claims) (identity.User, error) {
	user, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.User{}, ErrInvalidToken
		}
		return identity.User{}, err
	}
	if user.TokenVersion != claims.Version || user.Status != identity.StatusActive {
		return identity.User{}, ErrTokenRevoked
	}
	return user, nil
}

// Authorize verifies an access token end to end.
func (s *Service) Authorize(ctx context.Context, accessToken string) (identity.User, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return identity.User{}, err
	}
	return s.Verify(ctx, claims)
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1); err != nil {
		return err
	}
	s.logger.Info("logout", slog.String("user_id", user.ID))
	return nil
}
