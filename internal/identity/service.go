// Package identity manages customer and administrator accounts.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/credisave/internal/ledger"
)

const (
	minPasswordLength = 8
	defaultPageSize   = 10
)

var (
	// ErrInvalidInput rejects malformed registration or profile data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactive is returned when a suspended or closed user tries to sign in.
	ErrInactive = errors.New("account is not active")
)

// AccountOpener provisions the savings account created at registration.
type AccountOpener interface {
	Open(ctx context.Context, userID, currency string) (ledger.Account, error)
}

// Service manages identity lifecycle.
type Service struct {
	repo     Repository
	accounts AccountOpener
	logger   *slog.Logger
	cost     int
	now      func() time.Time
}

// NewService creates a new identity service. accounts may be nil, in which
// case registration does not open a savings account.
func NewService(repo Repository, accounts AccountOpener, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, accounts: accounts, logger: logger, cost: bcrypt.DefaultCost, now: time.Now}
}

// Register creates an active, verified customer and opens a savings account in
// the opener's default currency. A failed opening removes the user again so the
// email stays available.
func (s *Service) Register(ctx context.Context, in Registration) (User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return User{}, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return User{}, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, err
	}

	now := s.now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         RoleCustomer,
		Status:       StatusActive,
		KYCVerified:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	if s.accounts != nil {
		if _, err := s.accounts.Open(ctx, user.ID, ""); err != nil {
			if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
				s.logger.Error("registration rollback failed",
					slog.String("user_id", user.ID), slog.Any("error", delErr))
				return User{}, errors.Join(fmt.Errorf("open savings account: %w", err), delErr)
			}
			return User{}, fmt.Errorf("open savings account: %w", err)
		}
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// EnsureAdmin creates an administrator with the given credentials unless the
// email is already registered.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if existing, err := s.repo.FindByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	if len(password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	admin := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		Role:         RoleAdmin,
		Status:       StatusActive,
		KYCVerified:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return User{}, err
	}
	s.logger.Info("admin provisioned", slog.String("user_id", admin.ID))
	return admin, nil
}

// Authenticate verifies credentials and records the login time.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(creds.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if user.Status != StatusActive {
		return User{}, ErrInactive
	}

	now := s.now().UTC()
	user.LastLoginAt = &now
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Profile returns the user with the given id.
func (s *Service) Profile(ctx context.Context, userID string) (User, error) {
	return s.repo.FindByID(ctx, userID)
}

// UpdateProfile applies the non-nil fields of in.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return User{}, fmt.Errorf("%w: first name cannot be empty", ErrInvalidInput)
		}
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if strings.TrimSpace(*in.LastName) == "" {
			return User{}, fmt.Errorf("%w: last name cannot be empty", ErrInvalidInput)
		}
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ChangePassword replaces the password and invalidates issued tokens.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	return s.repo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}

// List returns a page of customers for back-office review.
func (s *Service) List(ctx context.Context, filter ListFilter) (Page, error) {
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	if filter.Take <= 0 {
		filter.Take = defaultPageSize
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Data: users, Total: total, Skip: filter.Skip, Take: filter.Take}, nil
}

// JoinedSince returns every customer created at or after since, newest first.
func (s *Service) JoinedSince(ctx context.Context, since time.Time) ([]User, error) {
	users, _, err := s.repo.List(ctx, ListFilter{JoinedFrom: since})
	return users, err
}

// SetStatus changes a user's status. Leaving ACTIVE revokes issued tokens.
func (s *Service) SetStatus(ctx context.Context, userID string, status Status) (User, error) {
	if !status.Valid() {
		return User{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	user.Status = status
	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	if status != StatusActive {
		if err := s.repo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1); err != nil {
			return User{}, err
		}
		user.TokenVersion++
	}
	s.logger.Info("user status changed", slog.String("user_id", user.ID), slog.String("status", string(status)))
	return user, nil
}

// Counts summarises customers per status.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	return s.repo.Counts(ctx)
}
