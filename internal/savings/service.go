// Package savings manages savings accounts and their deposits and withdrawals.
package savings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

const (
	defaultCurrency     = "USD"
	defaultHistoryLimit = 50
	recentEntries       = 20
)

var defaultInterestRate = decimal.RequireFromString("2.5")

// Service exposes savings operations backed by the ledger.
type Service struct {
	store    ledger.Store
	logger   *slog.Logger
	currency string
	now      func() time.Time
}

// NewService builds a savings service. An empty currency falls back to USD.
func NewService(store ledger.Store, currency string, logger *slog.Logger) *Service {
	if currency == "" {
		currency = defaultCurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, currency: strings.ToUpper(currency), now: time.Now}
}

// MovementInput carries a deposit or withdrawal.
type MovementInput struct {
	Amount      decimal.Decimal
	Description string
}

// MovementResult is the entry written and the resulting balance.
type MovementResult struct {
	Message     string          `json:"message"`
	Transaction ledger.Entry    `json:"transaction"`
	NewBalance  decimal.Decimal `json:"new_balance"`
}

// AccountDetail is an account with its most recent entries.
type AccountDetail struct {
	ledger.Account
	Transactions []ledger.Entry `json:"transactions"`
}

// Balance is the current balance of an account.
type Balance struct {
	AccountID     string          `json:"id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Open provisions a zero-balance savings account for userID.
func (s *Service) Open(ctx context.Context, userID, currency string) (ledger.Account, error) {
	if userID == "" {
		return ledger.Account{}, fmt.Errorf("user id is required")
	}
	if currency == "" {
		currency = s.currency
	}

	now := s.now().UTC()
	id := uuid.NewString()
	account := ledger.Account{
		ID:            id,
		UserID:        userID,
		AccountNumber: fmt.Sprintf("SAV-%d-%s", now.UnixMilli(), strings.ToUpper(id[:8])),
		Balance:       decimal.Zero,
		Currency:      strings.ToUpper(currency),
		InterestRate:  defaultInterestRate,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := ledger.RunAtomic(ctx, s.store, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.logger.Info("savings account opened", slog.String("account_id", account.ID), slog.String("user_id", userID))
	return account, nil
}

// List returns the user's accounts, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]ledger.Account, error) {
	return s.store.Accounts(ctx, ledger.AccountFilter{UserID: userID})
}

// Get returns an owned account with its last entries.
func (s *Service) Get(ctx context.Context, userID, accountID string) (AccountDetail, error) {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return AccountDetail{}, err
	}
	entries, err := s.store.Entries(ctx, ledger.EntryFilter{AccountID: account.ID, Limit: recentEntries})
	if err != nil {
		return AccountDetail{}, err
	}
	return AccountDetail{Account: account, Transactions: entries}, nil
}

// Balance returns the current balance of an owned account.
func (s *Service) Balance(ctx context.Context, userID, accountID string) (Balance, error) {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Currency:      account.Currency,
		UpdatedAt:     account.UpdatedAt,
	}, nil
}

// Deposit credits an owned account.
func (s *Service) Deposit(ctx context.Context, userID, accountID string, in MovementInput) (MovementResult, error) {
	description := in.Description
	if description == "" {
		description = "Deposit"
	}
	posting, err := s.move(ctx, userID, accountID, func(ctx context.Context, tx ledger.Tx, now time.Time) (ledger.Posting, error) {
		return ledger.ApplyDeposit(ctx, tx, accountID, in.Amount, description, now)
	})
	if err != nil {
		return MovementResult{}, err
	}
	return MovementResult{Message: "Deposit successful", Transaction: posting.Entry, NewBalance: posting.Balance}, nil
}

// Withdraw debits an owned account.
func (s *Service) Withdraw(ctx context.Context, userID, accountID string, in MovementInput) (MovementResult, error) {
	description := in.Description
	if description == "" {
		description = "Withdrawal"
	}
	posting, err := s.move(ctx, userID, accountID, func(ctx context.Context, tx ledger.Tx, now time.Time) (ledger.Posting, error) {
		return ledger.ApplyWithdraw(ctx, tx, accountID, in.Amount, description, now)
	})
	if err != nil {
		return MovementResult{}, err
	}
	return MovementResult{Message: "Withdrawal successful", Transaction: posting.Entry, NewBalance: posting.Balance}, nil
}

// History lists entries of an owned account, newest first.
func (s *Service) History(ctx context.Context, userID, accountID string, limit int) ([]ledger.Entry, error) {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.Entries(ctx, ledger.EntryFilter{UserID: userID, AccountID: account.ID, Limit: limit})
}

// Deactivate closes an account to further postings.
func (s *Service) Deactivate(ctx context.Context, accountID string) (ledger.Account, error) {
	var account ledger.Account
	err := ledger.RunAtomic(ctx, s.store, func(ctx context.Context, tx ledger.Tx) error {
		locked, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		locked.IsActive = false
		locked.UpdatedAt = s.now().UTC()
		if err := tx.UpdateAccount(ctx, locked); err != nil {
			return err
		}
		account = locked
		return nil
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.logger.Info("savings account deactivated", slog.String("account_id", accountID))
	return account, nil
}

func (s *Service) owned(ctx context.Context, userID, accountID string) (ledger.Account, error) {
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	if account.UserID != userID {
		return ledger.Account{}, ledger.ErrNotFound
	}
	return account, nil
}

type postFunc func(ctx context.Context, tx ledger.Tx, now time.Time) (ledger.Posting, error)

func (s *Service) move(ctx context.Context, userID, accountID string, post postFunc) (ledger.Posting, error) {
	var posting ledger.Posting
	err := ledger.RunAtomic(ctx, s.store, func(ctx context.Context, tx ledger.Tx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.UserID != userID {
			return ledger.ErrNotFound
		}
		posting, err = post(ctx, tx, s.now())
		return err
	})
	if err != nil {
		return ledger.Posting{}, err
	}
	s.logger.Info("savings posting",
		slog.String("account_id", accountID),
		slog.String("type", string(posting.Entry.Type)),
		slog.String("reference", posting.Entry.Reference),
		slog.String("balance", posting.Balance.StringFixed(2)))
	return posting, nil
}
