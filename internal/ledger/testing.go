package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedAccount is a test helper that opens an active account holding balance
// for userID in the given store.
func SeedAccount(ctx context.Context, store Store, userID string, balance decimal.Decimal) (Account, error) {
	now := time.Now().UTC()
	account := Account{
		ID:            uuid.NewString(),
		UserID:        userID,
		AccountNumber: "SAV-" + uuid.NewString()[:8],
		Balance:       balance,
		Currency:      "USD",
		InterestRate:  decimal.RequireFromString("2.5"),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertAccount(ctx, account)
	})
	return account, err
}

// SeedCredit is a test helper that stores credit as-is, bypassing lifecycle rules.
func SeedCredit(ctx context.Context, store Store, credit Credit) (Credit, error) {
	if credit.ID == "" {
		credit.ID = uuid.NewString()
	}
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = time.Now().UTC()
	}
	if credit.UpdatedAt.IsZero() {
		credit.UpdatedAt = credit.CreatedAt
	}
	err := store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertCredit(ctx, credit)
	})
	return credit, err
}
