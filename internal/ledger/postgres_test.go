package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Integration(t *testing.T) {
	if os.Getenv("RUN_POSTGRES_INTEGRATION") != "true" {
		t.Skip("set RUN_POSTGRES_INTEGRATION=true to run against DATABASE_URL")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool))

	store := NewPostgresStore(pool)
	userID := "it-" + time.Now().Format("150405.000000")
	account, err := SeedAccount(ctx, store, userID, decimal.Zero)
	require.NoError(t, err)

	err = RunAtomic(ctx, store, func(ctx context.Context, tx Tx) error {
		_, err := ApplyDeposit(ctx, tx, account.ID, dec("75.25"), "Deposit", time.Now())
		return err
	})
	require.NoError(t, err)

	err = RunAtomic(ctx, store, func(ctx context.Context, tx Tx) error {
		_, err := ApplyWithdraw(ctx, tx, account.ID, dec("100"), "Withdrawal", time.Now())
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	stored, err := store.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("75.25")))

	_, err = SeedCredit(ctx, store, Credit{UserID: userID, Status: CreditPending, Tenure: 12})
	require.NoError(t, err)
	_, err = SeedCredit(ctx, store, Credit{UserID: userID, Status: CreditPending, Tenure: 12})
	assert.ErrorIs(t, err, ErrPendingCreditExists)

	entries, err := store.Entries(ctx, EntryFilter{UserID: userID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
