package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/credisave/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) (*Service, ledger.Account) {
	t.Helper()
	ctx := context.Background()
	store := ledger.NewInMemory()
	account, err := ledger.SeedAccount(ctx, store, "user-1", dec("1000"))
	require.NoError(t, err)

	post := func(fn func(ctx context.Context, tx ledger.Tx) error) {
		require.NoError(t, store.Atomic(ctx, fn))
	}
	post(func(ctx context.Context, tx ledger.Tx) error {
		_, err := ledger.ApplyDeposit(ctx, tx, account.ID, dec("100"), "Deposit", now.AddDate(0, 0, -2))
		return err
	})
	post(func(ctx context.Context, tx ledger.Tx) error {
		_, err := ledger.ApplyWithdraw(ctx, tx, account.ID, dec("40"), "Withdrawal", now.AddDate(0, 0, -10))
		return err
	})
	post(func(ctx context.Context, tx ledger.Tx) error {
		_, err := ledger.ApplyDeposit(ctx, tx, account.ID, dec("300"), "Deposit", now.AddDate(0, -3, 0))
		return err
	})
	post(func(ctx context.Context, tx ledger.Tx) error {
		_, err := ledger.RecordCreditEntry(ctx, tx, "user-1", "credit-1", ledger.EntryCreditRepayment, dec("25.50"), "Credit repayment", now.AddDate(0, 0, -1))
		return err
	})
	post(func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertEntry(ctx, ledger.Entry{
			ID: "failed-1", UserID: "user-1", Type: ledger.EntryDeposit, Amount: dec("999"),
			Status: ledger.StatusFailed, Reference: "DEP-FAILED", CreatedAt: now.AddDate(0, 0, -1),
		})
	})
	post(func(ctx context.Context, tx ledger.Tx) error {
		_, err := ledger.RecordCreditEntry(ctx, tx, "user-2", "credit-2", ledger.EntryCreditRepayment, dec("5"), "Credit repayment", now)
		return err
	})

	svc := NewService(store)
	svc.now = func() time.Time { return now }
	return svc, account
}

func TestStats_PeriodWindows(t *testing.T) {
	svc, _ := seed(t)
	ctx := context.Background()

	week, err := svc.Stats(ctx, "user-1", PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, 2, week.Stats.TotalTransactions)
	assert.True(t, week.Stats.TotalDeposits.Equal(dec("100")))
	assert.True(t, week.Stats.TotalCreditRepayments.Equal(dec("25.50")))
	assert.Equal(t, 0, week.Stats.WithdrawalCount)
	assert.Equal(t, now.AddDate(0, 0, -7), week.StartDate)

	month, err := svc.Stats(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, month.Period)
	assert.Equal(t, 3, month.Stats.TotalTransactions)
	assert.True(t, month.Stats.TotalWithdrawals.Equal(dec("40")))

	year, err := svc.Stats(ctx, "user-1", PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, 4, year.Stats.TotalTransactions)
	assert.Equal(t, 2, year.Stats.DepositCount)
	assert.True(t, year.Stats.TotalDeposits.Equal(dec("400")))

	_, err = svc.Stats(ctx, "user-1", "decade")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestMonthly_GroupsCompletedEntries(t *testing.T) {
	svc, _ := seed(t)

	months, err := svc.Monthly(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, months, 2)

	assert.Equal(t, "2024-03", months[0].Month)
	assert.True(t, months[0].Deposits.Equal(dec("300")))

	assert.Equal(t, "2024-06", months[1].Month)
	assert.Equal(t, 3, months[1].TransactionCount)
	assert.True(t, months[1].Withdrawals.Equal(dec("40")))
	assert.True(t, months[1].CreditRepayments.Equal(dec("25.50")))

	recent, err := svc.Monthly(context.Background(), "user-1", 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestList_FiltersAndOwnership(t *testing.T) {
	svc, _ := seed(t)
	ctx := context.Background()

	all, err := svc.List(ctx, "user-1", Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	failed, err := svc.List(ctx, "user-1", Filter{Status: ledger.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)

	deposits, err := svc.List(ctx, "user-1", Filter{Type: ledger.EntryDeposit, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, deposits, 1)

	_, err = svc.List(ctx, "user-1", Filter{Type: "GIFT"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	got, err := svc.Get(ctx, "user-1", failed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "DEP-FAILED", got.Reference)

	_, err = svc.Get(ctx, "user-2", failed[0].ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
