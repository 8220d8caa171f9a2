package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/money"
)

// Posting is the outcome of applying one entry to an account.
type Posting struct {
	Entry   Entry
	Balance decimal.Decimal
}

// ValidAmount reports whether amount can be posted: positive and in whole cents.
func ValidAmount(amount decimal.Decimal) bool {
	return money.Positive(amount) && amount.Equal(money.Round(amount))
}

// ApplyDeposit credits the account and records a completed DEPOSIT entry.
func ApplyDeposit(ctx context.Context, tx Tx, accountID string, amount decimal.Decimal, description string, now time.Time) (Posting, error) {
	return post(ctx, tx, postInput{
		accountID:   accountID,
		kind:        EntryDeposit,
		amount:      amount,
		credit:      true,
		description: description,
		now:         now,
	})
}

// ApplyWithdraw debits the account and records a completed WITHDRAWAL entry.
func ApplyWithdraw(ctx context.Context, tx Tx, accountID string, amount decimal.Decimal, description string, now time.Time) (Posting, error) {
	return post(ctx, tx, postInput{
		accountID:   accountID,
		kind:        EntryWithdrawal,
		amount:      amount,
		description: description,
		now:         now,
	})
}

// ApplyDisbursement credits the borrower's account with released credit funds.
func ApplyDisbursement(ctx context.Context, tx Tx, accountID, creditID string, amount decimal.Decimal, now time.Time) (Posting, error) {
	return post(ctx, tx, postInput{
		accountID:   accountID,
		creditID:    creditID,
		kind:        EntryCreditDisbursement,
		amount:      amount,
		credit:      true,
		description: "Credit disbursement",
		now:         now,
	})
}

// ApplyRepaymentDebit debits the account to fund a credit repayment.
func ApplyRepaymentDebit(ctx context.Context, tx Tx, accountID, creditID string, amount decimal.Decimal, now time.Time) (Posting, error) {
	return post(ctx, tx, postInput{
		accountID:   accountID,
		creditID:    creditID,
		kind:        EntryCreditRepayment,
		amount:      amount,
		description: "Credit repayment",
		now:         now,
	})
}

// RecordCreditEntry inserts a completed entry linked only to a credit, with no
// account balance involved.
func RecordCreditEntry(ctx context.Context, tx Tx, userID, creditID string, kind EntryType, amount decimal.Decimal, description string, now time.Time) (Entry, error) {
	if !ValidAmount(amount) {
		return Entry{}, ErrInvalidAmount
	}
	entry := Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		CreditID:    creditID,
		Type:        kind,
		Amount:      amount,
		Status:      StatusCompleted,
		Reference:   NewReference(kind),
		Description: description,
		CreatedAt:   now.UTC(),
	}
	if err := tx.InsertEntry(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

type postInput struct {
	accountID   string
	creditID    string
	kind        EntryType
	amount      decimal.Decimal
	credit      bool
	description string
	now         time.Time
}

func post(ctx context.Context, tx Tx, in postInput) (Posting, error) {
	if !ValidAmount(in.amount) {
		return Posting{}, ErrInvalidAmount
	}

	account, err := tx.LockAccount(ctx, in.accountID)
	if err != nil {
		return Posting{}, err
	}
	if !account.IsActive {
		return Posting{}, ErrAccountInactive
	}

	before := account.Balance
	after := before.Add(in.amount)
	if !in.credit {
		if in.amount.GreaterThan(before) {
			return Posting{}, ErrInsufficientFunds
		}
		after = before.Sub(in.amount)
	}

	now := in.now.UTC()
	entry := Entry{
		ID:            uuid.NewString(),
		UserID:        account.UserID,
		AccountID:     account.ID,
		CreditID:      in.creditID,
		Type:          in.kind,
		Amount:        in.amount,
		BalanceBefore: decimal.NewNullDecimal(before),
		BalanceAfter:  decimal.NewNullDecimal(after),
		Status:        StatusCompleted,
		Reference:     NewReference(in.kind),
		Description:   in.description,
		CreatedAt:     now,
	}
	if err := tx.InsertEntry(ctx, entry); err != nil {
		return Posting{}, err
	}

	account.Balance = after
	account.UpdatedAt = now
	if err := tx.UpdateAccount(ctx, account); err != nil {
		return Posting{}, err
	}

	return Posting{Entry: entry, Balance: after}, nil
}
