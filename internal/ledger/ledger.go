package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds occurs when an account balance cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountInactive rejects postings against a deactivated account.
	ErrAccountInactive = errors.New("account is not active")

	// ErrInvalidAmount rejects non-positive amounts or amounts finer than cents.
	ErrInvalidAmount = errors.New("amount must be positive with at most 2 decimal places")

	// ErrNotFound is returned when an account, entry, credit or repayment is missing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateReference indicates an entry reference already exists in the ledger.
	ErrDuplicateReference = errors.New("duplicate entry reference")

	// ErrPendingCreditExists indicates the user already has a credit awaiting review.
	ErrPendingCreditExists = errors.New("pending credit already exists")

	// ErrWriteConflict is reported by a Store when a transaction lost a race with
	// a concurrent writer and may succeed if run again.
	ErrWriteConflict = errors.New("write conflict")

	// ErrConflict is surfaced once a conflicting transaction failed its retry.
	ErrConflict = errors.New("concurrent modification, please retry")
)

// AccountFilter narrows account listings. Empty fields match everything.
type AccountFilter struct {
	UserID string
}

// EntryFilter narrows entry listings. Zero values match everything and a zero
// Limit means no limit. Results are newest first.
type EntryFilter struct {
	UserID    string
	AccountID string
	CreditID  string
	Type      EntryType
	Status    EntryStatus
	From      time.Time
	To        time.Time
	Limit     int
}

// CreditFilter narrows credit listings. A zero Take means no limit. Results
// are newest first.
type CreditFilter struct {
	UserID string
	Status CreditStatus
	Skip   int
	Take   int
}

// Reader exposes the read side of the book of record.
type Reader interface {
	Account(ctx context.Context, id string) (Account, error)
	Accounts(ctx context.Context, filter AccountFilter) ([]Account, error)
	Entry(ctx context.Context, id string) (Entry, error)
	Entries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	Credit(ctx context.Context, id string) (Credit, error)
	Credits(ctx context.Context, filter CreditFilter) ([]Credit, int, error)
	CreditCounts(ctx context.Context) (map[CreditStatus]int, error)
	Repayments(ctx context.Context, creditID string) ([]Repayment, error)
}

// Tx is one atomic unit of work. Lock* reads hold the row until the unit ends.
// Entries and repayments can only be inserted, never updated.
type Tx interface {
	Reader
	LockAccount(ctx context.Context, id string) (Account, error)
	InsertAccount(ctx context.Context, account Account) error
	UpdateAccount(ctx context.Context, account Account) error
	InsertEntry(ctx context.Context, entry Entry) error
	LockCredit(ctx context.Context, id string) (Credit, error)
	InsertCredit(ctx context.Context, credit Credit) error
	UpdateCredit(ctx context.Context, credit Credit) error
	InsertRepayment(ctx context.Context, repayment Repayment) error
	HasPendingCredit(ctx context.Context, userID string) (bool, error)
	History(ctx context.Context, userID string) (History, error)
}

// Store is implemented by ledger backends (in-memory, Postgres). Atomic runs fn
// in a single transaction: every write commits together or none does.
type Store interface {
	Reader
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
