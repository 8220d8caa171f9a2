// Package credit implements credit scoring, terms, the credit lifecycle and
// repayment schedules on top of the ledger.
package credit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

var (
	// ErrInvalidRequest rejects input outside the accepted bounds.
	ErrInvalidRequest = errors.New("invalid credit request")

	// ErrDuplicatePendingCredit is returned when the user already has a credit awaiting review.
	ErrDuplicatePendingCredit = errors.New("you already have a pending credit request")

	// ErrCreditNotActive rejects repayments on credits that are not disbursed or active.
	ErrCreditNotActive = errors.New("credit is not active for repayment")

	// ErrInvalidStateTransition rejects lifecycle moves not allowed from the current status.
	ErrInvalidStateTransition = errors.New("invalid credit state transition")

	// ErrRepaymentExceedsBalance rejects repayments that are not positive or exceed the outstanding balance.
	ErrRepaymentExceedsBalance = errors.New("repayment amount exceeds outstanding balance")

	// ErrAccountNotOwned is returned when a savings account does not belong to the borrower.
	ErrAccountNotOwned = errors.New("account does not belong to the borrower")

	// ErrNoActiveAccount is returned when a disbursement has no account to credit.
	ErrNoActiveAccount = errors.New("borrower has no active savings account")

	// ErrAccountNotFound is returned when the savings account named in a
	// disbursement or repayment does not exist. It also matches ledger.ErrNotFound.
	ErrAccountNotFound = errors.New("savings account not found")

	// ErrUnknownBorrower is returned by a UserDirectory for missing users.
	ErrUnknownBorrower = errors.New("borrower not found")
)

const (
	MinAmount = 100
	MaxAmount = 1_000_000
	MinTenure = 1
	MaxTenure = 60
)

// Borrower is the view of a user the credit engine needs.
type Borrower struct {
	ID          string
	KYCVerified bool
}

// UserDirectory resolves borrowers by id.
type UserDirectory interface {
	Borrower(ctx context.Context, userID string) (Borrower, error)
}

// RequestInput carries a credit application.
type RequestInput struct {
	Amount  decimal.Decimal
	Tenure  int
	Purpose string
}

// Validate checks amount and tenure bounds.
func (in RequestInput) Validate() error {
	if in.Amount.LessThan(decimal.NewFromInt(MinAmount)) || in.Amount.GreaterThan(decimal.NewFromInt(MaxAmount)) {
		return fmt.Errorf("%w: amount must be between %d and %d", ErrInvalidRequest, MinAmount, MaxAmount)
	}
	if !ledger.ValidAmount(in.Amount) {
		return fmt.Errorf("%w: amount must have at most 2 decimal places", ErrInvalidRequest)
	}
	if in.Tenure < MinTenure || in.Tenure > MaxTenure {
		return fmt.Errorf("%w: tenure must be between %d and %d months", ErrInvalidRequest, MinTenure, MaxTenure)
	}
	if len(in.Purpose) > 500 {
		return fmt.Errorf("%w: purpose is too long", ErrInvalidRequest)
	}
	return nil
}

// RepayInput carries a repayment. AccountID is optional; when set the amount
// is debited from that savings account.
type RepayInput struct {
	Amount    decimal.Decimal
	AccountID string
}

// RequestResult is the outcome of a credit application.
type RequestResult struct {
	Credit       ledger.Credit `json:"credit"`
	AutoApproved bool          `json:"auto_approved"`
	Message      string        `json:"message"`
}

// RepayResult is the outcome of a repayment.
type RepayResult struct {
	Credit    ledger.Credit    `json:"credit"`
	Entry     ledger.Entry     `json:"transaction"`
	Repayment ledger.Repayment `json:"repayment"`
	Message   string           `json:"message"`
}

// Detail is a credit with its repayments, newest first.
type Detail struct {
	ledger.Credit
	Repayments []ledger.Repayment `json:"repayments"`
}

// Page is one page of an administrative credit listing.
type Page struct {
	Data  []ledger.Credit `json:"data"`
	Total int             `json:"total"`
	Skip  int             `json:"skip"`
	Take  int             `json:"take"`
}

func normalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", fmt.Errorf("%w: rejection reason is required", ErrInvalidRequest)
	}
	return reason, nil
}
