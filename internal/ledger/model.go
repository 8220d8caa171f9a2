package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a money movement.
type EntryType string

const (
	EntryDeposit            EntryType = "DEPOSIT"
	EntryWithdrawal         EntryType = "WITHDRAWAL"
	EntryCreditDisbursement EntryType = "CREDIT_DISBURSEMENT"
	EntryCreditRepayment    EntryType = "CREDIT_REPAYMENT"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryDeposit, EntryWithdrawal, EntryCreditDisbursement, EntryCreditRepayment:
		return true
	}
	return false
}

// EntryStatus is the settlement state of an entry.
type EntryStatus string

const (
	StatusPending   EntryStatus = "PENDING"
	StatusCompleted EntryStatus = "COMPLETED"
	StatusFailed    EntryStatus = "FAILED"
)

// Valid reports whether s is a known entry status.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CreditStatus is a state of the credit lifecycle.
type CreditStatus string

const (
	CreditPending   CreditStatus = "PENDING"
	CreditApproved  CreditStatus = "APPROVED"
	CreditRejected  CreditStatus = "REJECTED"
	CreditDisbursed CreditStatus = "DISBURSED"
	CreditActive    CreditStatus = "ACTIVE"
	CreditCompleted CreditStatus = "COMPLETED"
	CreditDefaulted CreditStatus = "DEFAULTED"
)

// CreditStatuses lists every lifecycle state in display order.
var CreditStatuses = []CreditStatus{
	CreditPending, CreditApproved, CreditRejected, CreditDisbursed,
	CreditActive, CreditCompleted, CreditDefaulted,
}

// Valid reports whether s is a known credit status.
func (s CreditStatus) Valid() bool {
	for _, known := range CreditStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Account is a savings account. Its balance only changes through postings.
type Account struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	InterestRate  decimal.Decimal `json:"interest_rate"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Entry is an immutable record of one money movement.
type Entry struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	AccountID     string              `json:"account_id,omitempty"`
	CreditID      string              `json:"credit_id,omitempty"`
	Type          EntryType           `json:"type"`
	Amount        decimal.Decimal     `json:"amount"`
	BalanceBefore decimal.NullDecimal `json:"balance_before"`
	BalanceAfter  decimal.NullDecimal `json:"balance_after"`
	Status        EntryStatus         `json:"status"`
	Reference     string              `json:"reference"`
	Description   string              `json:"description"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Credit is one loan and its running repayment state.
type Credit struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	Principal          decimal.Decimal `json:"principal"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	Tenure             int             `json:"tenure"`
	MonthlyPayment     decimal.Decimal `json:"monthly_payment"`
	TotalRepayable     decimal.Decimal `json:"total_repayable"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	CreditScore        int             `json:"credit_score"`
	Status             CreditStatus    `json:"status"`
	Purpose            string          `json:"purpose,omitempty"`
	ApprovedBy         string          `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time      `json:"approved_at,omitempty"`
	DisbursedAt        *time.Time      `json:"disbursed_at,omitempty"`
	NextPaymentDate    *time.Time      `json:"next_payment_date,omitempty"`
	RejectionReason    string          `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Repayment links a credit to the ledger entry that funded it.
type Repayment struct {
	ID        string          `json:"id"`
	CreditID  string          `json:"credit_id"`
	EntryID   string          `json:"entry_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// History summarises a user's standing for credit scoring.
type History struct {
	SavingsTotal     decimal.Decimal
	CompletedCredits int
	TransactionCount int
}
