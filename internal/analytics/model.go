package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

// Dashboard is the back-office headline view.
type Dashboard struct {
	TotalCustomers    int             `json:"total_users"`
	ActiveCustomers   int             `json:"active_users"`
	TotalSavings      decimal.Decimal `json:"total_savings"`
	TotalCredits      int             `json:"total_credits"`
	PendingCredits    int             `json:"pending_credits"`
	TotalTransactions int             `json:"total_transactions"`
}

// CreditPerformance summarises the loan book. Approved counts every credit
// that passed approval, whatever its current state; Disbursed likewise counts
// every credit that received funds.
type CreditPerformance struct {
	ByStatus       map[ledger.CreditStatus]int `json:"by_status"`
	TotalRequested int                         `json:"total_requested"`
	TotalApproved  int                         `json:"total_approved"`
	TotalRejected  int                         `json:"total_rejected"`
	TotalDisbursed int                         `json:"total_disbursed"`
	TotalDefaulted int                         `json:"total_defaulted"`
	ApprovalRate   decimal.Decimal             `json:"approval_rate"`
	RejectionRate  decimal.Decimal             `json:"rejection_rate"`
	DefaultRate    decimal.Decimal             `json:"default_rate"`
}

// SavingsStats summarises savings accounts.
type SavingsStats struct {
	TotalAccounts  int             `json:"total_accounts"`
	ActiveAccounts int             `json:"active_accounts"`
	TotalBalance   decimal.Decimal `json:"total_balance"`
	AverageBalance decimal.Decimal `json:"average_balance"`
}

// TypeTotal aggregates entries of one type and status.
type TypeTotal struct {
	Type   ledger.EntryType   `json:"type"`
	Status ledger.EntryStatus `json:"status"`
	Count  int                `json:"count"`
	Amount decimal.Decimal    `json:"amount"`
}

// DailyTotal aggregates entries of one UTC day.
type DailyTotal struct {
	Date   string          `json:"date"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// DailyCount counts events of one UTC day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UserGrowth counts customer sign-ups per day since Since.
type UserGrowth struct {
	Days         int          `json:"days"`
	Since        time.Time    `json:"since"`
	TotalSignups int          `json:"total_signups"`
	Daily        []DailyCount `json:"daily"`
}

// TransactionStats covers entries created since Since.
type TransactionStats struct {
	Days              int             `json:"days"`
	Since             time.Time       `json:"since"`
	TotalTransactions int             `json:"total_transactions"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AverageAmount     decimal.Decimal `json:"average_amount"`
	ByType            []TypeTotal     `json:"by_type"`
	Daily             []DailyTotal    `json:"daily"`
}
