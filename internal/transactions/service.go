// Package transactions serves a user's ledger history and rollups of it.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

const (
	MaxLimit      = 100
	defaultMonths = 6
	day           = 24 * time.Hour
)

// ErrInvalidFilter rejects unknown periods, types or statuses.
var ErrInvalidFilter = errors.New("invalid transaction filter")

// Period is a trailing window for Stats.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func (p Period) window() (time.Duration, bool) {
	switch p {
	case PeriodWeek:
		return 7 * day, true
	case PeriodMonth:
		return 30 * day, true
	case PeriodYear:
		return 365 * day, true
	}
	return 0, false
}

// Filter narrows a history listing.
type Filter struct {
	Type   ledger.EntryType
	Status ledger.EntryStatus
	From   time.Time
	To     time.Time
	Limit  int
}

// Totals aggregates completed entries by type.
type Totals struct {
	TotalTransactions        int             `json:"total_transactions"`
	TotalDeposits            decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals         decimal.Decimal `json:"total_withdrawals"`
	TotalCreditDisbursements decimal.Decimal `json:"total_credit_disbursements"`
	TotalCreditRepayments    decimal.Decimal `json:"total_credit_repayments"`
	DepositCount             int             `json:"deposit_count"`
	WithdrawalCount          int             `json:"withdrawal_count"`
	CreditDisbursementCount  int             `json:"credit_disbursement_count"`
	CreditRepaymentCount     int             `json:"credit_repayment_count"`
}

// PeriodStats is the result of Stats.
type PeriodStats struct {
	Period    Period    `json:"period"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Stats     Totals    `json:"stats"`
}

// Month is one YYYY-MM bucket of Monthly.
type Month struct {
	Month               string          `json:"month"`
	Deposits            decimal.Decimal `json:"deposits"`
	Withdrawals         decimal.Decimal `json:"withdrawals"`
	CreditDisbursements decimal.Decimal `json:"credit_disbursements"`
	CreditRepayments    decimal.Decimal `json:"credit_repayments"`
	TransactionCount    int             `json:"transaction_count"`
}

// Service reads the ledger on behalf of one user at a time.
type Service struct {
	store ledger.Reader
	now   func() time.Time
}

// NewService builds a transactions service.
func NewService(store ledger.Reader) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns the user's entries, newest first, capped at MaxLimit.
func (s *Service) List(ctx context.Context, userID string, f Filter) ([]ledger.Entry, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidFilter, f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	return s.store.Entries(ctx, ledger.EntryFilter{
		UserID: userID,
		Type:   f.Type,
		Status: f.Status,
		From:   f.From,
		To:     f.To,
		Limit:  limit,
	})
}

// Get returns one entry owned by userID.
func (s *Service) Get(ctx context.Context, userID, entryID string) (ledger.Entry, error) {
	entry, err := s.store.Entry(ctx, entryID)
	if err != nil {
		return ledger.Entry{}, err
	}
	if entry.UserID != userID {
		return ledger.Entry{}, ledger.ErrNotFound
	}
	return entry, nil
}

// Stats totals the user's completed entries over a trailing period.
func (s *Service) Stats(ctx context.Context, userID string, period Period) (PeriodStats, error) {
	if period == "" {
		period = PeriodMonth
	}
	window, ok := period.window()
	if !ok {
		return PeriodStats{}, fmt.Errorf("%w: unknown period %q", ErrInvalidFilter, period)
	}
	end := s.now().UTC()
	start := end.Add(-window)

	entries, err := s.store.Entries(ctx, ledger.EntryFilter{UserID: userID, Status: ledger.StatusCompleted, From: start})
	if err != nil {
		return PeriodStats{}, err
	}

	totals := Totals{
		TotalTransactions:        len(entries),
		TotalDeposits:            decimal.Zero,
		TotalWithdrawals:         decimal.Zero,
		TotalCreditDisbursements: decimal.Zero,
		TotalCreditRepayments:    decimal.Zero,
	}
	for _, e := range entries {
		switch e.Type {
		case ledger.EntryDeposit:
			totals.TotalDeposits = totals.TotalDeposits.Add(e.Amount)
			totals.DepositCount++
		case ledger.EntryWithdrawal:
			totals.TotalWithdrawals = totals.TotalWithdrawals.Add(e.Amount)
			totals.WithdrawalCount++
		case ledger.EntryCreditDisbursement:
			totals.TotalCreditDisbursements = totals.TotalCreditDisbursements.Add(e.Amount)
			totals.CreditDisbursementCount++
		case ledger.EntryCreditRepayment:
			totals.TotalCreditRepayments = totals.TotalCreditRepayments.Add(e.Amount)
			totals.CreditRepaymentCount++
		}
	}
	return PeriodStats{Period: period, StartDate: start, EndDate: end, Stats: totals}, nil
}

// Monthly groups the user's completed entries of the last months by YYYY-MM,
// oldest month first. Months without activity are omitted.
func (s *Service) Monthly(ctx context.Context, userID string, months int) ([]Month, error) {
	if months <= 0 {
		months = defaultMonths
	}
	start := s.now().UTC().AddDate(0, -months, 0)

	entries, err := s.store.Entries(ctx, ledger.EntryFilter{UserID: userID, Status: ledger.StatusCompleted, From: start})
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*Month)
	for _, e := range entries {
		key := e.CreatedAt.UTC().Format("2006-01")
		m, ok := buckets[key]
		if !ok {
			m = &Month{
				Month:               key,
				Deposits:            decimal.Zero,
				Withdrawals:         decimal.Zero,
				CreditDisbursements: decimal.Zero,
				CreditRepayments:    decimal.Zero,
			}
			buckets[key] = m
		}
		m.TransactionCount++
		switch e.Type {
		case ledger.EntryDeposit:
			m.Deposits = m.Deposits.Add(e.Amount)
		case ledger.EntryWithdrawal:
			m.Withdrawals = m.Withdrawals.Add(e.Amount)
		case ledger.EntryCreditDisbursement:
			m.CreditDisbursements = m.CreditDisbursements.Add(e.Amount)
		case ledger.EntryCreditRepayment:
			m.CreditRepayments = m.CreditRepayments.Add(e.Amount)
		}
	}

	out := make([]Month, 0, len(buckets))
	for _, m := range buckets {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}
