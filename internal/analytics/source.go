package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/identity"
	"github.com/congo-pay/credisave/internal/ledger"
)

// Source computes raw rollups. Rates and averages are derived by Service.
type Source interface {
	Dashboard(ctx context.Context) (Dashboard, error)
	CreditCounts(ctx context.Context) (map[ledger.CreditStatus]int, error)
	Savings(ctx context.Context) (SavingsStats, error)
	Transactions(ctx context.Context, since time.Time) (TransactionStats, error)
	Signups(ctx context.Context, since time.Time) ([]DailyCount, error)
}

// CustomerDirectory reports customer totals and recent sign-ups.
type CustomerDirectory interface {
	Counts(ctx context.Context) (identity.Counts, error)
	JoinedSince(ctx context.Context, since time.Time) ([]identity.User, error)
}

// LedgerSource aggregates in process over any ledger.Reader. It scans every
// row and suits the in-memory store and small deployments.
type LedgerSource struct {
	ledger    ledger.Reader
	customers CustomerDirectory
}

// NewLedgerSource builds a Source over reader and customers.
func NewLedgerSource(reader ledger.Reader, customers CustomerDirectory) *LedgerSource {
	return &LedgerSource{ledger: reader, customers: customers}
}

// Dashboard implements Source.
func (s *LedgerSource) Dashboard(ctx context.Context) (Dashboard, error) {
	counts, err := s.customers.Counts(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	accounts, err := s.ledger.Accounts(ctx, ledger.AccountFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	credits, total, err := s.ledger.Credits(ctx, ledger.CreditFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	entries, err := s.ledger.Entries(ctx, ledger.EntryFilter{})
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		TotalCustomers:    counts.Total,
		ActiveCustomers:   counts.Active,
		TotalSavings:      decimal.Zero,
		TotalCredits:      total,
		TotalTransactions: len(entries),
	}
	for _, a := range accounts {
		d.TotalSavings = d.TotalSavings.Add(a.Balance)
	}
	for _, c := range credits {
		if c.Status == ledger.CreditPending {
			d.PendingCredits++
		}
	}
	return d, nil
}

// CreditCounts implements Source.
func (s *LedgerSource) CreditCounts(ctx context.Context) (map[ledger.CreditStatus]int, error) {
	return s.ledger.CreditCounts(ctx)
}

// Savings implements Source.
func (s *LedgerSource) Savings(ctx context.Context) (SavingsStats, error) {
	accounts, err := s.ledger.Accounts(ctx, ledger.AccountFilter{})
	if err != nil {
		return SavingsStats{}, err
	}
	stats := SavingsStats{TotalAccounts: len(accounts), TotalBalance: decimal.Zero}
	for _, a := range accounts {
		stats.TotalBalance = stats.TotalBalance.Add(a.Balance)
		if a.IsActive {
			stats.ActiveAccounts++
		}
	}
	return stats, nil
}

// Transactions implements Source.
func (s *LedgerSource) Transactions(ctx context.Context, since time.Time) (TransactionStats, error) {
	entries, err := s.ledger.Entries(ctx, ledger.EntryFilter{From: since})
	if err != nil {
		return TransactionStats{}, err
	}

	stats := TransactionStats{Since: since, TotalAmount: decimal.Zero}
	type typeKey struct {
		t  ledger.EntryType
		st ledger.EntryStatus
	}
	byType := map[typeKey]*TypeTotal{}
	daily := map[string]*DailyTotal{}
	for _, e := range entries {
		stats.TotalTransactions++
		stats.TotalAmount = stats.TotalAmount.Add(e.Amount)

		k := typeKey{e.Type, e.Status}
		tt, ok := byType[k]
		if !ok {
			tt = &TypeTotal{Type: e.Type, Status: e.Status, Amount: decimal.Zero}
			byType[k] = tt
		}
		tt.Count++
		tt.Amount = tt.Amount.Add(e.Amount)

		day := e.CreatedAt.UTC().Format(time.DateOnly)
		dt, ok := daily[day]
		if !ok {
			dt = &DailyTotal{Date: day, Amount: decimal.Zero}
			daily[day] = dt
		}
		dt.Count++
		dt.Amount = dt.Amount.Add(e.Amount)
	}

	stats.ByType = make([]TypeTotal, 0, len(byType))
	for _, tt := range byType {
		stats.ByType = append(stats.ByType, *tt)
	}
	stats.Daily = make([]DailyTotal, 0, len(daily))
	for _, dt := range daily {
		stats.Daily = append(stats.Daily, *dt)
	}
	sortTotals(&stats)
	return stats, nil
}

// Signups implements Source.
func (s *LedgerSource) Signups(ctx context.Context, since time.Time) ([]DailyCount, error) {
	users, err := s.customers.JoinedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	byDay := map[string]int{}
	for _, u := range users {
		byDay[u.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	daily := make([]DailyCount, 0, len(byDay))
	for day, n := range byDay {
		daily = append(daily, DailyCount{Date: day, Count: n})
	}
	sortCounts(daily)
	return daily, nil
}
