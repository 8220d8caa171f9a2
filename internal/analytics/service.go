// Package analytics provides read-only rollups over savings, credits and the
// ledger for the back office.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/infra"
	"github.com/congo-pay/credisave/internal/ledger"
	"github.com/congo-pay/credisave/internal/money"
)

const (
	DefaultDays = 30
	MaxDays     = 365

	dashboardKey   = "dashboard"
	performanceKey = "credit-performance"
)

// ErrInvalidRange rejects a day window outside 1..MaxDays.
var ErrInvalidRange = errors.New("days must be between 1 and 365")

// Service serves analytics, caching the dashboard and credit performance
// views when a cache is configured.
type Service struct {
	source Source
	cache  *infra.JSONCache
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds an analytics service. cache may be nil.
func NewService(source Source, cache *infra.JSONCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger, now: time.Now}
}

// Dashboard returns the headline figures.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	err := s.cached(ctx, dashboardKey, &d, func() error {
		var err error
		d, err = s.source.Dashboard(ctx)
		return err
	})
	return d, err
}

// CreditPerformance returns per-status counts and approval, rejection and
// default rates as percentages with two decimals.
func (s *Service) CreditPerformance(ctx context.Context) (CreditPerformance, error) {
	var p CreditPerformance
	err := s.cached(ctx, performanceKey, &p, func() error {
		counts, err := s.source.CreditCounts(ctx)
		if err != nil {
			return err
		}
		p = performanceFromCounts(counts)
		return nil
	})
	return p, err
}

// SavingsStats returns account totals and the average balance.
func (s *Service) SavingsStats(ctx context.Context) (SavingsStats, error) {
	stats, err := s.source.Savings(ctx)
	if err != nil {
		return SavingsStats{}, err
	}
	stats.AverageBalance = average(stats.TotalBalance, stats.TotalAccounts)
	return stats, nil
}

// TransactionStats covers the last days days. Zero means DefaultDays.
func (s *Service) TransactionStats(ctx context.Context, days int) (TransactionStats, error) {
	days, since, err := s.window(days)
	if err != nil {
		return TransactionStats{}, err
	}
	stats, err := s.source.Transactions(ctx, since)
	if err != nil {
		return TransactionStats{}, err
	}
	stats.Days = days
	stats.AverageAmount = average(stats.TotalAmount, stats.TotalTransactions)
	return stats, nil
}

// UserGrowth counts customer sign-ups per day over the last days days. Zero
// means DefaultDays.
func (s *Service) UserGrowth(ctx context.Context, days int) (UserGrowth, error) {
	days, since, err := s.window(days)
	if err != nil {
		return UserGrowth{}, err
	}
	daily, err := s.source.Signups(ctx, since)
	if err != nil {
		return UserGrowth{}, err
	}
	growth := UserGrowth{Days: days, Since: since, Daily: daily}
	for _, dc := range daily {
		growth.TotalSignups += dc.Count
	}
	return growth, nil
}

func (s *Service) window(days int) (int, time.Time, error) {
	if days == 0 {
		days = DefaultDays
	}
	if days < 1 || days > MaxDays {
		return 0, time.Time{}, ErrInvalidRange
	}
	return days, s.now().UTC().AddDate(0, 0, -days), nil
}

// Invalidate drops cached views so the next read recomputes them.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardKey, performanceKey); err != nil {
		s.logger.Warn("analytics cache invalidation failed", slog.Any("error", err))
	}
}

// cached fills dst from the cache or runs load and stores dst. Cache failures
// are logged and never fail the read.
func (s *Service) cached(ctx context.Context, key string, dst any, load func() error) error {
	if s.cache != nil {
		err := s.cache.Get(ctx, key, dst)
		if err == nil {
			return nil
		}
		if !errors.Is(err, infra.ErrCacheMiss) {
			s.logger.Warn("analytics cache read failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	if err := load(); err != nil {
		return fmt.Errorf("compute %s: %w", key, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dst); err != nil {
			s.logger.Warn("analytics cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}

func performanceFromCounts(counts map[ledger.CreditStatus]int) CreditPerformance {
	p := CreditPerformance{ByStatus: make(map[ledger.CreditStatus]int, len(ledger.CreditStatuses))}
	for _, status := range ledger.CreditStatuses {
		n := counts[status]
		p.ByStatus[status] = n
		p.TotalRequested += n
	}
	disbursed := counts[ledger.CreditDisbursed] + counts[ledger.CreditActive] +
		counts[ledger.CreditCompleted] + counts[ledger.CreditDefaulted]
	p.TotalApproved = counts[ledger.CreditApproved] + disbursed
	p.TotalRejected = counts[ledger.CreditRejected]
	p.TotalDisbursed = disbursed
	p.TotalDefaulted = counts[ledger.CreditDefaulted]

	p.ApprovalRate = money.Percent(int64(p.TotalApproved), int64(p.TotalRequested))
	p.RejectionRate = money.Percent(int64(p.TotalRejected), int64(p.TotalRequested))
	p.DefaultRate = money.Percent(int64(p.TotalDefaulted), int64(p.TotalDisbursed))
	return p
}

func average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return money.Round(total.Div(decimal.NewFromInt(int64(n))))
}

func sortTotals(stats *TransactionStats) {
	sort.Slice(stats.ByType, func(i, j int) bool {
		a, b := stats.ByType[i], stats.ByType[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Status < b.Status
	})
	sort.Slice(stats.Daily, func(i, j int) bool {
		return stats.Daily[i].Date < stats.Daily[j].Date
	})
}

func sortCounts(daily []DailyCount) {
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })
}
