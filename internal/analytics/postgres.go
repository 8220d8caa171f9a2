package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

// PostgresSource aggregates in SQL over the ledger and users tables.
type PostgresSource struct {
	db *pgxpool.Pool
}

// NewPostgresSource builds a Source backed by PostgreSQL.
func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: db}
}

// Dashboard implements Source.
func (s *PostgresSource) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	err := s.db.QueryRow(ctx, `SELECT
            (SELECT COUNT(*) FROM users WHERE role = 'CUSTOMER'),
            (SELECT COUNT(*) FROM users WHERE role = 'CUSTOMER' AND status = 'ACTIVE'),
            (SELECT COALESCE(SUM(balance), 0) FROM savings_accounts),
            (SELECT COUNT(*) FROM credits),
            (SELECT COUNT(*) FROM credits WHERE status = 'PENDING'),
            (SELECT COUNT(*) FROM ledger_entries)`).
		Scan(&d.TotalCustomers, &d.ActiveCustomers, &d.TotalSavings,
			&d.TotalCredits, &d.PendingCredits, &d.TotalTransactions)
	return d, err
}

// CreditCounts implements Source.
func (s *PostgresSource) CreditCounts(ctx context.Context) (map[ledger.CreditStatus]int, error) {
	return ledger.NewPostgresStore(s.db).CreditCounts(ctx)
}

// Savings implements Source.
func (s *PostgresSource) Savings(ctx context.Context) (SavingsStats, error) {
	var stats SavingsStats
	err := s.db.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active),
            COALESCE(SUM(balance), 0) FROM savings_accounts`).
		Scan(&stats.TotalAccounts, &stats.ActiveAccounts, &stats.TotalBalance)
	return stats, err
}

// Transactions implements Source.
func (s *PostgresSource) Transactions(ctx context.Context, since time.Time) (TransactionStats, error) {
	stats := TransactionStats{Since: since, TotalAmount: decimal.Zero}

	rows, err := s.db.Query(ctx, `SELECT type, status, COUNT(*), COALESCE(SUM(amount), 0)
        FROM ledger_entries WHERE created_at >= $1 GROUP BY type, status`, since.UTC())
	if err != nil {
		return TransactionStats{}, err
	}
	stats.ByType = []TypeTotal{}
	for rows.Next() {
		var tt TypeTotal
		if err := rows.Scan(&tt.Type, &tt.Status, &tt.Count, &tt.Amount); err != nil {
			rows.Close()
			return TransactionStats{}, err
		}
		stats.TotalTransactions += tt.Count
		stats.TotalAmount = stats.TotalAmount.Add(tt.Amount)
		stats.ByType = append(stats.ByType, tt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return TransactionStats{}, err
	}

	rows, err = s.db.Query(ctx, `SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
            COUNT(*), COALESCE(SUM(amount), 0)
        FROM ledger_entries WHERE created_at >= $1 GROUP BY day ORDER BY day`, since.UTC())
	if err != nil {
		return TransactionStats{}, err
	}
	defer rows.Close()
	stats.Daily = []DailyTotal{}
	for rows.Next() {
		var dt DailyTotal
		if err := rows.Scan(&dt.Date, &dt.Count, &dt.Amount); err != nil {
			return TransactionStats{}, err
		}
		stats.Daily = append(stats.Daily, dt)
	}
	if err := rows.Err(); err != nil {
		return TransactionStats{}, err
	}
	sortTotals(&stats)
	return stats, nil
}

// Signups implements Source.
func (s *PostgresSource) Signups(ctx context.Context, since time.Time) ([]DailyCount, error) {
	rows, err := s.db.Query(ctx, `SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
        FROM users WHERE role = 'CUSTOMER' AND created_at >= $1 GROUP BY day ORDER BY day`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	daily := []DailyCount{}
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		daily = append(daily, dc)
	}
	return daily, rows.Err()
}
