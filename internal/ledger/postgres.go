package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS savings_accounts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    account_number TEXT NOT NULL UNIQUE,
    balance NUMERIC(24,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
    currency TEXT NOT NULL,
    interest_rate NUMERIC(6,2) NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS savings_accounts_user_idx ON savings_accounts (user_id);

CREATE TABLE IF NOT EXISTS credits (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    principal NUMERIC(24,2) NOT NULL,
    interest_rate NUMERIC(6,2) NOT NULL,
    tenure INTEGER NOT NULL,
    monthly_payment NUMERIC(24,2) NOT NULL,
    total_repayable NUMERIC(24,2) NOT NULL,
    amount_paid NUMERIC(24,2) NOT NULL DEFAULT 0,
    outstanding_balance NUMERIC(24,2) NOT NULL CHECK (outstanding_balance >= 0),
    credit_score INTEGER NOT NULL,
    status TEXT NOT NULL,
    purpose TEXT NOT NULL DEFAULT '',
    approved_by TEXT NOT NULL DEFAULT '',
    approved_at TIMESTAMPTZ,
    disbursed_at TIMESTAMPTZ,
    next_payment_date TIMESTAMPTZ,
    rejection_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS credits_user_idx ON credits (user_id, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS credits_one_pending_per_user
    ON credits (user_id) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    account_id TEXT REFERENCES savings_accounts (id),
    credit_id TEXT REFERENCES credits (id),
    type TEXT NOT NULL,
    amount NUMERIC(24,2) NOT NULL CHECK (amount > 0),
    balance_before NUMERIC(24,2),
    balance_after NUMERIC(24,2),
    status TEXT NOT NULL,
    reference TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    seq BIGSERIAL
);
CREATE UNIQUE INDEX IF NOT EXISTS ledger_entries_reference_key ON ledger_entries (reference);
CREATE INDEX IF NOT EXISTS ledger_entries_user_idx ON ledger_entries (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS credit_repayments (
    id TEXT PRIMARY KEY,
    credit_id TEXT NOT NULL REFERENCES credits (id),
    entry_id TEXT NOT NULL REFERENCES ledger_entries (id),
    amount NUMERIC(24,2) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS credit_repayments_credit_idx ON credit_repayments (credit_id);
`

// Migrate creates the ledger tables when they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the book of record in PostgreSQL.
type PostgresStore struct {
	pgReader
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgReader: pgReader{q: db}, db: db}
}

// Atomic runs fn inside a database transaction and commits when it returns nil.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, &pgTx{pgReader: pgReader{q: tx}}); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", ErrWriteConflict, pgErr.Message)
	case "23505":
		if strings.Contains(pgErr.ConstraintName, "pending") {
			return ErrPendingCreditExists
		}
		return ErrDuplicateReference
	case "23514":
		if strings.Contains(pgErr.ConstraintName, "balance") {
			return ErrInsufficientFunds
		}
	}
	return err
}

type pgReader struct {
	q querier
}

const accountColumns = `id, user_id, account_number, balance, currency, interest_rate, is_active, created_at, updated_at`

const entryColumns = `id, user_id, COALESCE(account_id, ''), COALESCE(credit_id, ''), type, amount,
    balance_before, balance_after, status, reference, description, created_at`

const creditColumns = `id, user_id, principal, interest_rate, tenure, monthly_payment, total_repayable,
    amount_paid, outstanding_balance, credit_score, status, purpose, approved_by, approved_at,
    disbursed_at, next_payment_date, rejection_reason, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.Balance, &a.Currency,
		&a.InterestRate, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	if err := row.Scan(&e.ID, &e.UserID, &e.AccountID, &e.CreditID, &e.Type, &e.Amount,
		&e.BalanceBefore, &e.BalanceAfter, &e.Status, &e.Reference, &e.Description, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func scanCredit(row pgx.Row) (Credit, error) {
	var c Credit
	if err := row.Scan(&c.ID, &c.UserID, &c.Principal, &c.InterestRate, &c.Tenure, &c.MonthlyPayment,
		&c.TotalRepayable, &c.AmountPaid, &c.OutstandingBalance, &c.CreditScore, &c.Status, &c.Purpose,
		&c.ApprovedBy, &c.ApprovedAt, &c.DisbursedAt, &c.NextPaymentDate, &c.RejectionReason,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credit{}, ErrNotFound
		}
		return Credit{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (r pgReader) Account(ctx context.Context, id string) (Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM savings_accounts WHERE id = $1`, id))
}

func (r pgReader) Accounts(ctx context.Context, filter AccountFilter) ([]Account, error) {
	rows, err := r.q.Query(ctx, `SELECT `+accountColumns+` FROM savings_accounts
        WHERE ($1 = '' OR user_id = $1)
        ORDER BY created_at DESC, account_number DESC`, filter.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r pgReader) Entry(ctx context.Context, id string) (Entry, error) {
	return scanEntry(r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id))
}

func (r pgReader) Entries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.AccountID != "" {
		add("account_id = $%d", filter.AccountID)
	}
	if filter.CreditID != "" {
		add("credit_id = $%d", filter.CreditID)
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To.UTC())
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, seq DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r pgReader) Credit(ctx context.Context, id string) (Credit, error) {
	return scanCredit(r.q.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = $1`, id))
}

func (r pgReader) Credits(ctx context.Context, filter CreditFilter) ([]Credit, int, error) {
	const where = ` WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR status = $2)`

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM credits`+where,
		filter.UserID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	var limit any
	if filter.Take > 0 {
		limit = filter.Take
	}
	rows, err := r.q.Query(ctx, `SELECT `+creditColumns+` FROM credits`+where+`
        ORDER BY created_at DESC, id DESC OFFSET $3 LIMIT $4`,
		filter.UserID, string(filter.Status), filter.Skip, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	credits := make([]Credit, 0)
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, 0, err
		}
		credits = append(credits, c)
	}
	return credits, total, rows.Err()
}

// CreditCounts counts credits per status with a single grouped query.
func (r pgReader) CreditCounts(ctx context.Context) (map[CreditStatus]int, error) {
	rows, err := r.q.Query(ctx, `SELECT status, COUNT(*) FROM credits GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[CreditStatus]int, len(CreditStatuses))
	for rows.Next() {
		var (
			status CreditStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r pgReader) Repayments(ctx context.Context, creditID string) ([]Repayment, error) {
	rows, err := r.q.Query(ctx, `SELECT id, credit_id, entry_id, amount, created_at
        FROM credit_repayments WHERE credit_id = $1 ORDER BY created_at DESC`, creditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	repayments := make([]Repayment, 0)
	for rows.Next() {
		var rp Repayment
		if err := rows.Scan(&rp.ID, &rp.CreditID, &rp.EntryID, &rp.Amount, &rp.CreatedAt); err != nil {
			return nil, err
		}
		rp.CreatedAt = rp.CreatedAt.UTC()
		repayments = append(repayments, rp)
	}
	return repayments, rows.Err()
}

type pgTx struct {
	pgReader
}

func (t *pgTx) LockAccount(ctx context.Context, id string) (Account, error) {
	return scanAccount(t.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM savings_accounts WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) InsertAccount(ctx context.Context, a Account) error {
	_, err := t.q.Exec(ctx, `INSERT INTO savings_accounts (`+accountColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.AccountNumber, a.Balance, a.Currency, a.InterestRate, a.IsActive,
		a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	return mapError(err)
}

func (t *pgTx) UpdateAccount(ctx context.Context, a Account) error {
	tag, err := t.q.Exec(ctx, `UPDATE savings_accounts
        SET balance = $2, interest_rate = $3, is_active = $4, updated_at = $5
        WHERE id = $1`, a.ID, a.Balance, a.InterestRate, a.IsActive, a.UpdatedAt.UTC())
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertEntry(ctx context.Context, e Entry) error {
	_, err := t.q.Exec(ctx, `INSERT INTO ledger_entries (id, user_id, account_id, credit_id, type, amount,
        balance_before, balance_after, status, reference, description, created_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.UserID, e.AccountID, e.CreditID, string(e.Type), e.Amount, e.BalanceBefore,
		e.BalanceAfter, string(e.Status), e.Reference, e.Description, e.CreatedAt.UTC())
	return mapError(err)
}

func (t *pgTx) LockCredit(ctx context.Context, id string) (Credit, error) {
	return scanCredit(t.q.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) InsertCredit(ctx context.Context, c Credit) error {
	_, err := t.q.Exec(ctx, `INSERT INTO credits (`+creditColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		c.ID, c.UserID, c.Principal, c.InterestRate, c.Tenure, c.MonthlyPayment, c.TotalRepayable,
		c.AmountPaid, c.OutstandingBalance, c.CreditScore, string(c.Status), c.Purpose, c.ApprovedBy,
		c.ApprovedAt, c.DisbursedAt, c.NextPaymentDate, c.RejectionReason, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return mapError(err)
}

func (t *pgTx) UpdateCredit(ctx context.Context, c Credit) error {
	tag, err := t.q.Exec(ctx, `UPDATE credits SET
        amount_paid = $2, outstanding_balance = $3, status = $4, approved_by = $5, approved_at = $6,
        disbursed_at = $7, next_payment_date = $8, rejection_reason = $9, updated_at = $10
        WHERE id = $1`,
		c.ID, c.AmountPaid, c.OutstandingBalance, string(c.Status), c.ApprovedBy, c.ApprovedAt,
		c.DisbursedAt, c.NextPaymentDate, c.RejectionReason, c.UpdatedAt.UTC())
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertRepayment(ctx context.Context, rp Repayment) error {
	_, err := t.q.Exec(ctx, `INSERT INTO credit_repayments (id, credit_id, entry_id, amount, created_at)
        VALUES ($1, $2, $3, $4, $5)`, rp.ID, rp.CreditID, rp.EntryID, rp.Amount, rp.CreatedAt.UTC())
	return mapError(err)
}

func (t *pgTx) HasPendingCredit(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (
        SELECT 1 FROM credits WHERE user_id = $1 AND status = 'PENDING')`, userID).Scan(&exists)
	return exists, err
}

func (t *pgTx) History(ctx context.Context, userID string) (History, error) {
	h := History{SavingsTotal: decimal.Zero}
	err := t.q.QueryRow(ctx, `SELECT
        (SELECT COALESCE(SUM(balance), 0) FROM savings_accounts WHERE user_id = $1),
        (SELECT COUNT(*) FROM credits WHERE user_id = $1 AND status = 'COMPLETED'),
        (SELECT COUNT(*) FROM ledger_entries WHERE user_id = $1)`, userID).
		Scan(&h.SavingsTotal, &h.CompletedCredits, &h.TransactionCount)
	return h, err
}
