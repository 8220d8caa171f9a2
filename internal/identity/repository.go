package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned when the email or phone is already registered.
	ErrAlreadyExists = errors.New("user already exists")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, user User) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Counts(ctx context.Context) (Counts, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash BYTEA NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL,
    status TEXT NOT NULL,
    kyc_verified BOOLEAN NOT NULL DEFAULT FALSE,
    token_version INTEGER NOT NULL DEFAULT 0,
    last_login_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_phone_unique ON users (phone) WHERE phone <> '';
`

// Migrate creates the users table when missing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, status,
    kyc_verified, token_version, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Phone, &user.Role, &user.Status, &user.KYCVerified, &user.TokenVersion,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Phone,
		user.Role, user.Status, user.KYCVerified, user.TokenVersion, user.LastLoginAt,
		user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return mapWriteError(err)
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByID fetches a user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// Update stores the mutable fields of user.
func (r *PostgresRepository) Update(ctx context.Context, user User) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, first_name = $3, last_name = $4,
        phone = $5, status = $6, kyc_verified = $7, last_login_at = $8, updated_at = $9
        WHERE id = $1`,
		user.ID, user.PasswordHash, user.FirstName, user.LastName, user.Phone, user.Status,
		user.KYCVerified, user.LastLoginAt, user.UpdatedAt.UTC())
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTokenVersion stores the user's token version.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns matching customers newest first and the total match count.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	where := `WHERE role = 'CUSTOMER'`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where += ` AND (LOWER(email) LIKE $1 OR LOWER(first_name) LIKE $1
            OR LOWER(last_name) LIKE $1 OR LOWER(phone) LIKE $1)`
	}
	if !filter.JoinedFrom.IsZero() {
		args = append(args, filter.JoinedFrom.UTC())
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ` + where + ` ORDER BY created_at DESC`
	args = append(args, filter.Skip)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))
	if filter.Take > 0 {
		args = append(args, filter.Take)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// Counts returns customer totals per status.
func (r *PostgresRepository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRow(ctx, `SELECT COUNT(*),
            COUNT(*) FILTER (WHERE status = 'ACTIVE'),
            COUNT(*) FILTER (WHERE status = 'SUSPENDED'),
            COUNT(*) FILTER (WHERE status = 'CLOSED')
        FROM users WHERE role = 'CUSTOMER'`).Scan(&c.Total, &c.Active, &c.Suspended, &c.Closed)
	return c, err
}
