package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a notification does not exist for the user.
var ErrNotFound = errors.New("notification not found")

// Repository persists inbox notifications. Lookups are scoped to the owner.
type Repository interface {
	Create(ctx context.Context, n Notification) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	Get(ctx context.Context, userID, id string) (Notification, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) (Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	Delete(ctx context.Context, userID, id string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    status TEXT NOT NULL,
    sent_at TIMESTAMPTZ,
    read_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);
`

// Migrate creates the notifications table when missing.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate notifications: %w", err)
	}
	return nil
}

// PostgresRepository stores notifications in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const columns = `id, user_id, type, title, message, metadata, status, sent_at, read_at, created_at`

func scan(row pgx.Row) (Notification, error) {
	var n Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Metadata,
		&n.Status, &n.SentAt, &n.ReadAt, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return n, nil
}

// Create inserts a notification.
func (r *PostgresRepository) Create(ctx context.Context, n Notification) error {
	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	_, err := r.db.Exec(ctx, `INSERT INTO notifications (`+columns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, metadata, string(n.Status),
		n.SentAt, n.ReadAt, n.CreatedAt.UTC())
	return err
}

// MarkSent flags a notification as delivered.
func (r *PostgresRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET status = $2, sent_at = $3 WHERE id = $1`,
		id, string(StatusSent), at.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches one notification owned by userID.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (Notification, error) {
	return scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM notifications WHERE id = $1 AND user_id = $2`, id, userID))
}

// List returns the user's notifications, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string, filter ListFilter) ([]Notification, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.UnreadOnly {
		where = append(where, "read_at IS NULL")
	}
	args = append(args, limitOrDefault(filter.Limit))
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		columns, strings.Join(where, " AND "), len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification read and returns the updated row.
func (r *PostgresRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) (Notification, error) {
	return scan(r.db.QueryRow(ctx, `UPDATE notifications SET status = $3, read_at = $4
        WHERE id = $1 AND user_id = $2 RETURNING `+columns, id, userID, string(StatusRead), at.UTC()))
}

// MarkAllRead flags every unread notification of the user as read.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET status = $2, read_at = $3
        WHERE user_id = $1 AND read_at IS NULL`, userID, string(StatusRead), at.UTC())
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

// Delete removes a notification owned by userID.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UnreadCount counts notifications the user has not read yet.
func (r *PostgresRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&count)
	return count, err
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
