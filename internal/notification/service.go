package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMessage rejects messages without a recipient or title.
var ErrInvalidMessage = errors.New("notification requires user, title and message")

// Service manages the per-user notification inbox.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds an inbox service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create stores a PENDING notification and marks it SENT.
func (s *Service) Create(ctx context.Context, message Message) (Notification, error) {
	if message.UserID == "" || message.Title == "" || message.Body == "" {
		return Notification{}, ErrInvalidMessage
	}
	channel := message.Channel
	if channel == "" {
		channel = ChannelInApp
	}
	if !channel.Valid() {
		return Notification{}, ErrInvalidMessage
	}

	n := Notification{
		ID:        uuid.NewString(),
		UserID:    message.UserID,
		Type:      channel,
		Title:     message.Title,
		Message:   message.Body,
		Metadata:  message.Metadata,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return Notification{}, err
	}

	sentAt := s.now().UTC()
	if err := s.repo.MarkSent(ctx, n.ID, sentAt); err != nil {
		return Notification{}, err
	}
	n.Status = StatusSent
	n.SentAt = &sentAt
	return n, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Notification, error) {
	return s.repo.List(ctx, userID, filter)
}

// Get returns one notification owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Notification, error) {
	return s.repo.Get(ctx, userID, id)
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	return s.repo.MarkRead(ctx, userID, id, s.now())
}

// MarkAllRead flags all unread notifications of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

// Delete removes a notification.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// UnreadCount reports how many notifications the user has not read.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
