package notification

import (
	"context"
	"errors"
	"log/slog"
)

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger without storing them. It
// stands in for the email and SMS transports, which are never called.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	channel := message.Channel
	if channel == "" {
		channel = ChannelInApp
	}
	n.logger.Info("notification", "kind", message.Kind, "user_id", message.UserID,
		"channel", string(channel), "title", message.Title)
	return nil
}

// InboxNotifier stores each message in the user's inbox. No transport exists, so
// stored notifications are marked SENT straight away.
type InboxNotifier struct {
	service *Service
	logger  *slog.Logger
}

// NewInboxNotifier builds a notifier backed by the inbox service.
func NewInboxNotifier(service *Service, logger *slog.Logger) *InboxNotifier {
	return &InboxNotifier{service: service, logger: logger}
}

// Send stores the message and marks it sent.
func (n *InboxNotifier) Send(ctx context.Context, message Message) error {
	stored, err := n.service.Create(ctx, message)
	if err != nil {
		return err
	}
	if n.logger != nil {
		n.logger.Info("notification stored", "id", stored.ID, "kind", message.Kind, "user_id", message.UserID)
	}
	return nil
}

// Fanout sends every message to each notifier in order and joins their errors.
type Fanout []Notifier

// Send implements Notifier.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range f {
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
