package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

type NotificationService interface {
	// Notify persists one notification per recipient and pushes the
	// record to any live websocket subscribers.
	Notify(ctx context.Context, recipients []string, subject, message string) error
	List(ctx context.Context, recipient string, unreadOnly bool, limit int64) ([]Notification, error)
	UnreadCount(ctx context.Context, recipient string) (int64, error)
	MarkRead(ctx context.Context, recipient, id string) error
	MarkAllRead(ctx context.Context, recipient string) error
}

type NotificationServiceImpl struct {
	Repo   NotificationRepository
	Hub    *Hub
	Logger *zap.Logger
}

func NewNotificationService(repo NotificationRepository, hub *Hub, logger *zap.Logger) NotificationService {
	return &NotificationServiceImpl{
		Repo:   repo,
		Hub:    hub,
		Logger: logger,
	}
}

func (s *NotificationServiceImpl) Notify(ctx context.Context, recipients []string, subject, message string) error {
	if subject == "" {
		return fmt.Errorf("notification subject is required")
	}

	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		notif := &Notification{
			Recipient: recipient,
			Subject:   subject,
			Message:   message,
		}
		if err := s.Repo.Create(ctx, notif); err != nil {
			return fmt.Errorf("failed to store notification for %s: %w", recipient, err)
		}

		payload, err := json.Marshal(notif)
		if err != nil {
			s.Logger.Warn("failed to encode notification for push",
				zap.String("recipient", recipient), zap.Error(err))
			continue
		}
		s.Hub.Push(recipient, payload)
	}
	return nil
}

func (s *NotificationServiceImpl) List(ctx context.Context, recipient string, unreadOnly bool, limit int64) ([]Notification, error) {
	return s.Repo.ListByRecipient(ctx, recipient, unreadOnly, limit)
}

func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	return s.Repo.CountUnread(ctx, recipient)
}

func (s *NotificationServiceImpl) MarkRead(ctx context.Context, recipient, id string) error {
	notif, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("notification not found: %w", err)
	}
	if notif.Recipient != recipient {
		return fmt.Errorf("notification does not belong to user")
	}
	return s.Repo.MarkRead(ctx, id)
}

func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, recipient string) error {
	return s.Repo.MarkAllRead(ctx, recipient)
}
