package services

import (
	"context"
	"fmt"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

const defaultNotificationLimit = 50

// NotificationService is the read/ack surface over stored notifications.
// Rows are written by the EventListener as events arrive.
type NotificationService struct {
	store domain.NotificationStore
}

func NewNotificationService(store domain.NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return s.store.ListNotifications(ctx, userID, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	return s.store.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	if notificationID == "" || userID == "" {
		return fmt.Errorf("%w: notification and user are required", ErrInvalidInput)
	}
	return s.store.MarkRead(ctx, notificationID, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	return s.store.MarkAllRead(ctx, userID)
}
