package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

// NotificationStore is the in-memory domain.NotificationStore.
type NotificationStore struct {
	mu     sync.RWMutex
	byUser map[string][]*domain.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		byUser: make(map[string][]*domain.Notification),
	}
}

func (s *NotificationStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *n
	s.byUser[n.UserID] = append(s.byUser[n.UserID], &stored)
	return nil
}

func (s *NotificationStore) ListNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notifications := make([]*domain.Notification, 0, len(s.byUser[userID]))
	for _, n := range s.byUser[userID] {
		copied := *n
		notifications = append(notifications, &copied)
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	if limit > 0 && limit < len(notifications) {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.byUser[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, notificationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		if n.ID == notificationID {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		n.Read = true
	}
	return nil
}
