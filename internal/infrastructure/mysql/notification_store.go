package mysql

import (
	"context"
	"database/sql"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

// NotificationStore implements domain.NotificationStore on MySQL.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO notifications
            (id, user_id, auction_id, type, title, message, is_read, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, nullableString(n.AuctionID), n.Type,
		n.Title, n.Message, n.Read, n.CreatedAt)
	return wrapErr(err)
}

func (s *NotificationStore) ListNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, auction_id, type, title, message, is_read, created_at
        FROM notifications
        WHERE user_id = ?
        ORDER BY created_at DESC
        LIMIT ?`, userID, limit)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var auctionID sql.NullString

		if err := rows.Scan(&n.ID, &n.UserID, &auctionID, &n.Type,
			&n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, wrapErr(err)
		}

		n.AuctionID = auctionID.String
		notifications = append(notifications, &n)
	}

	return notifications, wrapErr(rows.Err())
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM notifications
        WHERE user_id = ? AND is_read = FALSE`, userID).Scan(&count)
	return count, wrapErr(err)
}

func (s *NotificationStore) MarkRead(ctx context.Context, notificationID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE notifications SET is_read = TRUE
        WHERE id = ? AND user_id = ?`, notificationID, userID)
	if err != nil {
		return wrapErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE notifications SET is_read = TRUE
        WHERE user_id = ? AND is_read = FALSE`, userID)
	return wrapErr(err)
}
