package mysql

import (
	"context"
	"database/sql"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

// WatchlistStore implements domain.WatchlistStore on MySQL. The
// (user_id, auction_id) unique key turns duplicate watches into ErrConflict.
type WatchlistStore struct {
	db *sql.DB
}

func NewWatchlistStore(db *sql.DB) *WatchlistStore {
	return &WatchlistStore{db: db}
}

func (s *WatchlistStore) AddWatch(ctx context.Context, item *domain.WatchlistItem) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO watchlist (id, user_id, auction_id, created_at)
        VALUES (?, ?, ?, ?)`,
		item.ID, item.UserID, item.AuctionID, item.CreatedAt)
	if isDuplicateKey(err) {
		return domain.ErrConflict
	}
	return wrapErr(err)
}

func (s *WatchlistStore) RemoveWatch(ctx context.Context, userID, auctionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE user_id = ? AND auction_id = ?`,
		userID, auctionID)
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

func (s *WatchlistStore) ListWatchedAuctions(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT auction_id FROM watchlist
        WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	return collectIDs(rows)
}

func (s *WatchlistStore) ListWatchers(ctx context.Context, auctionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM watchlist WHERE auction_id = ?`, auctionID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	return collectIDs(rows)
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(err)
		}
		ids = append(ids, id)
	}
	return ids, wrapErr(rows.Err())
}
