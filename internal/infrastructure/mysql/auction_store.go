package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

// AuctionStore implements domain.AuctionStore on MySQL. The conditional
// updates in AcceptBid / MarkEnded / MarkCancelled are what serialize
// concurrent writers per auction: a guard that matches zero rows means the
// caller lost the race and gets domain.ErrConflict.
type AuctionStore struct {
	db *sql.DB
}

func NewAuctionStore(db *sql.DB) *AuctionStore {
	return &AuctionStore{db: db}
}

func (s *AuctionStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions
            (id, title, description, seller_id, category, starting_price,
             current_price, reserve_price, end_time, status, winner_id,
             created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		auction.ID, auction.Title, auction.Description, auction.SellerID,
		auction.Category, auction.StartingPrice, auction.CurrentPrice,
		auction.ReservePrice, auction.EndTime, int(auction.Status),
		nullableString(auction.WinnerID), auction.CreatedAt, auction.UpdatedAt)
	if isDuplicateKey(err) {
		return domain.ErrConflict
	}
	return wrapErr(err)
}

const auctionColumns = `
    id, title, description, seller_id, category, starting_price,
    current_price, reserve_price, end_time, status, winner_id,
    created_at, updated_at`

func (s *AuctionStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`
	return scanAuction(s.db.QueryRowContext(ctx, query, auctionID))
}

func (s *AuctionStore) ListActiveAuctions(ctx context.Context, filters domain.AuctionFilters) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = ?`
	args := []interface{}{int(domain.AuctionActive)}

	if filters.Search != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filters.Category != "" {
		query += ` AND category = ?`
		args = append(args, filters.Category)
	}
	if filters.MinPrice > 0 {
		query += ` AND current_price >= ?`
		args = append(args, filters.MinPrice)
	}
	if filters.MaxPrice > 0 {
		query += ` AND current_price <= ?`
		args = append(args, filters.MaxPrice)
	}

	query += ` ORDER BY ` + sortColumn(filters.SortBy)
	if filters.SortDesc {
		query += ` DESC`
	}
	if filters.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filters.Limit)
		if filters.Offset > 0 {
			query += fmt.Sprintf(` OFFSET %d`, filters.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	return collectAuctions(rows)
}

func (s *AuctionStore) ListExpiredActive(ctx context.Context, before time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = ? AND end_time <= ?`

	rows, err := s.db.QueryContext(ctx, query, int(domain.AuctionActive), before)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	return collectAuctions(rows)
}

func (s *AuctionStore) AcceptBid(ctx context.Context, auctionID string, expectedPrice float64, bid *domain.Bid) (*domain.Bid, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer tx.Rollback()

	// The price guard makes the whole check-then-act atomic: if another bid
	// committed since the caller read the auction, zero rows match.
	res, err := tx.ExecContext(ctx, `
        UPDATE auctions SET current_price = ?, updated_at = ?
        WHERE id = ? AND status = ? AND current_price = ?`,
		bid.Amount, bid.CreatedAt, auctionID, int(domain.AuctionActive), expectedPrice)
	if err != nil {
		return nil, wrapErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, wrapErr(err)
	}
	if affected == 0 {
		return nil, domain.ErrConflict
	}

	var previous *domain.Bid
	row := tx.QueryRowContext(ctx, `
        SELECT id, auction_id, bidder_id, amount, status, created_at
        FROM bids WHERE auction_id = ? AND status = ? FOR UPDATE`,
		auctionID, string(domain.BidWinning))

	prev, err := scanBid(row)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// First bid on the auction.
	case err != nil:
		return nil, err
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE bids SET status = ? WHERE id = ?`,
			string(domain.BidOutbid), prev.ID); err != nil {
			return nil, wrapErr(err)
		}
		previous = prev
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO bids (id, auction_id, bidder_id, amount, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount,
		string(bid.Status), bid.CreatedAt); err != nil {
		return nil, wrapErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapErr(err)
	}
	return previous, nil
}

func (s *AuctionStore) MarkEnded(ctx context.Context, auctionID string) error {
	return s.transition(ctx, auctionID, domain.AuctionEnded)
}

func (s *AuctionStore) MarkCancelled(ctx context.Context, auctionID string) error {
	return s.transition(ctx, auctionID, domain.AuctionCancelled)
}

func (s *AuctionStore) transition(ctx context.Context, auctionID string, to domain.AuctionStatus) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE auctions SET status = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		int(to), time.Now().UTC(), auctionID, int(domain.AuctionActive))
	if err != nil {
		return wrapErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if affected == 0 {
		// Missing row and lost race look identical here; tell them apart.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM auctions WHERE id = ?`, auctionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return wrapErr(err)
		}
		return domain.ErrConflict
	}
	return nil
}

func (s *AuctionStore) SetWinner(ctx context.Context, auctionID, winnerID string) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE auctions SET winner_id = ?, updated_at = ? WHERE id = ?`,
		winnerID, time.Now().UTC(), auctionID)
	return wrapErr(err)
}

func (s *AuctionStore) GetWinningBid(ctx context.Context, auctionID string) (*domain.Bid, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, auction_id, bidder_id, amount, status, created_at
        FROM bids WHERE auction_id = ? AND status = ?`,
		auctionID, string(domain.BidWinning))
	return scanBid(row)
}

func (s *AuctionStore) UpdateBidStatus(ctx context.Context, bidID string, status domain.BidStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bids SET status = ? WHERE id = ?`, string(status), bidID)
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

func (s *AuctionStore) FinalizeLosingBids(ctx context.Context, auctionID, excludeBidID string) error {
	query := `UPDATE bids SET status = ? WHERE auction_id = ? AND status IN (?, ?)`
	args := []interface{}{
		string(domain.BidLost), auctionID,
		string(domain.BidWinning), string(domain.BidOutbid),
	}
	if excludeBidID != "" {
		query += ` AND id != ?`
		args = append(args, excludeBidID)
	}

	_, err := s.db.ExecContext(ctx, query, args...)
	return wrapErr(err)
}

func (s *AuctionStore) ListBidsForAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, auction_id, bidder_id, amount, status, created_at
        FROM bids WHERE auction_id = ?
        ORDER BY amount DESC`, auctionID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	return collectBids(rows)
}

func (s *AuctionStore) ListBidsForBidder(ctx context.Context, bidderID string) ([]*domain.Bid, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, auction_id, bidder_id, amount, status, created_at
        FROM bids WHERE bidder_id = ?
        ORDER BY created_at DESC`, bidderID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	return collectBids(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status int
	var winnerID sql.NullString

	err := row.Scan(
		&auction.ID, &auction.Title, &auction.Description, &auction.SellerID,
		&auction.Category, &auction.StartingPrice, &auction.CurrentPrice,
		&auction.ReservePrice, &auction.EndTime, &status, &winnerID,
		&auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}

	auction.Status = domain.AuctionStatus(status)
	auction.WinnerID = winnerID.String
	return &auction, nil
}

func collectAuctions(rows *sql.Rows) ([]*domain.Auction, error) {
	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}
	return auctions, wrapErr(rows.Err())
}

func scanBid(row rowScanner) (*domain.Bid, error) {
	var bid domain.Bid
	var status string

	err := row.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID,
		&bid.Amount, &status, &bid.CreatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}

	bid.Status = domain.BidStatus(status)
	return &bid, nil
}

func collectBids(rows *sql.Rows) ([]*domain.Bid, error) {
	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, wrapErr(rows.Err())
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "end_time", "current_price", "title", "created_at":
		return sortBy
	default:
		return "created_at"
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// wrapErr maps driver errors onto the store's error taxonomy.
func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(err.Error(), "connection refused"):
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	default:
		return err
	}
}
