package memory

import (
	"context"
	"sync"

	"github.com/galvin1912/auction-web-app/internal/domain"
)

// WatchlistStore is the in-memory domain.WatchlistStore.
type WatchlistStore struct {
	mu    sync.RWMutex
	items map[string]map[string]*domain.WatchlistItem // userID -> auctionID -> item
}

func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{
		items: make(map[string]map[string]*domain.WatchlistItem),
	}
}

func (s *WatchlistStore) AddWatch(ctx context.Context, item *domain.WatchlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items[item.UserID] == nil {
		s.items[item.UserID] = make(map[string]*domain.WatchlistItem)
	}
	if _, exists := s.items[item.UserID][item.AuctionID]; exists {
		return domain.ErrConflict
	}

	stored := *item
	s.items[item.UserID][item.AuctionID] = &stored
	return nil
}

func (s *WatchlistStore) RemoveWatch(ctx context.Context, userID, auctionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userItems, ok := s.items[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := userItems[auctionID]; !ok {
		return domain.ErrNotFound
	}

	delete(userItems, auctionID)
	if len(userItems) == 0 {
		delete(s.items, userID)
	}
	return nil
}

func (s *WatchlistStore) ListWatchedAuctions(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var auctionIDs []string
	for auctionID := range s.items[userID] {
		auctionIDs = append(auctionIDs, auctionID)
	}
	return auctionIDs, nil
}

func (s *WatchlistStore) ListWatchers(ctx context.Context, auctionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var userIDs []string
	for userID, userItems := range s.items {
		if _, ok := userItems[auctionID]; ok {
			userIDs = append(userIDs, userID)
		}
	}
	return userIDs, nil
}
