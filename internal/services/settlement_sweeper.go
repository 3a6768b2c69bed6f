package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/galvin1912/auction-web-app/internal/domain"
	"github.com/galvin1912/auction-web-app/pkg/logger"
)

// SettlementSweeper periodically settles expired auctions that are still
// active. The sweep is gated by leader election so only one instance of a
// multi-instance deployment runs it; lazy settlement on the read paths covers
// the gap if no leader is up.
type SettlementSweeper struct {
	bidding        *BiddingService
	leaderElection domain.LeaderElection
	instanceID     string
	interval       time.Duration
	cron           *cron.Cron
	log            logger.Logger
}

func NewSettlementSweeper(
	bidding *BiddingService,
	leaderElection domain.LeaderElection,
	instanceID string,
	interval time.Duration,
	log logger.Logger,
) *SettlementSweeper {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SettlementSweeper{
		bidding:        bidding,
		leaderElection: leaderElection,
		instanceID:     instanceID,
		interval:       interval,
		cron:           cron.New(cron.WithSeconds()),
		log:            log,
	}
}

func (s *SettlementSweeper) Start(ctx context.Context) error {
	s.log.Info("Starting settlement sweeper", "interval", s.interval)

	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *SettlementSweeper) Stop() error {
	s.log.Info("Stopping settlement sweeper")
	s.cron.Stop()
	return nil
}

func (s *SettlementSweeper) sweep(ctx context.Context) {
	if s.leaderElection != nil {
		isLeader, err := s.leaderElection.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Leader check failed", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	settled, err := s.bidding.SettleExpired(ctx)
	if err != nil {
		s.log.Error("Settlement sweep failed", "error", err)
		return
	}

	if settled > 0 {
		s.log.Info("Settlement sweep finished", "settled", settled)
	}
}
