package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpirySweeper periodically deletes expired cart positions. It runs as an
// independent process and never holds allocation locks: expiry exclusion is
// time-based, so a position past its timestamp is already invisible to the
// quota ledger.
type ExpirySweeper struct {
	carts    *CartService
	interval time.Duration
	logger   *zap.Logger
}

const defaultSweepInterval = time.Minute

func NewExpirySweeper(carts *CartService, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpirySweeper{carts: carts, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.carts.ExpireSweep(ctx)
			if err != nil {
				s.logger.Error("expiry sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				s.logger.Info("expired cart positions released", zap.Int("count", deleted))
			}
		}
	}
}
