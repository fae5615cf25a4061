package reservation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically expires stale holds as a safety net for spaces that
// see no new reservation traffic. The scoped sweep inside CreateReservation
// remains the primary expiry mechanism.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// DefaultSweepInterval balances expiry precision against scan load.
const DefaultSweepInterval = time.Minute

// NewSweeper builds a Sweeper over the reservation service.
func NewSweeper(service *Service, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (sweeper *Sweeper) Start(ctx context.Context) {
	sweeper.logger.Info("starting reservation sweeper", zap.Duration("interval", sweeper.interval))
	go sweeper.run(ctx)
}

// Stop terminates the sweep loop.
func (sweeper *Sweeper) Stop() {
	close(sweeper.stopChan)
}

func (sweeper *Sweeper) run(ctx context.Context) {
	sweeper.sweep(ctx)

	ticker := time.NewTicker(sweeper.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweeper.sweep(ctx)
		case <-sweeper.stopChan:
			sweeper.logger.Info("reservation sweeper stopped")
			return
		case <-ctx.Done():
			sweeper.logger.Info("reservation sweeper cancelled")
			return
		}
	}
}

func (sweeper *Sweeper) sweep(ctx context.Context) {
	expired, err := sweeper.service.SweepExpired(ctx)
	if err != nil {
		sweeper.logger.Error("reservation sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		sweeper.logger.Info("reservation sweep expired holds", zap.Int64("count", expired))
	}
}
