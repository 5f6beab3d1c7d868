package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func RunSweeper(ctx context.Context, challenges ChallengeService, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		log.Info("Challenge sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Challenge sweeper started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("Challenge sweeper stopped")
			return
		case <-ticker.C:
			// errors are logged by the service; keep sweeping
			_, _ = challenges.SweepExpired(ctx)
		}
	}
}
