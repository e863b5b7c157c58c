package workers

import (
	"context"
	"time"

	"github.com/vaultkeeper/vaultkeeper/internal/config"
	"github.com/vaultkeeper/vaultkeeper/internal/logger"
	"github.com/vaultkeeper/vaultkeeper/internal/store"
)

// RetentionSweeper permanently purges secrets that have sat in the trash
// longer than the retention window. Restore stops applying to a secret only
// once the sweeper (or an explicit purge) has removed it; until then the
// trash listing keeps showing it.
type RetentionSweeper struct {
	secrets store.SecretRepository

	retentionWindow time.Duration
	sweepInterval   time.Duration

	logger *logger.Logger
}

// NewRetentionSweeper constructs the sweeper from the workers configuration.
func NewRetentionSweeper(secrets store.SecretRepository, cfg config.Workers, logger *logger.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		secrets:         secrets,
		retentionWindow: cfg.RetentionWindow,
		sweepInterval:   cfg.SweepInterval,
		logger:          logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *RetentionSweeper) Run(ctx context.Context) {
	s.logger.Info().
		Dur("retention_window", s.retentionWindow).
		Dur("sweep_interval", s.sweepInterval).
		Msg("retention sweeper started")

	s.sweep(ctx)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retention sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RetentionSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.retentionWindow)

	purged, err := s.secrets.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Err(err).Msg("retention sweep failed")
		return
	}

	if purged > 0 {
		s.logger.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("retention sweep purged secrets")
	}
}
