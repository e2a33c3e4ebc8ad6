package office

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically asks the office to release stale bookings.
type Sweeper struct {
	office   *Office
	logger   zerolog.Logger
	interval time.Duration
}

func NewSweeper(o *Office, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		office:   o,
		interval: interval,
		logger:   logger,
	}
}

// Start sweeps every interval until ctx is canceled, then returns nil.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug().Dur("interval", s.interval).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Msg("sweeper stopped")
			return nil
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

func (s *Sweeper) RunOnce() int {
	released := s.office.Sweep(s.office.settings.clock.Now())
	if released > 0 {
		s.logger.Debug().Int("released", released).Msg("sweep complete")
	}
	return released
}
