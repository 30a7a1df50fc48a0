package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ClickPurger deletes click rows older than a cutoff.
type ClickPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweeper removes clicks that fell out of the retention window.
type RetentionSweeper struct {
	purger    ClickPurger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewRetentionSweeper(purger ClickPurger, retention, interval time.Duration) *RetentionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionSweeper{purger: purger, retention: retention, interval: interval, now: time.Now}
}

// Sweep runs one purge pass. A zero retention keeps clicks forever.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.retention)
	n, err := s.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("purged expired clicks")
	}
	return n, nil
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("click retention sweep failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
