package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultReapInterval = 5 * time.Minute
	DefaultBikeMaxAge   = 30 * time.Minute
)

type inactiveReaper interface {
	ReapInactive(maxAge time.Duration) []string
}

// Reaper periodically evicts bikes that stopped reporting.
type Reaper struct {
	target   inactiveReaper
	interval time.Duration
	maxAge   time.Duration
	logger   *zap.Logger
}

func NewReaper(target inactiveReaper, interval, maxAge time.Duration, logger *zap.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultBikeMaxAge
	}
	return &Reaper{target: target, interval: interval, maxAge: maxAge, logger: logger}
}

// Run sweeps every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Reaper) Sweep() int {
	ids := r.target.ReapInactive(r.maxAge)
	if len(ids) > 0 {
		r.logger.Info("cleaned up inactive bikes",
			zap.Int("count", len(ids)),
			zap.Strings("bike_ids", ids),
			zap.Duration("max_age", r.maxAge))
	}
	return len(ids)
}
