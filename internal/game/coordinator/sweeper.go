package coordinator

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically reclaims rooms idle beyond the configured
// threshold. It guards against rooms that never receive a clean
// disconnect signal, independent of the disconnect-grace path.
//
// Sweeper implements server.Service.
type Sweeper struct {
	coord    *Coordinator
	interval time.Duration
	logger   *zap.Logger

	quit chan struct{}
	once sync.Once
}

// NewSweeper creates a stopped Sweeper.
//
// Precondition: coord and logger must be non-nil; interval > 0. Panics
// on a non-positive interval.
func NewSweeper(coord *Coordinator, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		panic("coordinator: NewSweeper called with interval <= 0")
	}
	return &Sweeper{
		coord:    coord,
		interval: interval,
		logger:   logger,
		quit:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. Blocks.
//
// Postcondition: SweepIdle has run at most once per interval.
func (s *Sweeper) Start() error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("idle sweeper started",
		zap.Duration("interval", s.interval),
	)

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			reclaimed := s.coord.SweepIdle()
			if reclaimed > 0 {
				s.logger.Info("idle sweep complete",
					zap.Int("reclaimed", reclaimed),
					zap.Int("remaining", s.coord.RoomCount()),
					zap.Duration("elapsed", time.Since(start)),
				)
			}
		case <-s.quit:
			return nil
		}
	}
}

// Stop terminates the sweep loop. Idempotent.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.quit) })
}
