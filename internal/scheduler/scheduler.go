package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs a function on a fixed interval. The decay sweep is wired
// through this instead of a framework job runner so tests and operators
// can trigger runs directly.
type Scheduler interface {
	Schedule(interval time.Duration, fn func(ctx context.Context))
	Stop()
}

type tickerScheduler struct {
	logger zerolog.Logger

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

func New(logger zerolog.Logger) Scheduler {
	return &tickerScheduler{logger: logger}
}

func (s *tickerScheduler) Schedule(interval time.Duration, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancels = append(s.cancels, cancel)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", interval).Msg("scheduled job started")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

func (s *tickerScheduler) Stop() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.mu.Unlock()
	s.wg.Wait()
}
