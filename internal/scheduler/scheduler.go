package scheduler

import (
	"context"
	"time"

	"crypto-tracker/internal/logging"
	"crypto-tracker/internal/pipeline"
)

// Runner is one unit of scheduled work.
type Runner interface {
	Run(ctx context.Context) pipeline.Result
}

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds the ticker for a given interval.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Scheduler runs a job immediately and then once per interval. Runs never
// overlap: ticks that arrive while a job is running are dropped by the
// underlying ticker.
type Scheduler struct {
	interval  time.Duration
	runner    Runner
	logger    *logging.Logger
	newTicker TickerFactory
}

type Option func(*Scheduler)

// WithTickerFactory replaces time.NewTicker, mainly for tests.
func WithTickerFactory(f TickerFactory) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.newTicker = f
		}
	}
}

func New(interval time.Duration, runner Runner, logger *logging.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval:  interval,
		runner:    runner,
		logger:    logger,
		newTicker: NewTimeTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled and returns the number of runs started.
func (s *Scheduler) Run(ctx context.Context) int {
	runs := 0
	if ctx.Err() != nil {
		return runs
	}

	// First run happens before the first tick so the sheet has data right away.
	s.runner.Run(ctx)
	runs++

	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler started, interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped after %d run(s)", runs)
			return runs
		case <-ticker.C():
			if ctx.Err() != nil {
				continue
			}
			s.runner.Run(ctx)
			runs++
		}
	}
}
