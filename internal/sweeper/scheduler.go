package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler owns the wall-clock timing of the sweeper. Sweeps run
// sequentially in a single goroutine, so ticks never overlap.
type Scheduler struct {
	sweeper  *Sweeper
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler that invokes the sweeper at the given
// interval.
func NewScheduler(s *Sweeper, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  s,
		interval: interval,
		log:      log,
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
func (sc *Scheduler) Start(ctx context.Context) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	sc.cancel = cancel
	sc.done = make(chan struct{})

	go sc.run(loopCtx, sc.done)
	sc.log.Info("sweep scheduler started", zap.Duration("interval", sc.interval))
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	cancel, done := sc.cancel, sc.done
	sc.cancel, sc.done = nil, nil
	sc.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	sc.log.Info("sweep scheduler stopped")
}

func (sc *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	sc.sweeper.Sweep(ctx)

	timer := time.NewTimer(sc.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			sc.sweeper.Sweep(ctx)
			timer.Reset(sc.interval)
		}
	}
}
