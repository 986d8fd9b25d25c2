package schedule

import (
	"context"
	"sync"
	"time"

	"streamcast/internal/core/ports"

	"go.uber.org/zap"
)

// TimerRunner defers callbacks with per-key one-shot timers. It fires
// at or after the requested time, never early; re-scheduling a key
// replaces the pending job. A fire time in the past fires immediately.
type TimerRunner struct {
	logger *zap.SugaredLogger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func NewTimerRunner(logger *zap.SugaredLogger) *TimerRunner {
	return &TimerRunner{
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

var _ ports.DeferredRunner = (*TimerRunner)(nil)

func (r *TimerRunner) Schedule(key string, fireAt time.Time, fn func(context.Context)) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return key
	}

	if prev, ok := r.pending[key]; ok {
		prev.Stop()
		r.logger.Infow("replaced pending job", "key", key)
	}

	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}

	r.pending[key] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()

		fn(context.Background())
	})
	return key
}

func (r *TimerRunner) Cancel(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer, ok := r.pending[key]
	if !ok {
		return false
	}
	delete(r.pending, key)
	return timer.Stop()
}

// Close cancels every pending job.
func (r *TimerRunner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for key, timer := range r.pending {
		timer.Stop()
		delete(r.pending, key)
	}
}
