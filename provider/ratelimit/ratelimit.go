package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxFailDoublings caps the per-symbol interval multiplier at 2^6.
const maxFailDoublings = 6

type SnapshotLimiterConfig struct {
	// MinInterval is the minimum spacing between snapshot requests for
	// one symbol. Doubled per consecutive failure of that symbol.
	MinInterval time.Duration

	// WeightBudget is the exchange's rate-limit weight allowance per
	// WeightWindow, shared by all symbols.
	WeightBudget int
	WeightWindow time.Duration
}

func (c SnapshotLimiterConfig) withDefaults() SnapshotLimiterConfig {
	if c.MinInterval <= 0 {
		c.MinInterval = 5 * time.Second
	}
	if c.WeightBudget <= 0 {
		c.WeightBudget = 1200
	}
	if c.WeightWindow <= 0 {
		c.WeightWindow = time.Minute
	}

	return c
}

// SnapshotLimiter paces snapshot fetches: a per-symbol minimum
// interval plus a global rolling weight budget. Callers are delayed,
// never rejected. The mutex is only held for bookkeeping, all waiting
// happens outside it.
type SnapshotLimiter struct {
	cfg SnapshotLimiterConfig

	mu          sync.Mutex
	lastRequest map[string]time.Time
	failStreak  map[string]int
	weightUsed  int
	windowStart time.Time
}

func NewSnapshotLimiter(cfg SnapshotLimiterConfig) *SnapshotLimiter {
	return &SnapshotLimiter{
		cfg:         cfg.withDefaults(),
		lastRequest: make(map[string]time.Time),
		failStreak:  make(map[string]int),
		windowStart: time.Now(),
	}
}

// Acquire blocks until a request for symbol may go out and charges
// weight against the rolling budget.
func (l *SnapshotLimiter) Acquire(ctx context.Context, symbol string, weight int) error {
	for {
		wait, ok := l.tryReserve(symbol, weight)
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *SnapshotLimiter) tryReserve(symbol string, weight int) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.windowStart) >= l.cfg.WeightWindow {
		l.windowStart = now
		l.weightUsed = 0
	}

	var wait time.Duration
	if last, ok := l.lastRequest[symbol]; ok {
		interval := l.cfg.MinInterval << l.failStreak[symbol]
		if until := last.Add(interval).Sub(now); until > wait {
			wait = until
		}
	}

	if l.weightUsed+weight > l.cfg.WeightBudget {
		if until := l.windowStart.Add(l.cfg.WeightWindow).Sub(now); until > wait {
			wait = until
		}
	}

	if wait > 0 {
		return wait, false
	}

	l.weightUsed += weight
	l.lastRequest[symbol] = now
	return 0, true
}

// ReportResult feeds the failure multiplier: consecutive failed
// fetches stretch that symbol's interval, a success restores it.
func (l *SnapshotLimiter) ReportResult(symbol string, succeeded bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if succeeded {
		delete(l.failStreak, symbol)
		return
	}

	if l.failStreak[symbol] < maxFailDoublings {
		l.failStreak[symbol]++
	}
}
