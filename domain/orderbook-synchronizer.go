package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"

	promclient "github.com/spooky-finn/go-orderbook-sync/infrastructure/prometheus"
)

// inboundBufferSize absorbs frames arriving while the loop is blocked
// in a snapshot fetch. Frames dropped on overflow leave a hole in the
// update ids; sequence validation on apply and on buffer replay turns
// that hole into a resync, so nothing is silently lost.
const inboundBufferSize = 2048

type SynchronizerConfig struct {
	// DepthLimit is the snapshot depth requested from the exchange and
	// the depth of emitted views. Zero means exchange default / full.
	DepthLimit int

	// SnapshotInterval is the periodic best-effort refresh cadence
	// while synced.
	SnapshotInterval time.Duration

	FetchTimeout  time.Duration
	MaxErrorCount int

	BackoffMin time.Duration
	BackoffMax time.Duration
}

func (c SynchronizerConfig) withDefaults() SynchronizerConfig {
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = 30 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.MaxErrorCount <= 0 {
		c.MaxErrorCount = 5
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Minute
	}

	return c
}

// Synchronizer owns one symbol's SyncState and runs its sync state
// machine: Unsynced -> Syncing -> Synced, back to Unsynced on a gap.
// All state mutation happens on the run goroutine; the mutex only
// makes manager-side reads safe.
type Synchronizer struct {
	cfg      SynchronizerConfig
	adapter  ExchangeAdapter
	counters *Counters
	books    chan<- *OrderBookView

	mu    sync.RWMutex
	state *SyncState

	retry   *backoff.Backoff
	inbound chan []byte
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *logrus.Entry
}

func NewSynchronizer(
	adapter ExchangeAdapter,
	symbol *MarketSymbol,
	cfg SynchronizerConfig,
	counters *Counters,
	books chan<- *OrderBookView,
) *Synchronizer {
	cfg = cfg.withDefaults()

	return &Synchronizer{
		cfg:      cfg,
		adapter:  adapter,
		counters: counters,
		books:    books,
		state:    NewSyncState(adapter.Name(), symbol),
		retry: &backoff.Backoff{
			Min:    cfg.BackoffMin,
			Max:    cfg.BackoffMax,
			Factor: 2,
		},
		inbound: make(chan []byte, inboundBufferSize),
		done:    make(chan struct{}),
		logger: logrus.WithFields(logrus.Fields{
			"component": "synchronizer",
			"exchange":  adapter.Name(),
			"symbol":    symbol.String(),
		}),
	}
}

// Start subscribes to the depth diff stream and launches the sync
// loop. The first snapshot fetch is scheduled immediately.
func (s *Synchronizer) Start() error {
	sub, err := s.adapter.DepthDiffStream(s.state.Symbol)
	if err != nil {
		return fmt.Errorf("failed to subscribe to depth stream: %w", err)
	}

	s.wg.Add(2)
	go s.pump(sub)
	go s.run()

	promclient.OpenOrderBooks.WithLabelValues(s.state.Exchange).Inc()
	return nil
}

// Stop signals the loop and waits for it to exit. In-flight fetches
// finish or hit their own timeout; a book is never left half-applied.
func (s *Synchronizer) Stop() {
	close(s.done)
	s.wg.Wait()
	promclient.OpenOrderBooks.WithLabelValues(s.state.Exchange).Dec()
}

// pump moves frames from the transport subscription into the bounded
// inbound channel so a slow sync never blocks the shared ws reader.
func (s *Synchronizer) pump(sub *Subscription[[]byte]) {
	defer s.wg.Done()
	defer sub.Unsubscribe()

	for {
		select {
		case <-s.done:
			return
		case raw, ok := <-sub.Stream:
			if !ok {
				return
			}

			select {
			case s.inbound <- raw:
			default:
				s.counters.UpdatesDropped.Add(1)
				promclient.UpdatesDropped.WithLabelValues(s.state.Exchange).Inc()
			}
		}
	}
}

func (s *Synchronizer) run() {
	defer s.wg.Done()

	refresh := time.NewTicker(s.cfg.SnapshotInterval)
	defer refresh.Stop()

	retryTimer := time.NewTimer(0)
	defer retryTimer.Stop()

	for {
		select {
		case <-s.done:
			return
		case raw := <-s.inbound:
			if needSync := s.handleRaw(raw); needSync {
				retryTimer.Reset(0)
			}
		case <-retryTimer.C:
			if delay, again := s.sync(); again {
				retryTimer.Reset(delay)
			}
		case <-refresh.C:
			s.refresh()
		}
	}
}

func (s *Synchronizer) handleRaw(raw []byte) (needSync bool) {
	update, err := s.adapter.ParseUpdate(s.state.Symbol, raw)
	if err != nil {
		s.counters.ParseErrors.Add(1)
		promclient.UpdatesDropped.WithLabelValues(s.state.Exchange).Inc()
		s.logger.Debugf("dropping unparseable frame: %s", err)
		return false
	}

	return s.handleUpdate(update)
}

// handleUpdate is the per-message branch of the state machine: buffer
// while unsynced, otherwise validate sequencing and apply. Reports
// whether a (re)sync must be scheduled.
func (s *Synchronizer) handleUpdate(update *Update) (needSync bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.IsSnapshot {
		s.state.Reset()
		s.state.AdoptBook(NewOrderBookFromUpdate(s.state.Exchange, update))
		s.retry.Reset()
		s.emit(s.state.Book.View(s.cfg.DepthLimit, UpdateTypeSnapshot))
		return false
	}

	if !s.state.IsSynced || s.state.SyncInProgress {
		if evicted := s.state.BufferUpdate(update); evicted && !s.state.IsSynced {
			// The backlog outgrew the buffer: whatever snapshot we are
			// waiting for is already too old to catch up with.
			s.forceResync("update buffer overflow")
			s.state.BufferUpdate(update)
			return true
		}
		return false
	}

	switch err := ValidateSequence(update, s.state.LastUpdateID); {
	case errors.Is(err, ErrUpdateOutdated):
		// Already applied, silently dropped.
		s.counters.UpdatesDropped.Add(1)
		promclient.UpdatesDropped.WithLabelValues(s.state.Exchange).Inc()
		return false

	case errors.Is(err, ErrUpdateOutOfSequence):
		s.logger.Warnf("sequence gap: update [%d, %d] against local id %d",
			update.FirstUpdateID, update.LastUpdateID, s.state.LastUpdateID)
		s.forceResync("sequence gap")
		// Keep the offending update: it is the start of the backlog
		// the next snapshot will be reconciled against.
		s.state.BufferUpdate(update)
		return true
	}

	s.state.Book = s.state.Book.Apply(update)
	s.state.LastUpdateID = s.state.Book.LastUpdateID

	s.counters.UpdatesApplied.Add(1)
	promclient.UpdatesApplied.WithLabelValues(s.state.Exchange).Inc()

	s.emit(s.state.Book.View(s.cfg.DepthLimit, UpdateTypeDelta))
	return false
}

// sync performs one Unsynced -> Synced attempt. Returns the backoff
// delay and whether another attempt must be scheduled.
func (s *Synchronizer) sync() (time.Duration, bool) {
	s.mu.Lock()
	if s.state.IsSynced {
		s.mu.Unlock()
		return 0, false
	}
	s.state.SyncInProgress = true
	s.mu.Unlock()

	snapshot, err := s.fetchSnapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SyncInProgress = false

	if err != nil {
		return s.syncFailed(err), true
	}

	book, err := NewOrderBook(s.state.Exchange, s.state.Symbol, snapshot)
	if err != nil {
		return s.syncFailed(fmt.Errorf("%w: %s", ErrFetchInvalidResponse, err)), true
	}

	s.counters.SnapshotsFetched.Add(1)
	promclient.SnapshotsFetched.WithLabelValues(s.state.Exchange).Inc()

	book, err = s.replayBuffer(book)
	if err != nil {
		// The backlog has a hole the snapshot does not cover. The next
		// snapshot will be newer and is fetched right away.
		s.counters.Resyncs.Add(1)
		promclient.Resyncs.WithLabelValues(s.state.Exchange).Inc()
		s.logger.Warnf("refetching snapshot: %s", err)
		return s.cfg.BackoffMin, true
	}

	s.state.AdoptBook(book)
	s.retry.Reset()

	bids, asks := book.Depth()
	s.logger.Infof("synced at id %d (%d bids, %d asks)", book.LastUpdateID, bids, asks)

	s.emit(book.View(s.cfg.DepthLimit, UpdateTypeSnapshot))
	return 0, false
}

// replayBuffer discards buffered updates the snapshot already covers
// and applies the rest in ascending order. Arrival order of the
// buffered updates does not matter, but every applied update must be
// contiguous with the book; a hole in the backlog (frames lost to
// channel overflow or a reconnect) fails the replay. The unapplied
// tail is re-buffered for the next attempt.
func (s *Synchronizer) replayBuffer(book *OrderBook) (*OrderBook, error) {
	updates := s.state.DrainBuffer()

	applied := 0
	for i, update := range updates {
		if update.LastUpdateID <= book.LastUpdateID {
			continue
		}

		if err := ValidateSequence(update, book.LastUpdateID); err != nil {
			for _, tail := range updates[i:] {
				s.state.BufferUpdate(tail)
			}
			return nil, fmt.Errorf("gap in buffered updates: update [%d, %d] against snapshot id %d",
				update.FirstUpdateID, update.LastUpdateID, book.LastUpdateID)
		}

		book = book.Apply(update)
		applied++
	}

	if applied > 0 {
		s.counters.UpdatesApplied.Add(uint64(applied))
		promclient.UpdatesApplied.WithLabelValues(s.state.Exchange).Add(float64(applied))
	}

	return book, nil
}

// refresh re-fetches the snapshot while synced to bound drift. Best
// effort: a failure is counted but does not flip the synced flag.
func (s *Synchronizer) refresh() {
	s.mu.RLock()
	synced := s.state.IsSynced
	s.mu.RUnlock()
	if !synced {
		return
	}

	snapshot, err := s.fetchSnapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.counters.SyncErrors.Add(1)
		promclient.SyncErrors.WithLabelValues(s.state.Exchange).Inc()
		s.logger.Warnf("periodic refresh failed: %s", err)
		return
	}

	if !s.state.IsSynced {
		return
	}

	s.counters.SnapshotsFetched.Add(1)
	promclient.SnapshotsFetched.WithLabelValues(s.state.Exchange).Inc()
	s.state.LastSnapshotTime = time.Now()

	// The local book being ahead of the fetched snapshot is the normal
	// case; only adopt a snapshot that moves us forward.
	if snapshot.LastUpdateID <= s.state.LastUpdateID {
		return
	}

	book, err := NewOrderBook(s.state.Exchange, s.state.Symbol, snapshot)
	if err != nil {
		s.logger.Warnf("periodic refresh returned malformed depth: %s", err)
		return
	}

	s.state.AdoptBook(book)
	s.emit(book.View(s.cfg.DepthLimit, UpdateTypeSnapshot))
}

func (s *Synchronizer) fetchSnapshot() (*OrderBookSnapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
	defer cancel()

	return s.adapter.FetchSnapshot(ctx, s.state.Symbol)
}

func (s *Synchronizer) syncFailed(err error) time.Duration {
	s.state.ErrorCount++
	s.counters.SyncErrors.Add(1)
	promclient.SyncErrors.WithLabelValues(s.state.Exchange).Inc()

	delay := s.retry.Duration()
	s.logger.Warnf("sync attempt %d failed: %s, retrying in %s", s.state.ErrorCount, err, delay)

	if s.state.ErrorCount >= s.cfg.MaxErrorCount {
		s.logger.Errorf("error count reached %d, dropping local state", s.state.ErrorCount)
		s.state.Reset()
	}

	return delay
}

// forceResync drops the local book and re-enters Syncing. Caller holds
// the lock and schedules the retry.
func (s *Synchronizer) forceResync(reason string) {
	s.counters.Resyncs.Add(1)
	promclient.Resyncs.WithLabelValues(s.state.Exchange).Inc()
	s.logger.Warnf("forcing resync: %s", reason)
	s.state.Reset()
}

func (s *Synchronizer) emit(view *OrderBookView) {
	if s.books == nil {
		return
	}

	select {
	case s.books <- view:
	default:
		// Slow consumer; views are point-in-time, skipping one is safe.
	}
}

// CurrentView returns the current book, or false while unsynced.
func (s *Synchronizer) CurrentView() (*OrderBookView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.state.IsSynced || s.state.Book == nil {
		return nil, false
	}

	updateType := UpdateTypeDelta
	if s.state.LastUpdateID == s.state.SnapshotLastUpdateID {
		updateType = UpdateTypeSnapshot
	}

	return s.state.Book.View(s.cfg.DepthLimit, updateType), true
}

func (s *Synchronizer) SymbolStats() SymbolStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := SymbolStats{
		Exchange:     s.state.Exchange,
		Symbol:       s.state.Symbol.String(),
		IsSynced:     s.state.IsSynced,
		LastUpdateID: s.state.LastUpdateID,
		BufferLen:    s.state.BufferLen(),
		ErrorCount:   s.state.ErrorCount,
	}
	if s.state.Book != nil {
		stats.LastUpdateTime = s.state.Book.Timestamp
	}

	return stats
}
