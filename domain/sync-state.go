package domain

import (
	"sort"
	"time"

	"github.com/gammazero/deque"
)

// UpdateBufferCapacity bounds the pending-update buffer. Overflowing
// it while unsynced means the backlog is too stale to catch up and is
// treated as a resync trigger by the synchronizer.
const UpdateBufferCapacity = 1000

// SyncState is the per-symbol mutable state. It is owned exclusively
// by the symbol's synchronizer goroutine; the only cross-goroutine
// reads go through the synchronizer's lock.
type SyncState struct {
	Exchange string
	Symbol   *MarketSymbol

	Book   *OrderBook
	buffer deque.Deque[*Update]

	LastUpdateID  int64
	FirstUpdateID int64

	IsSynced       bool
	SyncInProgress bool

	ErrorCount           int
	LastSnapshotTime     time.Time
	SnapshotLastUpdateID int64
}

func NewSyncState(exchange string, symbol *MarketSymbol) *SyncState {
	return &SyncState{
		Exchange: exchange,
		Symbol:   symbol,
	}
}

// BufferUpdate appends an update, evicting the oldest when full.
// Reports whether an eviction happened.
func (s *SyncState) BufferUpdate(update *Update) (evicted bool) {
	if s.buffer.Len() >= UpdateBufferCapacity {
		s.buffer.PopFront()
		evicted = true
	}

	s.buffer.PushBack(update)
	return evicted
}

func (s *SyncState) BufferLen() int {
	return s.buffer.Len()
}

// DrainBuffer empties the buffer and returns the updates in ascending
// FirstUpdateID order, regardless of arrival order.
func (s *SyncState) DrainBuffer() []*Update {
	updates := make([]*Update, 0, s.buffer.Len())
	for s.buffer.Len() > 0 {
		updates = append(updates, s.buffer.PopFront())
	}

	sort.Slice(updates, func(i, j int) bool {
		return updates[i].FirstUpdateID < updates[j].FirstUpdateID
	})

	return updates
}

// Reset drops everything back to the unsynced initial state. Called on
// max-error and before a forced resync.
func (s *SyncState) Reset() {
	s.buffer.Clear()
	s.Book = nil
	s.LastUpdateID = 0
	s.FirstUpdateID = 0
	s.IsSynced = false
	s.SyncInProgress = false
	s.SnapshotLastUpdateID = 0
}

// AdoptBook installs a freshly built book and flips the state to
// synced.
func (s *SyncState) AdoptBook(book *OrderBook) {
	s.Book = book
	s.LastUpdateID = book.LastUpdateID
	s.SnapshotLastUpdateID = book.LastUpdateID
	s.LastSnapshotTime = time.Now()
	s.IsSynced = true
	s.ErrorCount = 0
}
