package domain

import (
	"sync/atomic"
	"time"
)

// Counters are the engine-wide monotonic counters, shared by all
// synchronizers. Prometheus gets the same increments through the
// promclient package; these exist so Stats() works without scraping.
type Counters struct {
	SnapshotsFetched atomic.Uint64
	UpdatesApplied   atomic.Uint64
	UpdatesDropped   atomic.Uint64
	ParseErrors      atomic.Uint64
	SyncErrors       atomic.Uint64
	Resyncs          atomic.Uint64
}

type Stats struct {
	SnapshotsFetched uint64                 `json:"snapshotsFetched"`
	UpdatesApplied   uint64                 `json:"updatesApplied"`
	UpdatesDropped   uint64                 `json:"updatesDropped"`
	ParseErrors      uint64                 `json:"parseErrors"`
	SyncErrors       uint64                 `json:"syncErrors"`
	Resyncs          uint64                 `json:"resyncs"`
	Symbols          map[string]SymbolStats `json:"symbols"`
}

type SymbolStats struct {
	Exchange       string    `json:"exchange"`
	Symbol         string    `json:"symbol"`
	IsSynced       bool      `json:"isSynced"`
	LastUpdateID   int64     `json:"lastUpdateId"`
	LastUpdateTime time.Time `json:"lastUpdateTime"`
	BufferLen      int       `json:"bufferLen"`
	ErrorCount     int       `json:"errorCount"`
}

func (c *Counters) Stats() Stats {
	return Stats{
		SnapshotsFetched: c.SnapshotsFetched.Load(),
		UpdatesApplied:   c.UpdatesApplied.Load(),
		UpdatesDropped:   c.UpdatesDropped.Load(),
		ParseErrors:      c.ParseErrors.Load(),
		SyncErrors:       c.SyncErrors.Load(),
		Resyncs:          c.Resyncs.Load(),
		Symbols:          make(map[string]SymbolStats),
	}
}
