package domain

import "time"

// SequenceMode tells the synchronizer how an exchange numbers its
// depth updates, so the gap check can be uniform downstream.
type SequenceMode int

const (
	// SeqWindowed: binance-style U/u windows. An update is contiguous
	// when FirstUpdateID <= local.LastUpdateID+1 <= LastUpdateID.
	SeqWindowed SequenceMode = iota

	// SeqChained: okx-style seqId/prevSeqId chaining. An update is
	// contiguous when PrevUpdateID <= local.LastUpdateID.
	SeqChained

	// SeqTimestamp: no usable sequence from the exchange; the event
	// timestamp in millis is used as a synthetic key. Gaps are not
	// detectable, staleness still is.
	SeqTimestamp
)

// Update is one parsed incremental depth diff. It is consumed exactly
// once (applied or buffered) and never mutated after parse.
type Update struct {
	Symbol *MarketSymbol

	FirstUpdateID int64
	LastUpdateID  int64
	// PrevUpdateID chains the update to its predecessor (SeqChained
	// only), zero otherwise.
	PrevUpdateID int64
	SeqMode      SequenceMode

	// IsSnapshot marks a full-book message arriving on the delta
	// stream (okx books channel bootstrap). The synchronizer adopts it
	// wholesale instead of merging it.
	IsSnapshot bool

	Bids []PriceLevel
	Asks []PriceLevel

	Timestamp time.Time
	Checksum  uint32
}
