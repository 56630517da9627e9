package domain

// ValidateSequence decides whether an update may be merged into a book
// currently at lastUpdateID.
//
// Binance documents the windowed rule: drop any event with
// u <= lastUpdateId, and the next applicable event must satisfy
// U <= lastUpdateId+1 <= u. Okx chains events through prevSeqId
// instead, and timestamp-keyed feeds give staleness checks only.
func ValidateSequence(update *Update, lastUpdateID int64) error {
	if update.LastUpdateID <= lastUpdateID {
		return ErrUpdateOutdated
	}

	switch update.SeqMode {
	case SeqChained:
		if update.PrevUpdateID > lastUpdateID {
			return ErrUpdateOutOfSequence
		}
	case SeqTimestamp:
		// nothing beyond the staleness check above
	default:
		if update.FirstUpdateID > lastUpdateID+1 {
			return ErrUpdateOutOfSequence
		}
	}

	return nil
}
