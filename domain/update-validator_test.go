package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSequence_Windowed(t *testing.T) {
	upd := &Update{FirstUpdateID: 123, LastUpdateID: 124, SeqMode: SeqWindowed}

	// u <= lastUpdateId: already applied.
	assert.ErrorIs(t, ValidateSequence(upd, 124), ErrUpdateOutdated)
	assert.ErrorIs(t, ValidateSequence(upd, 200), ErrUpdateOutdated)

	// U <= lastUpdateId+1 <= u: contiguous.
	assert.NoError(t, ValidateSequence(upd, 123))
	assert.NoError(t, ValidateSequence(upd, 122))

	// U > lastUpdateId+1: a gap.
	assert.ErrorIs(t, ValidateSequence(upd, 121), ErrUpdateOutOfSequence)
}

// The first event after a snapshot may straddle the snapshot id.
func TestValidateSequence_WindowedStraddle(t *testing.T) {
	upd := &Update{FirstUpdateID: 123, LastUpdateID: 140, SeqMode: SeqWindowed}
	assert.NoError(t, ValidateSequence(upd, 130))
}

func TestValidateSequence_Chained(t *testing.T) {
	upd := &Update{FirstUpdateID: 10, LastUpdateID: 10, PrevUpdateID: 9, SeqMode: SeqChained}

	assert.NoError(t, ValidateSequence(upd, 9))
	assert.ErrorIs(t, ValidateSequence(upd, 10), ErrUpdateOutdated)
	// Predecessor never seen: a gap.
	assert.ErrorIs(t, ValidateSequence(upd, 8), ErrUpdateOutOfSequence)
}

func TestValidateSequence_Timestamp(t *testing.T) {
	upd := &Update{FirstUpdateID: 1700000000500, LastUpdateID: 1700000000500, SeqMode: SeqTimestamp}

	// Only staleness is checkable on timestamp-keyed feeds.
	assert.NoError(t, ValidateSequence(upd, 1700000000100))
	assert.ErrorIs(t, ValidateSequence(upd, 1700000000500), ErrUpdateOutdated)
}
