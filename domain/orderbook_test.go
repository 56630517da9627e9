package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSymbol(t *testing.T) *MarketSymbol {
	t.Helper()
	symbol, err := NewMarketSymbol("BTC", "USDT")
	require.NoError(t, err)
	return symbol
}

func TestNewOrderBook(t *testing.T) {
	snapshot := &OrderBookSnapshot{
		LastUpdateID: 123,
		Bids:         [][]string{{"10000", "1"}, {"9900", "2"}},
		Asks:         [][]string{{"10100", "1.5"}, {"10200", "2.5"}},
	}

	ob, err := NewOrderBook("binance", mustSymbol(t), snapshot)
	require.NoError(t, err)

	assert.Equal(t, int64(123), ob.LastUpdateID)
	bids, asks := ob.Depth()
	assert.Equal(t, 2, bids)
	assert.Equal(t, 2, asks)

	best, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, "10000", best.Price.String())

	best, ok = ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, "10100", best.Price.String())
}

func TestNewOrderBook_MalformedRows(t *testing.T) {
	snapshot := &OrderBookSnapshot{
		LastUpdateID: 1,
		Bids:         [][]string{{"not-a-number", "1"}},
	}

	_, err := NewOrderBook("binance", mustSymbol(t), snapshot)
	assert.Error(t, err)
}

// Round trip from snapshot through one update: replace a bid, delete
// the only ask.
func TestOrderBook_Apply(t *testing.T) {
	snapshot := &OrderBookSnapshot{
		LastUpdateID: 100,
		Bids:         [][]string{{"50000", "1.0"}},
		Asks:         [][]string{{"50100", "0.5"}},
	}

	ob, err := NewOrderBook("binance", mustSymbol(t), snapshot)
	require.NoError(t, err)

	update := &Update{
		Symbol:        ob.Symbol,
		FirstUpdateID: 101,
		LastUpdateID:  101,
		Bids:          mustLevels(t, [][]string{{"50000", "2.0"}}),
		Asks:          mustLevels(t, [][]string{{"50100", "0"}}),
		Timestamp:     time.Now(),
	}

	next := ob.Apply(update)

	assert.Equal(t, int64(101), next.LastUpdateID)
	view := next.View(0, UpdateTypeDelta)
	// Quantities render in normalized decimal form, "2.0" becomes "2".
	assert.Equal(t, [][]string{{"50000", "2"}}, view.Bids)
	assert.Empty(t, view.Asks)

	// The input book is untouched.
	assert.Equal(t, int64(100), ob.LastUpdateID)
	oldView := ob.View(0, UpdateTypeDelta)
	assert.Equal(t, [][]string{{"50000", "1"}}, oldView.Bids)
	assert.Equal(t, [][]string{{"50100", "0.5"}}, oldView.Asks)
}

// Deleting a price level that does not exist is a no-op, no spurious
// entry and no error.
func TestOrderBook_Apply_DeleteAbsentLevel(t *testing.T) {
	snapshot := &OrderBookSnapshot{
		LastUpdateID: 10,
		Bids:         [][]string{{"100", "1"}},
		Asks:         [][]string{{"101", "1"}},
	}

	ob, err := NewOrderBook("binance", mustSymbol(t), snapshot)
	require.NoError(t, err)

	next := ob.Apply(&Update{
		FirstUpdateID: 11,
		LastUpdateID:  11,
		Bids:          mustLevels(t, [][]string{{"99", "0"}}),
	})

	view := next.View(0, UpdateTypeDelta)
	assert.Equal(t, [][]string{{"100", "1"}}, view.Bids)
	assert.Equal(t, [][]string{{"101", "1"}}, view.Asks)
}

// Duplicate prices within one delta array resolve to the last write.
func TestOrderBook_Apply_LastWriteWins(t *testing.T) {
	snapshot := &OrderBookSnapshot{LastUpdateID: 1}

	ob, err := NewOrderBook("binance", mustSymbol(t), snapshot)
	require.NoError(t, err)

	next := ob.Apply(&Update{
		FirstUpdateID: 2,
		LastUpdateID:  2,
		Bids:          mustLevels(t, [][]string{{"100", "1"}, {"100", "3"}}),
	})

	view := next.View(0, UpdateTypeDelta)
	assert.Equal(t, [][]string{{"100", "3"}}, view.Bids)
}

// Bids descend, asks ascend, no duplicate prices, regardless of the
// order levels arrive in.
func TestOrderBook_Apply_OrderingInvariant(t *testing.T) {
	snapshot := &OrderBookSnapshot{
		LastUpdateID: 1,
		Bids:         [][]string{{"100", "1"}},
		Asks:         [][]string{{"101", "1"}},
	}

	ob, err := NewOrderBook("binance", mustSymbol(t), snapshot)
	require.NoError(t, err)

	next := ob.Apply(&Update{
		FirstUpdateID: 2,
		LastUpdateID:  2,
		Bids:          mustLevels(t, [][]string{{"98", "1"}, {"102", "1"}, {"100", "2"}}),
		Asks:          mustLevels(t, [][]string{{"105", "1"}, {"103", "1"}}),
	})

	view := next.View(0, UpdateTypeDelta)
	assert.Equal(t, [][]string{{"102", "1"}, {"100", "2"}, {"98", "1"}}, view.Bids)
	assert.Equal(t, [][]string{{"101", "1"}, {"103", "1"}, {"105", "1"}}, view.Asks)
}

func TestOrderBook_View_LimitsDepth(t *testing.T) {
	snapshot := &OrderBookSnapshot{
		LastUpdateID: 1,
		Bids:         [][]string{{"100", "1"}, {"99", "1"}, {"98", "1"}},
		Asks:         [][]string{{"101", "1"}, {"102", "1"}, {"103", "1"}},
	}

	ob, err := NewOrderBook("binance", mustSymbol(t), snapshot)
	require.NoError(t, err)

	view := ob.View(2, UpdateTypeSnapshot)
	assert.Equal(t, [][]string{{"100", "1"}, {"99", "1"}}, view.Bids)
	assert.Equal(t, [][]string{{"101", "1"}, {"102", "1"}}, view.Asks)
	assert.Equal(t, UpdateTypeSnapshot, view.UpdateType)
}

func mustLevels(t *testing.T, rows [][]string) []PriceLevel {
	t.Helper()
	levels, err := ParseDepthRows(rows)
	require.NoError(t, err)
	return levels
}
