package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	adapter ExchangeAdapter
}

func (r *fakeResolver) Adapter(exchange string) (ExchangeAdapter, error) {
	if exchange != "fake" {
		return nil, ErrUnknownExchange
	}
	return r.adapter, nil
}

func TestManager_Lifecycle(t *testing.T) {
	adapter := &fakeAdapter{results: []fetchResult{{snapshot: &OrderBookSnapshot{
		LastUpdateID: 100,
		Bids:         [][]string{{"50000", "1"}},
		Asks:         [][]string{{"50100", "2"}},
	}}}}

	m := NewManager(&fakeResolver{adapter: adapter}, SynchronizerConfig{})
	symbol := mustSymbol(t)

	require.NoError(t, m.Start([]BookRequest{{Exchange: "fake", Symbol: symbol}}))

	require.Eventually(t, func() bool {
		_, ok := m.OrderBook("fake", symbol)
		return ok
	}, time.Second, 10*time.Millisecond)

	view, ok := m.OrderBook("fake", symbol)
	require.True(t, ok)
	assert.Equal(t, int64(100), view.LastUpdateID)
	assert.Equal(t, [][]string{{"50000", "1"}}, view.Bids)

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.SnapshotsFetched)
	require.Contains(t, stats.Symbols, "fake/btc_usdt")
	assert.True(t, stats.Symbols["fake/btc_usdt"].IsSynced)

	require.NoError(t, m.Unregister("fake", symbol))
	_, ok = m.OrderBook("fake", symbol)
	assert.False(t, ok)

	m.Stop()
}

func TestManager_UnknownExchange(t *testing.T) {
	m := NewManager(&fakeResolver{}, SynchronizerConfig{})

	err := m.Start([]BookRequest{{Exchange: "nope", Symbol: mustSymbol(t)}})
	assert.ErrorIs(t, err, ErrUnknownExchange)
}

func TestManager_UnknownSymbolReturnsFalse(t *testing.T) {
	m := NewManager(&fakeResolver{}, SynchronizerConfig{})

	_, ok := m.OrderBook("fake", mustSymbol(t))
	assert.False(t, ok)
}
