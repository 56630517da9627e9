package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spooky-finn/go-orderbook-sync/domain"
)

func TestUpdateParser_ParseUpdate(t *testing.T) {
	symbol, err := domain.NewMarketSymbol("btc", "usdt")
	require.NoError(t, err)

	raw := []byte(`{
		"e": "depthUpdate",
		"E": 1700000000123,
		"s": "BTCUSDT",
		"U": 157,
		"u": 160,
		"b": [["0.0024", "10"]],
		"a": [["0.0026", "100"], ["0.0027", "0"]]
	}`)

	p := &UpdateParser{}
	update, err := p.ParseUpdate(symbol, raw)
	require.NoError(t, err)

	assert.Equal(t, int64(157), update.FirstUpdateID)
	assert.Equal(t, int64(160), update.LastUpdateID)
	assert.Equal(t, domain.SeqWindowed, update.SeqMode)
	assert.False(t, update.IsSnapshot)
	assert.Equal(t, int64(1700000000123), update.Timestamp.UnixMilli())

	require.Len(t, update.Bids, 1)
	assert.Equal(t, "0.0024", update.Bids[0].Price.String())

	require.Len(t, update.Asks, 2)
	// A "0" quantity marks the level for deletion.
	assert.True(t, update.Asks[1].Quantity.IsZero())
}

func TestUpdateParser_RejectsWrongEventType(t *testing.T) {
	symbol, err := domain.NewMarketSymbol("btc", "usdt")
	require.NoError(t, err)

	p := &UpdateParser{}
	_, err = p.ParseUpdate(symbol, []byte(`{"e": "trade", "U": 1, "u": 2}`))
	assert.Error(t, err)
}

func TestUpdateParser_RejectsMissingIds(t *testing.T) {
	symbol, err := domain.NewMarketSymbol("btc", "usdt")
	require.NoError(t, err)

	p := &UpdateParser{}
	_, err = p.ParseUpdate(symbol, []byte(`{"e": "depthUpdate", "b": [], "a": []}`))
	assert.Error(t, err)

	_, err = p.ParseUpdate(symbol, []byte(`not json`))
	assert.Error(t, err)
}

func TestSnapshotWeight(t *testing.T) {
	assert.Equal(t, 5, snapshotWeight(100))
	assert.Equal(t, 25, snapshotWeight(500))
	assert.Equal(t, 50, snapshotWeight(1000))
	assert.Equal(t, 250, snapshotWeight(5000))
}
