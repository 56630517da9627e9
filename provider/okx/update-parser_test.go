package okx

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
		"arg": {"channel": "books", "instId": "BTC-USDT"},
		"action": "update",
		"data": [{
			"asks": [["8476.98", "415", "0", "13"]],
			"bids": [["8476.97", "256", "0", "12"], ["8475.55", "0", "0", "0"]],
			"ts": "1597026383085",
			"checksum": -855196043
		}]
	}`)

	p := &UpdateParser{}
	update, err := p.ParseUpdate(symbol, raw)
	require.NoError(t, err)

	// ts doubles as the synthetic sequence key.
	assert.Equal(t, int64(1597026383085), update.FirstUpdateID)
	assert.Equal(t, int64(1597026383085), update.LastUpdateID)
	assert.Equal(t, domain.SeqTimestamp, update.SeqMode)
	assert.False(t, update.IsSnapshot)
	assert.Equal(t, uint32(3439771253), update.Checksum)

	require.Len(t, update.Asks, 1)
	assert.Equal(t, "8476.98", update.Asks[0].Price.String())

	require.Len(t, update.Bids, 2)
	assert.True(t, update.Bids[1].Quantity.IsZero())
}

func TestUpdateParser_SnapshotAction(t *testing.T) {
	symbol, err := domain.NewMarketSymbol("btc", "usdt")
	require.NoError(t, err)

	raw := []byte(`{
		"arg": {"channel": "books", "instId": "BTC-USDT"},
		"action": "snapshot",
		"data": [{
			"asks": [["8476.98", "415", "0", "13"]],
			"bids": [["8476.97", "256", "0", "12"]],
			"ts": "1597026383085",
			"checksum": 0
		}]
	}`)

	p := &UpdateParser{}
	update, err := p.ParseUpdate(symbol, raw)
	require.NoError(t, err)

	assert.True(t, update.IsSnapshot)
}

func TestUpdateParser_RejectsMalformed(t *testing.T) {
	symbol, err := domain.NewMarketSymbol("btc", "usdt")
	require.NoError(t, err)

	p := &UpdateParser{}

	_, err = p.ParseUpdate(symbol, []byte(`{"arg": {}, "data": []}`))
	assert.Error(t, err)

	_, err = p.ParseUpdate(symbol, []byte(`{"data": [{"ts": "not-a-number"}]}`))
	assert.Error(t, err)

	_, err = p.ParseUpdate(symbol, []byte(`not json`))
	assert.Error(t, err)
}
