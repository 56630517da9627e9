package okx

import (
	"github.com/spooky-finn/go-orderbook-sync/domain"
)

const booksChannel = "books"

// StreamAPI exposes the books channel per symbol. The channel sends a
// full snapshot on subscribe (and after every reconnect) followed by
// incremental diffs; the parser marks the former so the synchronizer
// can adopt it wholesale.
type StreamAPI struct {
	client *StreamClient
}

func NewStreamAPI(client *StreamClient) *StreamAPI {
	return &StreamAPI{client: client}
}

func (api *StreamAPI) DepthDiffStream(symbol *domain.MarketSymbol) (*domain.Subscription[[]byte], error) {
	return api.client.Subscribe(booksChannel, symbol.JoinUpper("-"))
}
