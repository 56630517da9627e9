package binance

import (
	"fmt"

	"github.com/spooky-finn/go-orderbook-sync/domain"
)

// StreamAPI exposes the per-symbol depth diff stream on top of the
// multiplexed stream client.
type StreamAPI struct {
	client *StreamClient
}

func NewStreamAPI(client *StreamClient) *StreamAPI {
	return &StreamAPI{client: client}
}

func (api *StreamAPI) DepthDiffStream(symbol *domain.MarketSymbol) (*domain.Subscription[[]byte], error) {
	topic := fmt.Sprintf("%s@depth", symbol.Join(""))
	return api.client.Subscribe(topic)
}
