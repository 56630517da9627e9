package domain

import "context"

// Subscription is one consumer's handle on a stream topic.
type Subscription[T any] struct {
	Stream      chan T
	Unsubscribe func()
	Topic       string
}

// SnapshotFetcher retrieves a full-depth book over REST. Rate limiting
// lives behind this interface; retry and backoff do not.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, symbol *MarketSymbol) (*OrderBookSnapshot, error)
}

// UpdateParser decodes one raw frame from the depth stream. A parse
// error means the frame is dropped and counted, never propagated.
type UpdateParser interface {
	ParseUpdate(symbol *MarketSymbol, raw []byte) (*Update, error)
}

// StreamAPI exposes the per-symbol depth diff stream of an exchange.
type StreamAPI interface {
	DepthDiffStream(symbol *MarketSymbol) (*Subscription[[]byte], error)
}

// ExchangeAdapter bundles everything the synchronizer needs from one
// exchange.
type ExchangeAdapter interface {
	Name() string
	SnapshotFetcher
	UpdateParser
	StreamAPI
}

// AdapterResolver maps an exchange name to its adapter.
type AdapterResolver interface {
	Adapter(exchange string) (ExchangeAdapter, error)
}
