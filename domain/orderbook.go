package domain

import (
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type OrderBookUpdateType string

const (
	UpdateTypeSnapshot OrderBookUpdateType = "snapshot"
	UpdateTypeDelta    OrderBookUpdateType = "delta"
)

// OrderBookSnapshot is the decoded full-depth REST response, still in
// wire form ([price, qty] string tuples).
type OrderBookSnapshot struct {
	LastUpdateID int64
	Bids         [][]string
	Asks         [][]string
	Timestamp    time.Time
	Checksum     uint32
}

// OrderBook is a point-in-time local book. Both sides are sorted maps
// keyed by price (bids descending, asks ascending), so duplicate
// prices are impossible and no re-sort is ever needed. Apply returns a
// new book and never touches the receiver, which lets the manager hand
// out the current book without copying.
type OrderBook struct {
	Exchange     string
	Symbol       *MarketSymbol
	LastUpdateID int64
	Timestamp    time.Time
	Checksum     uint32

	bids *treemap.Map
	asks *treemap.Map
}

func askComparator(a, b interface{}) int {
	return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
}

func bidComparator(a, b interface{}) int {
	return b.(decimal.Decimal).Cmp(a.(decimal.Decimal))
}

func NewOrderBook(exchange string, symbol *MarketSymbol, snapshot *OrderBookSnapshot) (*OrderBook, error) {
	bids, err := ParseDepthRows(snapshot.Bids)
	if err != nil {
		return nil, err
	}

	asks, err := ParseDepthRows(snapshot.Asks)
	if err != nil {
		return nil, err
	}

	book := newOrderBook(exchange, symbol)
	book.LastUpdateID = snapshot.LastUpdateID
	book.Timestamp = snapshot.Timestamp
	book.Checksum = snapshot.Checksum
	mergeLevels(book.bids, bids)
	mergeLevels(book.asks, asks)

	return book, nil
}

// NewOrderBookFromUpdate builds a book directly from a full-book
// message on the delta stream (okx books channel bootstrap).
func NewOrderBookFromUpdate(exchange string, update *Update) *OrderBook {
	book := newOrderBook(exchange, update.Symbol)
	book.LastUpdateID = update.LastUpdateID
	book.Timestamp = update.Timestamp
	book.Checksum = update.Checksum
	mergeLevels(book.bids, update.Bids)
	mergeLevels(book.asks, update.Asks)

	return book
}

func newOrderBook(exchange string, symbol *MarketSymbol) *OrderBook {
	return &OrderBook{
		Exchange: exchange,
		Symbol:   symbol,
		bids:     treemap.NewWith(bidComparator),
		asks:     treemap.NewWith(askComparator),
	}
}

// Apply merges an update into the book and returns the result as a new
// book. Zero-quantity levels are removed (a no-op when the level is
// absent); within one delta array the last write for a price wins,
// which the map semantics give for free. Sequencing is validated by
// the caller, not here.
func (b *OrderBook) Apply(update *Update) *OrderBook {
	next := &OrderBook{
		Exchange:     b.Exchange,
		Symbol:       b.Symbol,
		LastUpdateID: update.LastUpdateID,
		Timestamp:    update.Timestamp,
		Checksum:     update.Checksum,
		bids:         cloneSide(b.bids, bidComparator),
		asks:         cloneSide(b.asks, askComparator),
	}

	mergeLevels(next.bids, update.Bids)
	mergeLevels(next.asks, update.Asks)

	return next
}

func (b *OrderBook) BestBid() (PriceLevel, bool) {
	return minLevel(b.bids)
}

func (b *OrderBook) BestAsk() (PriceLevel, bool) {
	return minLevel(b.asks)
}

func (b *OrderBook) Depth() (bids int, asks int) {
	return b.bids.Size(), b.asks.Size()
}

// View extracts a read-only, depth-limited copy for downstream
// consumers. A limit of 0 means full depth.
func (b *OrderBook) View(limit int, updateType OrderBookUpdateType) *OrderBookView {
	return &OrderBookView{
		Exchange:     b.Exchange,
		Symbol:       b.Symbol.String(),
		LastUpdateID: b.LastUpdateID,
		Timestamp:    b.Timestamp,
		Checksum:     b.Checksum,
		UpdateType:   updateType,
		Bids:         serializeSide(b.bids, limit),
		Asks:         serializeSide(b.asks, limit),
	}
}

// OrderBookView is the enhanced read-only book handed to callers and
// emitted on every applied update.
type OrderBookView struct {
	Exchange     string              `json:"exchange"`
	Symbol       string              `json:"symbol"`
	LastUpdateID int64               `json:"lastUpdateId"`
	Timestamp    time.Time           `json:"timestamp"`
	Checksum     uint32              `json:"checksum,omitempty"`
	UpdateType   OrderBookUpdateType `json:"updateType"`
	Bids         [][]string          `json:"bids"`
	Asks         [][]string          `json:"asks"`
}

func mergeLevels(side *treemap.Map, levels []PriceLevel) {
	for _, level := range levels {
		if level.Quantity.IsZero() {
			side.Remove(level.Price)
		} else {
			side.Put(level.Price, level.Quantity)
		}
	}
}

func cloneSide(side *treemap.Map, comparator func(a, b interface{}) int) *treemap.Map {
	clone := treemap.NewWith(comparator)
	side.Each(func(key, value interface{}) {
		clone.Put(key, value)
	})

	return clone
}

func minLevel(side *treemap.Map) (PriceLevel, bool) {
	price, quantity := side.Min()
	if price == nil {
		return PriceLevel{}, false
	}

	return PriceLevel{
		Price:    price.(decimal.Decimal),
		Quantity: quantity.(decimal.Decimal),
	}, true
}

func serializeSide(side *treemap.Map, limit int) [][]string {
	levels := make([]PriceLevel, 0, side.Size())
	it := side.Iterator()
	for it.Next() {
		if limit > 0 && len(levels) >= limit {
			break
		}

		levels = append(levels, PriceLevel{
			Price:    it.Key().(decimal.Decimal),
			Quantity: it.Value().(decimal.Decimal),
		})
	}

	return lo.Map(levels, func(level PriceLevel, _ int) []string {
		return level.Row()
	})
}
