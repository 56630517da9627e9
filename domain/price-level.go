package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceLevel is one price/quantity pair. A zero Quantity inside an
// update means "delete this level"; a book never stores a zero level.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

func NewPriceLevel(price, quantity string) (PriceLevel, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return PriceLevel{}, fmt.Errorf("invalid price %q: %w", price, err)
	}

	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return PriceLevel{}, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}

	return PriceLevel{Price: p, Quantity: q}, nil
}

// ParseDepthRows decodes the [price, qty, ...] string tuples that both
// binance and okx use on the wire. Extra tuple elements (okx sends the
// deprecated field and the order count) are ignored.
func ParseDepthRows(rows [][]string) ([]PriceLevel, error) {
	levels := make([]PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("depth row must have at least 2 elements, got %d", len(row))
		}

		level, err := NewPriceLevel(row[0], row[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}

	return levels, nil
}

func (l PriceLevel) Row() []string {
	return []string{l.Price.String(), l.Quantity.String()}
}
