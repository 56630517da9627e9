package domain

import (
	"fmt"
	"strings"
)

// MarketSymbol is the canonical trading-pair key used across the engine.
// The string form is "base_quote" in lower case.
type MarketSymbol struct {
	BaseAsset  string
	QuoteAsset string
}

func NewMarketSymbol(base string, quote string) (*MarketSymbol, error) {
	if base == quote {
		return nil, fmt.Errorf("base and quote must be different")
	}
	if base == "" || quote == "" {
		return nil, fmt.Errorf("base and quote must not be empty")
	}

	return &MarketSymbol{
		BaseAsset:  strings.ToLower(base),
		QuoteAsset: strings.ToLower(quote),
	}, nil
}

func NewMarketSymbolFromString(s string) (*MarketSymbol, error) {
	split := strings.Split(s, "_")
	if len(split) != 2 {
		return nil, fmt.Errorf("invalid symbol string: %q", s)
	}

	return NewMarketSymbol(split[0], split[1])
}

func (ms *MarketSymbol) Join(separator string) string {
	return ms.BaseAsset + separator + ms.QuoteAsset
}

// JoinUpper renders the pair the way exchange endpoints expect it,
// e.g. "BTCUSDT" for binance or "BTC-USDT" for okx.
func (ms *MarketSymbol) JoinUpper(separator string) string {
	return strings.ToUpper(ms.Join(separator))
}

func (ms *MarketSymbol) String() string {
	return ms.Join("_")
}

func (ms *MarketSymbol) Equal(other *MarketSymbol) bool {
	return ms.BaseAsset == other.BaseAsset && ms.QuoteAsset == other.QuoteAsset
}
