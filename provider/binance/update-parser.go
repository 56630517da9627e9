package binance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spooky-finn/go-orderbook-sync/domain"
)

// UpdateParser decodes binance depthUpdate events. The U/u window is
// carried as-is; a "0" quantity row marks a level deletion.
type UpdateParser struct{}

type depthUpdateEvent struct {
	Event         string     `json:"e"`
	EventTime     int64      `json:"E"`
	Symbol        string     `json:"s"`
	FirstUpdateID int64      `json:"U"`
	FinalUpdateID int64      `json:"u"`
	Bids          [][]string `json:"b"`
	Asks          [][]string `json:"a"`
}

func (p *UpdateParser) ParseUpdate(symbol *domain.MarketSymbol, raw []byte) (*domain.Update, error) {
	var event depthUpdateEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("malformed depth update: %w", err)
	}

	if event.Event != "depthUpdate" {
		return nil, fmt.Errorf("unexpected event type %q", event.Event)
	}
	if event.FirstUpdateID == 0 || event.FinalUpdateID == 0 {
		return nil, fmt.Errorf("depth update without U/u ids")
	}

	bids, err := domain.ParseDepthRows(event.Bids)
	if err != nil {
		return nil, err
	}

	asks, err := domain.ParseDepthRows(event.Asks)
	if err != nil {
		return nil, err
	}

	return &domain.Update{
		Symbol:        symbol,
		FirstUpdateID: event.FirstUpdateID,
		LastUpdateID:  event.FinalUpdateID,
		SeqMode:       domain.SeqWindowed,
		Bids:          bids,
		Asks:          asks,
		Timestamp:     time.UnixMilli(event.EventTime),
	}, nil
}
