package okx

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spooky-finn/go-orderbook-sync/domain"
)

// UpdateParser decodes okx books-channel events. Rows are
// [price, qty, deprecated, orderCount] tuples. Okx sequencing is
// timestamp based: the ts in millis is used as a synthetic sequence
// key with identical first and last ids, the same unit the REST
// fetcher reports, so downstream handling stays uniform. Gaps are not
// detectable on this feed; the channel re-sends a full snapshot after
// every reconnect instead.
type UpdateParser struct{}

type booksEvent struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Action string           `json:"action"`
	Data   []booksEventData `json:"data"`
}

type booksEventData struct {
	Asks     [][]string `json:"asks"`
	Bids     [][]string `json:"bids"`
	Ts       string     `json:"ts"`
	Checksum int32      `json:"checksum"`
}

func (p *UpdateParser) ParseUpdate(symbol *domain.MarketSymbol, raw []byte) (*domain.Update, error) {
	var event booksEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("malformed books event: %w", err)
	}

	if len(event.Data) == 0 {
		return nil, fmt.Errorf("books event without data")
	}
	data := event.Data[0]

	ts, err := strconv.ParseInt(data.Ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("books event with invalid ts %q", data.Ts)
	}

	bids, err := domain.ParseDepthRows(data.Bids)
	if err != nil {
		return nil, err
	}

	asks, err := domain.ParseDepthRows(data.Asks)
	if err != nil {
		return nil, err
	}

	return &domain.Update{
		Symbol:        symbol,
		IsSnapshot:    event.Action == "snapshot",
		FirstUpdateID: ts,
		LastUpdateID:  ts,
		SeqMode:       domain.SeqTimestamp,
		Bids:          bids,
		Asks:          asks,
		Timestamp:     time.UnixMilli(ts),
		Checksum:      uint32(data.Checksum),
	}, nil
}
