package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spooky-finn/go-orderbook-sync/domain"
	"github.com/spooky-finn/go-orderbook-sync/provider/ratelimit"
)

var logger = logrus.WithField("component", "okx")

type SyncAPIConfig struct {
	BaseURL     string
	DepthLimit  int
	HTTPTimeout time.Duration
}

// SyncAPI fetches full books from the okx /api/v5/market/books
// endpoint. Okx has no update-id concept over REST; the response
// timestamp in millis doubles as the sequence key, matching what the
// books-channel parser produces.
type SyncAPI struct {
	cfg     SyncAPIConfig
	client  *http.Client
	limiter *ratelimit.SnapshotLimiter
}

func NewSyncAPI(cfg SyncAPIConfig, limiter *ratelimit.SnapshotLimiter) *SyncAPI {
	if cfg.DepthLimit <= 0 || cfg.DepthLimit > 400 {
		cfg.DepthLimit = 400
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}

	return &SyncAPI{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: limiter,
	}
}

type booksResponse struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data []booksData `json:"data"`
}

type booksData struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
	Ts   string     `json:"ts"`
}

func (api *SyncAPI) FetchSnapshot(ctx context.Context, symbol *domain.MarketSymbol) (*domain.OrderBookSnapshot, error) {
	if err := api.limiter.Acquire(ctx, symbol.String(), 1); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v5/market/books?instId=%s&sz=%d",
		api.cfg.BaseURL, symbol.JoinUpper("-"), api.cfg.DepthLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFetchNetwork, err)
	}

	resp, err := api.client.Do(req)
	if err != nil {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: %s", domain.ErrFetchNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: http %d", domain.ErrFetchRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: http %d", domain.ErrFetchInvalidResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: %s", domain.ErrFetchNetwork, err)
	}

	var books booksResponse
	if err := json.Unmarshal(body, &books); err != nil {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: %s", domain.ErrFetchInvalidResponse, err)
	}

	// 50011 is okx's in-band throttle signal.
	if books.Code == "50011" {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: code %s %s", domain.ErrFetchRateLimited, books.Code, books.Msg)
	}
	if books.Code != "0" || len(books.Data) == 0 {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: code %s %s", domain.ErrFetchInvalidResponse, books.Code, books.Msg)
	}

	data := books.Data[0]
	ts, err := strconv.ParseInt(data.Ts, 10, 64)
	if err != nil {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: invalid ts %q", domain.ErrFetchInvalidResponse, data.Ts)
	}

	api.limiter.ReportResult(symbol.String(), true)

	return &domain.OrderBookSnapshot{
		LastUpdateID: ts,
		Bids:         data.Bids,
		Asks:         data.Asks,
		Timestamp:    time.UnixMilli(ts),
	}, nil
}
