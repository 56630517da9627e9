package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spooky-finn/go-orderbook-sync/domain"
	"github.com/spooky-finn/go-orderbook-sync/provider/ratelimit"
)

var logger = logrus.WithField("component", "binance")

type SyncAPIConfig struct {
	BaseURL     string
	DepthLimit  int
	HTTPTimeout time.Duration
}

// SyncAPI fetches full-depth snapshots from the binance REST depth
// endpoint, paced by the shared snapshot limiter.
type SyncAPI struct {
	cfg     SyncAPIConfig
	client  *http.Client
	limiter *ratelimit.SnapshotLimiter
}

func NewSyncAPI(cfg SyncAPIConfig, limiter *ratelimit.SnapshotLimiter) *SyncAPI {
	if cfg.DepthLimit <= 0 {
		cfg.DepthLimit = 1000
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

type depthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

func (api *SyncAPI) FetchSnapshot(ctx context.Context, symbol *domain.MarketSymbol) (*domain.OrderBookSnapshot, error) {
	if err := api.limiter.Acquire(ctx, symbol.String(), snapshotWeight(api.cfg.DepthLimit)); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d",
		api.cfg.BaseURL, symbol.JoinUpper(""), api.cfg.DepthLimit)

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

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot:
		// 418 is binance's IP-ban escalation of 429.
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: http %d", domain.ErrFetchRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: http %d", domain.ErrFetchInvalidResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: %s", domain.ErrFetchNetwork, err)
	}

	var depth depthResponse
	if err := json.Unmarshal(body, &depth); err != nil {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: %s", domain.ErrFetchInvalidResponse, err)
	}
	if depth.LastUpdateID == 0 {
		api.limiter.ReportResult(symbol.String(), false)
		return nil, fmt.Errorf("%w: missing lastUpdateId", domain.ErrFetchInvalidResponse)
	}

	api.limiter.ReportResult(symbol.String(), true)

	return &domain.OrderBookSnapshot{
		LastUpdateID: depth.LastUpdateID,
		Bids:         depth.Bids,
		Asks:         depth.Asks,
		Timestamp:    time.Now(),
	}, nil
}

// snapshotWeight is the documented request weight of /api/v3/depth per
// limit bucket.
func snapshotWeight(limit int) int {
	switch {
	case limit <= 100:
		return 5
	case limit <= 500:
		return 25
	case limit <= 1000:
		return 50
	default:
		return 250
	}
}
