package provider

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/spooky-finn/go-orderbook-sync/config"
	"github.com/spooky-finn/go-orderbook-sync/domain"
	"github.com/spooky-finn/go-orderbook-sync/provider/binance"
	"github.com/spooky-finn/go-orderbook-sync/provider/okx"
	"github.com/spooky-finn/go-orderbook-sync/provider/ratelimit"
)

var logger = logrus.WithField("component", "connection-manager")

// ConnectionManager owns the exchange connections and hands out one
// adapter bundle per exchange. Each exchange gets its own snapshot
// limiter since weight budgets are exchange-scoped.
type ConnectionManager struct {
	binanceWS      *binance.StreamClient
	binanceAdapter *binance.Adapter

	okxWS      *okx.StreamClient
	okxAdapter *okx.Adapter
}

func NewConnectionManager(cfg *config.Config) *ConnectionManager {
	binanceWS := binance.NewStreamClient(cfg.BinanceWSEndpoint)
	binanceAdapter := binance.NewAdapter(
		binance.NewSyncAPI(binance.SyncAPIConfig{
			BaseURL:     cfg.BinanceBaseURL,
			DepthLimit:  cfg.DepthLimit,
			HTTPTimeout: cfg.FetchTimeout,
		}, ratelimit.NewSnapshotLimiter(ratelimit.SnapshotLimiterConfig{
			MinInterval:  cfg.MinSnapshotInterval,
			WeightBudget: cfg.APIWeightBudget,
			WeightWindow: cfg.APIWeightWindow,
		})),
		binance.NewStreamAPI(binanceWS),
	)

	okxWS := okx.NewStreamClient(cfg.OkxWSEndpoint)
	okxAdapter := okx.NewAdapter(
		okx.NewSyncAPI(okx.SyncAPIConfig{
			BaseURL:     cfg.OkxBaseURL,
			DepthLimit:  cfg.DepthLimit,
			HTTPTimeout: cfg.FetchTimeout,
		}, ratelimit.NewSnapshotLimiter(ratelimit.SnapshotLimiterConfig{
			MinInterval:  cfg.MinSnapshotInterval,
			WeightBudget: cfg.APIWeightBudget,
			WeightWindow: cfg.APIWeightWindow,
		})),
		okx.NewStreamAPI(okxWS),
	)

	return &ConnectionManager{
		binanceWS:      binanceWS,
		binanceAdapter: binanceAdapter,
		okxWS:          okxWS,
		okxAdapter:     okxAdapter,
	}
}

// Init dials both exchanges concurrently. The stream clients reconnect
// on their own afterwards.
func (cm *ConnectionManager) Init() {
	wg := &sync.WaitGroup{}
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := cm.binanceWS.Connect(); err != nil {
			logger.Warnf("failed to connect to binance ws: %s", err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := cm.okxWS.Connect(); err != nil {
			logger.Warnf("failed to connect to okx ws: %s", err)
		}
	}()

	wg.Wait()
}

func (cm *ConnectionManager) Adapter(exchange string) (domain.ExchangeAdapter, error) {
	switch exchange {
	case "binance":
		return cm.binanceAdapter, nil
	case "okx":
		return cm.okxAdapter, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownExchange, exchange)
}

func (cm *ConnectionManager) Close() {
	_ = cm.binanceWS.Close()
	_ = cm.okxWS.Close()
}
