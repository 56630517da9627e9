package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/spooky-finn/go-orderbook-sync/config"
	"github.com/spooky-finn/go-orderbook-sync/domain"
	"github.com/spooky-finn/go-orderbook-sync/helpers"
	promclient "github.com/spooky-finn/go-orderbook-sync/infrastructure/prometheus"
	"github.com/spooky-finn/go-orderbook-sync/provider"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %s", err)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	requests, err := parseBookRequests(cfg.Books)
	if err != nil {
		logrus.Fatalf("invalid BOOKS config: %s", err)
	}

	connManager := provider.NewConnectionManager(cfg)
	connManager.Init()

	manager := domain.NewManager(connManager, domain.SynchronizerConfig{
		DepthLimit:       cfg.DepthLimit,
		SnapshotInterval: cfg.SnapshotInterval,
		FetchTimeout:     cfg.FetchTimeout,
		MaxErrorCount:    cfg.MaxErrorCount,
		BackoffMin:       cfg.BackoffMin,
		BackoffMax:       cfg.BackoffMax,
	})

	if err := manager.Start(requests); err != nil {
		logrus.Fatalf("failed to start orderbook manager: %s", err)
	}

	go promclient.StartPromClientServer(cfg.MetricsAddr)

	// Stand-in for the downstream fan-out layer: drain applied books so
	// slow-consumer drops stay an exception, not the rule.
	go func() {
		for view := range manager.Books() {
			logrus.Debugf("book %s %s id=%d type=%s bids=%d asks=%d",
				view.Exchange, view.Symbol, view.LastUpdateID, view.UpdateType,
				len(view.Bids), len(view.Asks))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Infof("shutting down, final stats: %s", helpers.ToJsonString(manager.Stats()))
	manager.Stop()
	connManager.Close()
}

func parseBookRequests(books []string) ([]domain.BookRequest, error) {
	requests := make([]domain.BookRequest, 0, len(books))
	for _, entry := range books {
		exchange, pair, found := strings.Cut(strings.TrimSpace(entry), ":")
		if !found {
			return nil, domain.ErrUnknownExchange
		}

		symbol, err := domain.NewMarketSymbolFromString(pair)
		if err != nil {
			return nil, err
		}

		requests = append(requests, domain.BookRequest{
			Exchange: exchange,
			Symbol:   symbol,
		})
	}

	return requests, nil
}
