package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the static configuration surface of the engine, supplied
// once at startup. There is no dynamic reconfiguration.
type Config struct {
	BinanceBaseURL    string `env:"BINANCE_BASE_URL" envDefault:"https://api.binance.com"`
	BinanceWSEndpoint string `env:"BINANCE_WS_ENDPOINT" envDefault:"wss://stream.binance.com:9443/stream"`
	OkxBaseURL        string `env:"OKX_BASE_URL" envDefault:"https://www.okx.com"`
	OkxWSEndpoint     string `env:"OKX_WS_ENDPOINT" envDefault:"wss://ws.okx.com:8443/ws/v5/public"`

	// Books lists the books to maintain as exchange:base_quote pairs,
	// e.g. "binance:btc_usdt,okx:eth_usdt".
	Books []string `env:"BOOKS" envSeparator:"," envDefault:"binance:btc_usdt"`

	DepthLimit       int           `env:"DEPTH_LIMIT" envDefault:"1000"`
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"30s"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`
	MaxErrorCount    int           `env:"MAX_ERROR_COUNT" envDefault:"5"`
	BackoffMin       time.Duration `env:"BACKOFF_MIN" envDefault:"1s"`
	BackoffMax       time.Duration `env:"BACKOFF_MAX" envDefault:"300s"`

	MinSnapshotInterval time.Duration `env:"MIN_SNAPSHOT_INTERVAL" envDefault:"5s"`
	APIWeightBudget     int           `env:"API_WEIGHT_BUDGET" envDefault:"1200"`
	APIWeightWindow     time.Duration `env:"API_WEIGHT_WINDOW" envDefault:"1m"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":8080"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
}

// Load reads .env when present and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config from env: %w", err)
	}

	return &cfg, nil
}
