package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/win-probability/internal/config"
	"github.com/yourusername/win-probability/internal/repository"
)

// NewMarketDataSource selects the market statistics source named in configuration.
// The Postgres store is used as-is; the HTTP feed is wrapped in a rate-limited retrying client.
func NewMarketDataSource(cfg *config.Config, store repository.MarketDataRepository, log *logrus.Logger) (repository.MarketDataRepository, error) {
	switch cfg.MarketData.Source {
	case config.MarketSourcePostgres:
		if store == nil {
			return nil, fmt.Errorf("postgres market data source requires a store")
		}
		return store, nil

	case config.MarketSourceHTTP:
		if cfg.MarketData.URL == "" {
			return nil, fmt.Errorf("market data url is required for the http source")
		}
		httpCfg := DefaultHTTPClientConfig()
		httpCfg.Timeout = cfg.MarketData.Timeout()
		httpCfg.MaxRetries = cfg.MarketData.RetryAttempts
		httpCfg.RateLimit = cfg.MarketData.RequestsPerSecond
		client := NewRateLimitedHTTPClient(httpCfg, log)
		return NewHTTPMarketDataSource(client, cfg.MarketData.URL, cfg.MarketData.APIKey, log), nil

	default:
		return nil, fmt.Errorf("unknown market data source: %s", cfg.MarketData.Source)
	}
}
