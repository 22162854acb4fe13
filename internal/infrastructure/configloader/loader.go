package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"portfolio_bridge/internal/domain/entity"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP presentation adapter settings.
type ServerConfig struct {
	Port                string `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int    `yaml:"idleTimeoutSeconds"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PriceFeedConfig holds the market-data provider settings.
type PriceFeedConfig struct {
	BaseURL               string  `yaml:"baseURL"`
	APIKey                string  `yaml:"apiKey"`
	VsCurrency            string  `yaml:"vsCurrency"`
	RequestTimeoutMillis  int64   `yaml:"requestTimeoutMillis"`
	MaxIDsPerRequest      int     `yaml:"maxIdsPerRequest"`
	MaxConcurrentRequests int     `yaml:"maxConcurrentRequests"`
	RequestsPerSecond     float64 `yaml:"requestsPerSecond"`
	CacheTTLSeconds       int     `yaml:"cacheTTLSeconds"`
}

// BridgeConfig holds the routing provider and orchestrator settings.
type BridgeConfig struct {
	BaseURL                 string  `yaml:"baseURL"`
	ExecutionURL            string  `yaml:"executionURL"`
	APIKey                  string  `yaml:"apiKey"`
	Slippage                float64 `yaml:"slippage"`
	RequestTimeoutMillis    int64   `yaml:"requestTimeoutMillis"`
	DebounceMillis          int64   `yaml:"debounceMillis"`
	RequestsPerSecond       float64 `yaml:"requestsPerSecond"`
	ExecutedQuoteTTLMinutes int     `yaml:"executedQuoteTTLMinutes"`
	DefaultFrom             string  `yaml:"defaultFrom"`
	DefaultTo               string  `yaml:"defaultTo"`
}

// AssetConfig is display metadata for one price-feed asset id.
type AssetConfig struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
	Image  string `yaml:"image"`
}

// NetworkConfig overrides the RPC endpoint of a supported chain.
type NetworkConfig struct {
	Chain  string `yaml:"chain"`
	RPCURL string `yaml:"rpcURL"`
}

// HoldingConfig is an initial in-memory holding.
type HoldingConfig struct {
	AssetID  string `yaml:"assetId"`
	Quantity string `yaml:"quantity"`
}

// PerformanceConfig holds RPC tuning for on-chain holdings loading.
type PerformanceConfig struct {
	RPCCallTimeoutSeconds int `yaml:"rpcCallTimeoutSeconds"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig           `yaml:"server"`
	Logging   LoggingConfig          `yaml:"logging"`
	PriceFeed PriceFeedConfig        `yaml:"priceFeed"`
	Bridge    BridgeConfig           `yaml:"bridge"`
	Assets    map[string]AssetConfig `yaml:"assets"`
	Networks  []NetworkConfig        `yaml:"networks"`
	Holdings  []HoldingConfig        `yaml:"holdings"`
	// WatchListPath lists EVM addresses whose native balances are added to the holdings at startup.
	WatchListPath string            `yaml:"watchListPath"`
	Performance   PerformanceConfig `yaml:"performance"`
}

// PriceFeedTimeout is the per-request bound of the price feed.
func (c *Config) PriceFeedTimeout() time.Duration {
	return time.Duration(c.PriceFeed.RequestTimeoutMillis) * time.Millisecond
}

// BridgeTimeout bounds quote and execution calls.
func (c *Config) BridgeTimeout() time.Duration {
	return time.Duration(c.Bridge.RequestTimeoutMillis) * time.Millisecond
}

// DebounceWindow is the quiet period before a bridge quote is requested.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Bridge.DebounceMillis) * time.Millisecond
}

// RPCURLFor returns the configured RPC override for chain, if any.
func (c *Config) RPCURLFor(chain string) string {
	for _, n := range c.Networks {
		if strings.EqualFold(n.Chain, chain) {
			return n.RPCURL
		}
	}
	return ""
}

// AssetCatalog converts the configured asset metadata into the valuation catalog.
func (c *Config) AssetCatalog() map[entity.AssetID]entity.AssetInfo {
	catalog := make(map[entity.AssetID]entity.AssetInfo, len(c.Assets))
	for id, a := range c.Assets {
		catalog[entity.AssetID(id)] = entity.AssetInfo{Name: a.Name, Symbol: a.Symbol, Image: a.Image}
	}
	return catalog
}

// InitialHoldings parses the configured holdings.
func (c *Config) InitialHoldings() ([]entity.Holding, error) {
	holdings := make([]entity.Holding, 0, len(c.Holdings))
	for i, h := range c.Holdings {
		qty, err := decimal.NewFromString(strings.TrimSpace(h.Quantity))
		if err != nil {
			return nil, fmt.Errorf("holdings[%d]: invalid quantity %q: %w", i, h.Quantity, err)
		}
		holdings = append(holdings, entity.Holding{AssetID: entity.AssetID(strings.TrimSpace(h.AssetID)), Quantity: qty})
	}
	return holdings, nil
}

var defaultAssets = map[string]AssetConfig{
	"bitcoin":     {Name: "Bitcoin", Symbol: "BTC", Image: "https://assets.coingecko.com/coins/images/1/large/bitcoin.png"},
	"ethereum":    {Name: "Ethereum", Symbol: "ETH", Image: "https://assets.coingecko.com/coins/images/279/large/ethereum.png"},
	"solana":      {Name: "Solana", Symbol: "SOL", Image: "https://assets.coingecko.com/coins/images/4128/large/solana.png"},
	"binancecoin": {Name: "BNB", Symbol: "BNB", Image: "https://assets.coingecko.com/coins/images/825/large/bnb-icon2_2x.png"},
	"usd-coin":    {Name: "USDC", Symbol: "USDC", Image: "https://assets.coingecko.com/coins/images/6319/large/usdc.png"},
}

// Load reads the YAML configuration at path, applies defaults and then environment overrides.
// A missing file is not an error: the defaults describe a working setup against public endpoints.
// Variables from a .env file in the working directory are loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		logrus.Infof("Loading configuration from path: %s", path)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		logrus.Warnf("Config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 10
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		// execution may take up to the bridge timeout
		cfg.Server.WriteTimeoutSeconds = 15
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		cfg.Server.IdleTimeoutSeconds = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.PriceFeed.BaseURL == "" {
		cfg.PriceFeed.BaseURL = "https://api.coingecko.com/api/v3"
		logrus.Infof("PriceFeed.BaseURL not set, defaulting to %s", cfg.PriceFeed.BaseURL)
	}
	if cfg.PriceFeed.VsCurrency == "" {
		cfg.PriceFeed.VsCurrency = "usd"
	}
	if cfg.PriceFeed.RequestTimeoutMillis <= 0 {
		cfg.PriceFeed.RequestTimeoutMillis = 10000
		logrus.Infof("PriceFeed.RequestTimeoutMillis not set, defaulting to %d ms", cfg.PriceFeed.RequestTimeoutMillis)
	}
	if cfg.PriceFeed.MaxIDsPerRequest <= 0 {
		cfg.PriceFeed.MaxIDsPerRequest = 50
	}
	if cfg.PriceFeed.MaxConcurrentRequests <= 0 {
		cfg.PriceFeed.MaxConcurrentRequests = 4
	}
	if cfg.PriceFeed.RequestsPerSecond <= 0 {
		cfg.PriceFeed.RequestsPerSecond = 5
	}
	if cfg.PriceFeed.CacheTTLSeconds < 0 {
		cfg.PriceFeed.CacheTTLSeconds = 0
	} else if cfg.PriceFeed.CacheTTLSeconds == 0 {
		cfg.PriceFeed.CacheTTLSeconds = 15
	}

	if cfg.Bridge.BaseURL == "" {
		cfg.Bridge.BaseURL = "https://li.quest/v1"
		logrus.Infof("Bridge.BaseURL not set, defaulting to %s", cfg.Bridge.BaseURL)
	}
	if cfg.Bridge.Slippage <= 0 {
		cfg.Bridge.Slippage = 0.005
	}
	if cfg.Bridge.RequestTimeoutMillis <= 0 {
		cfg.Bridge.RequestTimeoutMillis = 10000
		logrus.Infof("Bridge.RequestTimeoutMillis not set, defaulting to %d ms", cfg.Bridge.RequestTimeoutMillis)
	}
	if cfg.Bridge.DebounceMillis <= 0 {
		cfg.Bridge.DebounceMillis = 500
	}
	if cfg.Bridge.RequestsPerSecond <= 0 {
		cfg.Bridge.RequestsPerSecond = 2
	}
	if cfg.Bridge.ExecutedQuoteTTLMinutes <= 0 {
		cfg.Bridge.ExecutedQuoteTTLMinutes = 30
	}
	if cfg.Bridge.DefaultFrom == "" {
		cfg.Bridge.DefaultFrom = "SOL"
	}
	if cfg.Bridge.DefaultTo == "" {
		cfg.Bridge.DefaultTo = "ETH"
	}

	if cfg.Assets == nil {
		cfg.Assets = make(map[string]AssetConfig, len(defaultAssets))
	}
	for id, asset := range defaultAssets {
		if _, ok := cfg.Assets[id]; !ok {
			cfg.Assets[id] = asset
		}
	}

	if cfg.WatchListPath == "" {
		cfg.WatchListPath = "data/wallets.txt"
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"PORTFOLIO_BRIDGE_PORT", &cfg.Server.Port},
		{"PORTFOLIO_BRIDGE_LOG_LEVEL", &cfg.Logging.Level},
		{"PRICE_FEED_BASE_URL", &cfg.PriceFeed.BaseURL},
		{"PRICE_FEED_API_KEY", &cfg.PriceFeed.APIKey},
		{"BRIDGE_BASE_URL", &cfg.Bridge.BaseURL},
		{"BRIDGE_API_KEY", &cfg.Bridge.APIKey},
		{"BRIDGE_EXECUTION_URL", &cfg.Bridge.ExecutionURL},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.target = v
			logrus.Infof("Config value overridden from environment: %s", o.key)
		}
	}
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.Bridge.Slippage >= 1 {
		return fmt.Errorf("bridge.slippage must be a fraction below 1, got %v", c.Bridge.Slippage)
	}
	if c.Bridge.DefaultFrom != "" && strings.EqualFold(c.Bridge.DefaultFrom, c.Bridge.DefaultTo) {
		logrus.Warnf("Bridge defaultFrom and defaultTo are both %s; quotes stay idle until the user picks another chain", c.Bridge.DefaultFrom)
	}
	for i, h := range c.Holdings {
		if strings.TrimSpace(h.AssetID) == "" {
			return fmt.Errorf("holdings[%d]: assetId is required", i)
		}
	}
	return nil
}
