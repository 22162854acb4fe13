package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.PriceFeed.BaseURL)
	assert.Equal(t, "usd", cfg.PriceFeed.VsCurrency)
	assert.Equal(t, 10*time.Second, cfg.PriceFeedTimeout())
	assert.Equal(t, 10*time.Second, cfg.BridgeTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceWindow())
	assert.Equal(t, 0.005, cfg.Bridge.Slippage)
	assert.Contains(t, cfg.Assets, "bitcoin")
}

func TestLoad_ReadsYAMLAndKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
bridge:
  debounceMillis: 250
  slippage: 0.01
assets:
  bitcoin:
    name: Bitcoin Core
    symbol: XBT
networks:
  - chain: eth
    rpcURL: https://rpc.example.org
holdings:
  - assetId: bitcoin
    quantity: "0.5"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceWindow())
	assert.Equal(t, 0.01, cfg.Bridge.Slippage)
	assert.Equal(t, "XBT", cfg.Assets["bitcoin"].Symbol)
	assert.Contains(t, cfg.Assets, "ethereum", "defaults fill in assets the file does not mention")
	assert.Equal(t, "https://rpc.example.org", cfg.RPCURLFor("ETH"))
	require.Len(t, cfg.Holdings, 1)
	assert.Equal(t, "0.5", cfg.Holdings[0].Quantity)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "priceFeed:\n  baseURL: https://file.example.org\n")
	t.Setenv("PRICE_FEED_BASE_URL", "https://env.example.org")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.org", cfg.PriceFeed.BaseURL)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unterminated"))
		assert.Error(t, err)
	})
	t.Run("slippage above one", func(t *testing.T) {
		_, err := Load(writeConfig(t, "bridge:\n  slippage: 5\n"))
		assert.Error(t, err)
	})
	t.Run("holding without asset id", func(t *testing.T) {
		_, err := Load(writeConfig(t, "holdings:\n  - quantity: \"1\"\n"))
		assert.Error(t, err)
	})
}

func TestConfig_CatalogAndHoldings(t *testing.T) {
	cfg := &Config{
		Assets:   map[string]AssetConfig{"bitcoin": {Name: "Bitcoin", Symbol: "BTC"}},
		Holdings: []HoldingConfig{{AssetID: " bitcoin ", Quantity: "0.5"}},
	}

	catalog := cfg.AssetCatalog()
	assert.Equal(t, "BTC", catalog["bitcoin"].Symbol)

	holdings, err := cfg.InitialHoldings()
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "bitcoin", string(holdings[0].AssetID))
	assert.Equal(t, "0.5", holdings[0].Quantity.String())

	cfg.Holdings = []HoldingConfig{{AssetID: "bitcoin", Quantity: "lots"}}
	_, err = cfg.InitialHoldings()
	assert.Error(t, err)
}
