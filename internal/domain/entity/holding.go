package entity

import (
	"github.com/shopspring/decimal"
)

// AssetID identifies an asset in the market-data provider namespace (e.g. "bitcoin").
type AssetID string

// Holding is a quantity of one asset owned by the user.
type Holding struct {
	AssetID  AssetID         `json:"assetId"`
	Quantity decimal.Decimal `json:"quantity"`
}

// AssetQuote is a priced snapshot of one asset, consumed immediately by valuation.
type AssetQuote struct {
	AssetID   AssetID         `json:"assetId"`
	PriceUSD  decimal.Decimal `json:"priceUsd"`
	Change24h decimal.Decimal `json:"change24h"` // percent, signed
}

// AssetInfo is display metadata for an asset.
type AssetInfo struct {
	Name   string `json:"name" yaml:"name"`
	Symbol string `json:"symbol" yaml:"symbol"`
	Image  string `json:"image,omitempty" yaml:"image,omitempty"`
}
