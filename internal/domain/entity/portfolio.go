package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioAsset is one valued line of a portfolio snapshot.
type PortfolioAsset struct {
	AssetID    AssetID         `json:"assetId"`
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Change24h  decimal.Decimal `json:"change24h"`
	Image      string          `json:"image,omitempty"`
}

// PortfolioSnapshot is a point-in-time valuation of the whole portfolio.
// It is superseded, never mutated, by the next valuation pass.
type PortfolioSnapshot struct {
	Assets            []PortfolioAsset `json:"assets"`
	TotalBalance      decimal.Decimal  `json:"totalBalance"`
	WeightedChange24h decimal.Decimal  `json:"weightedChange24h"`
	AbsoluteChange24h decimal.Decimal  `json:"absoluteChange24h"`
}

// PortfolioView is the published state of the portfolio container.
type PortfolioView struct {
	Holdings        []Holding         `json:"holdings"`
	HoldingsVersion uint64            `json:"holdingsVersion"`
	Snapshot        PortfolioSnapshot `json:"snapshot"`
	Valued          bool              `json:"valued"`
	Window          PnLWindow         `json:"window"`
	PnL             PnLResult         `json:"pnl"`
	Wallets         WalletsSnapshot   `json:"wallets"`
	GrandTotal      decimal.Decimal   `json:"grandTotal"`
	// Stale is set when the snapshot no longer reflects the current holdings list.
	Stale     bool      `json:"stale"`
	UpdatedAt time.Time `json:"updatedAt"`
}
