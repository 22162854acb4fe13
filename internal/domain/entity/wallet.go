package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a named, non-custodial balance kept in the registry.
type Wallet struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WalletsSnapshot is a consistent copy of the registry taken under one lock.
type WalletsSnapshot struct {
	Wallets []Wallet        `json:"wallets"`
	Total   decimal.Decimal `json:"total"`
	Version uint64          `json:"version"`
}
