package port

import (
	"context"
	"math/big"

	"portfolio_bridge/internal/domain/entity"
)

// ChainRegistry resolves the static definition of a supported chain.
type ChainRegistry interface {
	Definition(chain entity.Chain) entity.ChainDefinition
	All() []entity.ChainDefinition
}

// BalanceClient reads native balances from one chain.
type BalanceClient interface {
	// NativeBalance returns the balance in smallest units.
	NativeBalance(ctx context.Context, walletAddress string) (*big.Int, error)
	Definition() entity.ChainDefinition
}

// BalanceClientProvider hands out (and caches) balance clients per chain.
type BalanceClientProvider interface {
	GetClient(def entity.ChainDefinition) (BalanceClient, error)
}
