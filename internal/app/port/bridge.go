package port

import (
	"context"

	"portfolio_bridge/internal/domain/entity"
)

// BridgeRouter asks an external routing provider for a cross-chain route.
type BridgeRouter interface {
	RequestRoute(ctx context.Context, req entity.RouteRequest) (*entity.RouteEstimate, error)
}

// BridgeExecutor submits a prepared route to the provider and returns its transaction reference.
// Errors are reported as *entity.ExecutionError.
type BridgeExecutor interface {
	Submit(ctx context.Context, quote entity.BridgeQuote) (string, error)
}

// BridgeQuoteService quotes and executes bridge transfers.
type BridgeQuoteService interface {
	GetQuote(ctx context.Context, from, to entity.Chain, amount, walletAddress string) (entity.BridgeQuote, error)
	Execute(ctx context.Context, quote entity.BridgeQuote) entity.BridgeExecutionResult
}

// BridgeOrchestrator owns the bridge form state and its quote/execution lifecycle.
type BridgeOrchestrator interface {
	State() entity.BridgeState
	Subscribe() (<-chan entity.BridgeState, func())
	SetAmount(amount string) error
	SetChains(from, to entity.Chain) error
	SwapChains() error
	SetWalletAddress(address string) error
	Requote() error
	Reset() error
	Execute(ctx context.Context) (entity.BridgeExecutionResult, error)
}
