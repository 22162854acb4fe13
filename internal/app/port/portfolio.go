package port

import (
	"context"

	"portfolio_bridge/internal/domain/entity"
)

// PortfolioService is the portfolio state container consumed by the presentation layer.
type PortfolioService interface {
	View() entity.PortfolioView
	Subscribe() (<-chan entity.PortfolioView, func())
	SetHoldings(holdings []entity.Holding) error
	RefreshPrices(ctx context.Context) error
	SelectWindow(window entity.PnLWindow) entity.PnLResult
}

// HoldingsLoader turns a wallet address into holdings by reading on-chain balances.
type HoldingsLoader interface {
	LoadWallet(ctx context.Context, walletAddress string) ([]entity.Holding, []entity.PortfolioError, error)
}
