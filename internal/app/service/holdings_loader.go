package service

import (
	"context"
	"sync"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
	"portfolio_bridge/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentChainReads = 4

// HoldingsLoaderImpl reads native balances of one wallet across the EVM chains and turns
// them into holdings keyed by the price asset id of each chain.
type HoldingsLoaderImpl struct {
	chains         []entity.ChainDefinition
	clientProvider port.BalanceClientProvider
	logger         port.Logger
}

var _ port.HoldingsLoader = (*HoldingsLoaderImpl)(nil)

// NewHoldingsLoader creates a loader over chains. Non-EVM chains are ignored.
func NewHoldingsLoader(chains []entity.ChainDefinition, clientProvider port.BalanceClientProvider, l port.Logger) *HoldingsLoaderImpl {
	evm := make([]entity.ChainDefinition, 0, len(chains))
	for _, def := range chains {
		if def.VM == entity.VMKindEVM {
			evm = append(evm, def)
		}
	}
	return &HoldingsLoaderImpl{chains: evm, clientProvider: clientProvider, logger: l}
}

// LoadWallet returns the merged holdings of walletAddress. A chain that cannot be read is
// reported as a PortfolioError and skipped; the error return is reserved for an invalid
// address or a cancelled context.
func (l *HoldingsLoaderImpl) LoadWallet(ctx context.Context, walletAddress string) ([]entity.Holding, []entity.PortfolioError, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, nil, &entity.ValidationError{Field: "walletAddress", Reason: "not a valid EVM address", Err: entity.ErrInvalidAddress}
	}

	var (
		mu        sync.Mutex
		balances  = make(map[entity.AssetID]decimal.Decimal)
		order     []entity.AssetID
		failures  []entity.PortfolioError
		recordErr = func(def entity.ChainDefinition, err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, entity.PortfolioError{
				WalletAddress: walletAddress,
				Chain:         def.Chain,
				NativeSymbol:  def.NativeSymbol,
				Message:       err.Error(),
			})
		}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChainReads)
	for _, def := range l.chains {
		g.Go(func() error {
			client, err := l.clientProvider.GetClient(def)
			if err != nil {
				l.logger.Warn("No balance client for chain", "chain", def.Chain, "error", err)
				recordErr(def, err)
				return nil
			}
			raw, err := client.NativeBalance(gctx, walletAddress)
			if err != nil {
				l.logger.Warn("Failed to read native balance", "chain", def.Chain, "wallet", walletAddress, "error", err)
				recordErr(def, err)
				return nil
			}

			amount := utils.FromSmallestUnit(raw, def.Decimals)
			mu.Lock()
			defer mu.Unlock()
			if prev, ok := balances[def.PriceAssetID]; ok {
				balances[def.PriceAssetID] = prev.Add(amount)
			} else {
				balances[def.PriceAssetID] = amount
				order = append(order, def.PriceAssetID)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, failures, err
	}

	holdings := make([]entity.Holding, 0, len(order))
	for _, id := range utils.UniqueSorted(order) {
		if balances[id].IsZero() {
			continue
		}
		holdings = append(holdings, entity.Holding{AssetID: id, Quantity: balances[id]})
	}
	l.logger.Info("Wallet holdings loaded", "wallet", walletAddress, "assets", len(holdings), "failedChains", len(failures))
	return holdings, failures, nil
}
