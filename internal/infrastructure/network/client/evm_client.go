package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EVMClient implements port.BalanceClient for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	def            entity.ChainDefinition
	rpcCallTimeout time.Duration
}

var _ port.BalanceClient = (*EVMClient)(nil)

// NewEVMClient dials the chain RPC endpoint.
func NewEVMClient(def entity.ChainDefinition, connectionTimeout, rpcCallTimeout time.Duration) (*EVMClient, error) {
	if def.VM != entity.VMKindEVM {
		return nil, fmt.Errorf("chain %s is not an EVM chain", def.Chain)
	}
	if def.PrimaryRPCURL == "" {
		return nil, fmt.Errorf("chain %s has no RPC URL", def.Chain)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, def.PrimaryRPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", def.PrimaryRPCURL, err)
	}
	return &EVMClient{ethClient: client, def: def, rpcCallTimeout: rpcCallTimeout}, nil
}

// NativeBalance returns the latest native balance of walletAddress in wei.
func (c *EVMClient) NativeBalance(ctx context.Context, walletAddress string) (*big.Int, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidAddress, walletAddress)
	}

	rpcCallCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	var result hexutil.Big
	batch := []rpc.BatchElem{{
		Method: "eth_getBalance",
		Args:   []interface{}{common.HexToAddress(walletAddress), "latest"},
		Result: &result,
	}}
	if err := c.ethClient.Client().BatchCallContext(rpcCallCtx, batch); err != nil {
		return nil, fmt.Errorf("RPC batch call failed on %s: %w", c.def.Name, err)
	}
	if batch[0].Error != nil {
		return nil, fmt.Errorf("failed to fetch %s balance for %s: %w", c.def.NativeSymbol, walletAddress, batch[0].Error)
	}
	return result.ToInt(), nil
}

// Definition returns the chain definition for this client.
func (c *EVMClient) Definition() entity.ChainDefinition {
	return c.def
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}
