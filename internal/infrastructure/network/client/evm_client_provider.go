package client

import (
	"fmt"
	"sync"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
)

const defaultProviderConnectionTimeout = 10 * time.Second

// evmClientProvider implements port.BalanceClientProvider, dialing each chain once.
type evmClientProvider struct {
	clients           map[entity.Chain]*EVMClient
	mu                sync.Mutex
	logger            port.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
}

// NewEVMClientProvider creates a new EVMClientProvider.
func NewEVMClientProvider(logger port.Logger, rpcCallTimeout time.Duration) port.BalanceClientProvider {
	return &evmClientProvider{
		clients:           make(map[entity.Chain]*EVMClient),
		logger:            logger,
		connectionTimeout: defaultProviderConnectionTimeout,
		rpcCallTimeout:    rpcCallTimeout,
	}
}

// GetClient retrieves a balance client for def, caching it to avoid reconnecting repeatedly.
func (p *evmClientProvider) GetClient(def entity.ChainDefinition) (port.BalanceClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[def.Chain]; exists {
		return client, nil
	}

	p.logger.Info("Creating new EVM client", "chain", def.Chain, "rpc", def.PrimaryRPCURL)
	newClient, err := NewEVMClient(def, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "chain", def.Chain, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", def.Name, err)
	}

	p.clients[def.Chain] = newClient
	return newClient, nil
}

// Close closes every cached client.
func (p *evmClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for chain, c := range p.clients {
		c.Close()
		delete(p.clients, chain)
	}
}
