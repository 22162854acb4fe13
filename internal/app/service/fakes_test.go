package service

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
	networkdefinition "portfolio_bridge/internal/infrastructure/network/definition"

	"github.com/shopspring/decimal"
)

func testChains() *networkdefinition.ChainDefinitionProvider {
	return networkdefinition.NewChainDefinitionProvider(port.NopLogger(), nil)
}

const (
	testEVMAddress    = "0x52908400098527886E0F7030069857D2E4169EE7"
	testSolanaAddress = "7EcDhSYGxXyscszYEp35KHN8vvw3svAuLKTzXwCFLtV"
)

type fakeRouter struct {
	mu       sync.Mutex
	requests []entity.RouteRequest
	estimate entity.RouteEstimate
	err      error
	// release, when set, blocks each call until it is closed or the context ends.
	release chan struct{}
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{estimate: entity.RouteEstimate{
		Tool:        "mayan",
		ToAmount:    "1250000000000000000",
		ToAmountMin: "1240000000000000000",
		GasCostUSD:  decimal.RequireFromString("1.236"),
		Transaction: &entity.TransactionRequest{To: testEVMAddress, Data: "0x", Value: "0x0", ChainID: 1},
	}}
}

func (r *fakeRouter) RequestRoute(ctx context.Context, req entity.RouteRequest) (*entity.RouteEstimate, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	release, est, err := r.release, r.estimate, r.err
	r.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &est, nil
}

func (r *fakeRouter) calls() []entity.RouteRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.RouteRequest(nil), r.requests...)
}

func (r *fakeRouter) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

type fakeExecutor struct {
	mu      sync.Mutex
	submits []entity.BridgeQuote
	txRef   string
	err     error
	started chan struct{}
	release chan struct{}
}

func (e *fakeExecutor) Submit(ctx context.Context, quote entity.BridgeQuote) (string, error) {
	e.mu.Lock()
	e.submits = append(e.submits, quote)
	started, release, txRef, err := e.started, e.release, e.txRef, e.err
	e.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return txRef, err
}

func (e *fakeExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.submits)
}

type fakePriceSource struct {
	mu     sync.Mutex
	quotes map[entity.AssetID]entity.AssetQuote
	err    error
	asked  [][]entity.AssetID
}

func (p *fakePriceSource) FetchPrices(_ context.Context, ids []entity.AssetID) (map[entity.AssetID]entity.AssetQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, append([]entity.AssetID(nil), ids...))
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[entity.AssetID]entity.AssetQuote)
	for _, id := range ids {
		if q, ok := p.quotes[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (p *fakePriceSource) set(quotes map[entity.AssetID]entity.AssetQuote, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes, p.err = quotes, err
}

func (p *fakePriceSource) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.asked)
}

type fakeBalanceClient struct {
	def     entity.ChainDefinition
	balance *big.Int
	err     error
}

func (c *fakeBalanceClient) NativeBalance(context.Context, string) (*big.Int, error) {
	return c.balance, c.err
}

func (c *fakeBalanceClient) Definition() entity.ChainDefinition { return c.def }

type fakeBalanceProvider struct {
	balances map[entity.Chain]*big.Int
	failing  map[entity.Chain]error
}

func (p *fakeBalanceProvider) GetClient(def entity.ChainDefinition) (port.BalanceClient, error) {
	if err, ok := p.failing[def.Chain]; ok {
		return &fakeBalanceClient{def: def, err: err}, nil
	}
	balance, ok := p.balances[def.Chain]
	if !ok {
		return nil, errors.New("no rpc configured")
	}
	return &fakeBalanceClient{def: def, balance: balance}, nil
}

func priceQuote(price, change string) entity.AssetQuote {
	return entity.AssetQuote{PriceUSD: decimal.RequireFromString(price), Change24h: decimal.RequireFromString(change)}
}

func holding(id, qty string) entity.Holding {
	return entity.Holding{AssetID: entity.AssetID(id), Quantity: decimal.RequireFromString(qty)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
