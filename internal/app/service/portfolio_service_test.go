package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
	"portfolio_bridge/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPortfolio(prices *fakePriceSource, wallets port.WalletRegistry) (*PortfolioServiceImpl, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	engine := NewValuationEngine(map[entity.AssetID]entity.AssetInfo{"bitcoin": {Name: "Bitcoin", Symbol: "BTC"}})
	return NewPortfolioService(engine, prices, wallets, port.NopLogger(), m), m
}

func TestPortfolio_RefreshValuesHoldings(t *testing.T) {
	prices := &fakePriceSource{quotes: map[entity.AssetID]entity.AssetQuote{"bitcoin": priceQuote("60000", "2")}}
	svc, _ := newTestPortfolio(prices, nil)
	defer svc.Close()

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "0.5")}))
	require.NoError(t, svc.RefreshPrices(context.Background()))

	view := svc.View()
	assert.True(t, view.Valued)
	assert.False(t, view.Stale)
	require.Len(t, view.Snapshot.Assets, 1)
	assert.Equal(t, "BTC", view.Snapshot.Assets[0].Symbol)
	assert.True(t, view.Snapshot.TotalBalance.Equal(dec("30000")))
	assert.True(t, view.Snapshot.WeightedChange24h.Equal(dec("2")))
	assert.True(t, view.GrandTotal.Equal(dec("30000")))
}

func TestPortfolio_FailedRefreshKeepsLastSnapshot(t *testing.T) {
	prices := &fakePriceSource{quotes: map[entity.AssetID]entity.AssetQuote{"bitcoin": priceQuote("100", "1")}}
	svc, _ := newTestPortfolio(prices, nil)
	defer svc.Close()

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "2")}))
	require.NoError(t, svc.RefreshPrices(context.Background()))
	before := svc.View()

	ch, unsubscribe := svc.Subscribe()
	defer unsubscribe()
	<-ch

	prices.set(nil, &entity.FetchError{Provider: "coingecko", Reason: "timeout"})
	err := svc.RefreshPrices(context.Background())

	var fetchErr *entity.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, before, svc.View())
	select {
	case v := <-ch:
		t.Fatalf("unexpected publication after failed refresh: %+v", v)
	default:
	}
}

func TestPortfolio_MissingQuotesAreSkipped(t *testing.T) {
	prices := &fakePriceSource{quotes: map[entity.AssetID]entity.AssetQuote{"bitcoin": priceQuote("100", "5")}}
	svc, _ := newTestPortfolio(prices, nil)
	defer svc.Close()

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "1"), holding("delisted", "50")}))
	require.NoError(t, svc.RefreshPrices(context.Background()))

	view := svc.View()
	require.Len(t, view.Snapshot.Assets, 1)
	assert.True(t, view.Snapshot.WeightedChange24h.Equal(dec("5")))
	assert.Len(t, view.Holdings, 2)
}

func TestPortfolio_SetHoldingsMarksStale(t *testing.T) {
	prices := &fakePriceSource{quotes: map[entity.AssetID]entity.AssetQuote{"bitcoin": priceQuote("100", "0")}}
	svc, _ := newTestPortfolio(prices, nil)
	defer svc.Close()

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "1")}))
	assert.False(t, svc.View().Stale, "never valued views are not stale")

	require.NoError(t, svc.RefreshPrices(context.Background()))
	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "3")}))

	view := svc.View()
	assert.True(t, view.Stale)
	assert.True(t, view.Snapshot.TotalBalance.Equal(dec("100")))
	assert.Equal(t, uint64(2), view.HoldingsVersion)
}

func TestPortfolio_RejectsInvalidHoldings(t *testing.T) {
	svc, _ := newTestPortfolio(&fakePriceSource{}, nil)
	defer svc.Close()

	err := svc.SetHoldings([]entity.Holding{holding("bitcoin", "-1")})
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	err = svc.SetHoldings([]entity.Holding{{Quantity: dec("1")}})
	var valErr *entity.ValidationError
	assert.ErrorAs(t, err, &valErr)
	assert.Zero(t, svc.View().HoldingsVersion)
}

type supersedingPriceSource struct {
	*fakePriceSource
	svc *PortfolioServiceImpl
}

func (s *supersedingPriceSource) FetchPrices(ctx context.Context, ids []entity.AssetID) (map[entity.AssetID]entity.AssetQuote, error) {
	if s.fakePriceSource.calls() == 0 {
		_ = s.svc.SetHoldings([]entity.Holding{holding("bitcoin", "9")})
	}
	return s.fakePriceSource.FetchPrices(ctx, ids)
}

func TestPortfolio_DiscardsValuationOfSupersededHoldings(t *testing.T) {
	inner := &fakePriceSource{quotes: map[entity.AssetID]entity.AssetQuote{"bitcoin": priceQuote("10", "0")}}
	src := &supersedingPriceSource{fakePriceSource: inner}
	engine := NewValuationEngine(nil)
	svc := NewPortfolioService(engine, src, nil, port.NopLogger(), nil)
	src.svc = svc
	defer svc.Close()

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "1")}))
	require.NoError(t, svc.RefreshPrices(context.Background()))
	assert.False(t, svc.View().Valued)

	require.NoError(t, svc.RefreshPrices(context.Background()))
	view := svc.View()
	assert.True(t, view.Valued)
	assert.True(t, view.Snapshot.TotalBalance.Equal(dec("90")))
}

// gatedPriceSource holds its first fetch until release is closed.
type gatedPriceSource struct {
	*fakePriceSource
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGatedPriceSource(quotes map[entity.AssetID]entity.AssetQuote) *gatedPriceSource {
	return &gatedPriceSource{
		fakePriceSource: &fakePriceSource{quotes: quotes},
		started:         make(chan struct{}),
		release:         make(chan struct{}),
	}
}

func (s *gatedPriceSource) FetchPrices(ctx context.Context, ids []entity.AssetID) (map[entity.AssetID]entity.AssetQuote, error) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.started)
		<-s.release
	}
	return s.fakePriceSource.FetchPrices(ctx, ids)
}

func TestPortfolio_RefreshAfterSetHoldingsValuesNewHoldings(t *testing.T) {
	src := newGatedPriceSource(map[entity.AssetID]entity.AssetQuote{
		"bitcoin":  priceQuote("100", "0"),
		"ethereum": priceQuote("10", "0"),
	})
	svc := NewPortfolioService(NewValuationEngine(nil), src, nil, port.NopLogger(), nil)
	defer svc.Close()

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "1")}))
	firstDone := make(chan error, 1)
	go func() { firstDone <- svc.RefreshPrices(context.Background()) }()
	<-src.started

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("ethereum", "2")}))
	require.NoError(t, svc.RefreshPrices(context.Background()))

	view := svc.View()
	assert.True(t, view.Valued)
	assert.False(t, view.Stale)
	assert.True(t, view.Snapshot.TotalBalance.Equal(dec("20")), "got %s", view.Snapshot.TotalBalance)

	close(src.release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 2, src.calls())
	assert.True(t, svc.View().Snapshot.TotalBalance.Equal(dec("20")), "the older fetch is discarded")
}

func TestPortfolio_CancelledCallerDoesNotAbortSharedRefresh(t *testing.T) {
	src := newGatedPriceSource(map[entity.AssetID]entity.AssetQuote{"bitcoin": priceQuote("100", "0")})
	svc := NewPortfolioService(NewValuationEngine(nil), src, nil, port.NopLogger(), nil)
	defer svc.Close()
	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "3")}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RefreshPrices(ctx) }()
	<-src.started

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(src.release)
	require.Eventually(t, func() bool { return svc.View().Valued }, time.Second, 5*time.Millisecond)
	assert.True(t, svc.View().Snapshot.TotalBalance.Equal(dec("300")))
}

func TestPortfolio_SelectWindow(t *testing.T) {
	prices := &fakePriceSource{quotes: map[entity.AssetID]entity.AssetQuote{"bitcoin": priceQuote("10000", "0")}}
	svc, _ := newTestPortfolio(prices, nil)
	defer svc.Close()

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "1")}))
	require.NoError(t, svc.RefreshPrices(context.Background()))

	got := svc.SelectWindow(entity.PnLWindowMonth)
	assert.True(t, got.Total.Equal(dec("1300")))
	assert.True(t, got.TotalPct.Equal(dec("13")))
	assert.Equal(t, entity.PnLWindowMonth, svc.View().Window)
}

func TestPortfolio_RollsUpWallets(t *testing.T) {
	registry := NewWalletRegistry(port.NopLogger())
	prices := &fakePriceSource{quotes: map[entity.AssetID]entity.AssetQuote{"bitcoin": priceQuote("100", "0")}}
	svc, _ := newTestPortfolio(prices, registry)
	registry.OnChange(svc.ApplyWallets)
	defer svc.Close()

	_, err := registry.Add("Savings", dec("250"))
	require.NoError(t, err)
	assert.True(t, svc.View().GrandTotal.Equal(dec("250")))

	require.NoError(t, svc.SetHoldings([]entity.Holding{holding("bitcoin", "1")}))
	require.NoError(t, svc.RefreshPrices(context.Background()))

	view := svc.View()
	assert.True(t, view.Wallets.Total.Equal(dec("250")))
	assert.True(t, view.GrandTotal.Equal(dec("350")))

	svc.ApplyWallets(entity.WalletsSnapshot{Total: dec("1"), Version: 0})
	assert.True(t, svc.View().GrandTotal.Equal(dec("350")), "older snapshots are ignored")
}
