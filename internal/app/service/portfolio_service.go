package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
	"portfolio_bridge/internal/pkg/broadcast"
	"portfolio_bridge/internal/pkg/metrics"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// defaultRefreshTimeout bounds one shared price fetch.
const defaultRefreshTimeout = 10 * time.Second

// PortfolioServiceImpl implements port.PortfolioService. It owns the holdings list,
// revalues it on refreshPrices and publishes immutable PortfolioView snapshots.
type PortfolioServiceImpl struct {
	engine      *ValuationEngine
	priceSource port.PriceSource
	wallets     port.WalletRegistry
	logger      port.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	// refreshTimeout bounds a shared fetch, which outlives the caller that started it.
	refreshTimeout time.Duration

	mu    sync.RWMutex
	view  entity.PortfolioView
	group singleflight.Group
	feed  *broadcast.Broadcaster[entity.PortfolioView]
}

var _ port.PortfolioService = (*PortfolioServiceImpl)(nil)

// NewPortfolioService creates the container. wallets may be nil when no registry is rolled up.
func NewPortfolioService(
	engine *ValuationEngine,
	priceSource port.PriceSource,
	wallets port.WalletRegistry,
	l port.Logger,
	m *metrics.Metrics,
) *PortfolioServiceImpl {
	s := &PortfolioServiceImpl{
		engine:         engine,
		priceSource:    priceSource,
		wallets:        wallets,
		logger:         l,
		metrics:        m,
		now:            time.Now,
		refreshTimeout: defaultRefreshTimeout,
		feed:           broadcast.New[entity.PortfolioView](),
	}
	s.view = entity.PortfolioView{
		Holdings:   []entity.Holding{},
		Snapshot:   emptySnapshot(),
		Window:     entity.PnLWindowDay,
		PnL:        CalculatePnL(emptySnapshot(), entity.PnLWindowDay),
		GrandTotal: decimal.Zero,
		Wallets:    entity.WalletsSnapshot{Total: decimal.Zero},
	}
	if wallets != nil {
		s.view.Wallets = wallets.Snapshot()
		s.view.GrandTotal = s.view.Wallets.Total
	}
	return s
}

func emptySnapshot() entity.PortfolioSnapshot {
	return entity.PortfolioSnapshot{
		Assets:            []entity.PortfolioAsset{},
		TotalBalance:      decimal.Zero,
		WeightedChange24h: decimal.Zero,
		AbsoluteChange24h: decimal.Zero,
	}
}

// View returns the latest published view.
func (s *PortfolioServiceImpl) View() entity.PortfolioView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Subscribe returns a channel that starts with the current view and then carries the latest
// published one. Views a slow subscriber has not read yet are replaced.
func (s *PortfolioServiceImpl) Subscribe() (<-chan entity.PortfolioView, func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feed.Subscribe(s.view)
}

// SetHoldings replaces the holdings list. The current snapshot is kept on display but
// marked stale until the next successful refresh values the new list.
func (s *PortfolioServiceImpl) SetHoldings(holdings []entity.Holding) error {
	copied := make([]entity.Holding, 0, len(holdings))
	for i, h := range holdings {
		if h.AssetID == "" {
			return &entity.ValidationError{Field: fmt.Sprintf("holdings[%d].assetId", i), Reason: "asset id is required"}
		}
		if h.Quantity.IsNegative() {
			return &entity.ValidationError{Field: fmt.Sprintf("holdings[%d].quantity", i), Reason: "quantity cannot be negative", Err: entity.ErrInvalidAmount}
		}
		copied = append(copied, h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Holdings = copied
	s.view.HoldingsVersion++
	s.view.Stale = s.view.Valued
	s.view.UpdatedAt = s.now()
	s.logger.Info("Holdings replaced", "count", len(copied), "version", s.view.HoldingsVersion)
	s.publishLocked()
	return nil
}

// RefreshPrices fetches quotes for the current holdings and publishes a new valuation.
// Calls made for the same holdings version share one fetch. The fetch runs detached from
// ctx, so a caller that gives up only stops waiting for it. On failure nothing is published
// and the error is returned.
func (s *PortfolioServiceImpl) RefreshPrices(ctx context.Context) error {
	s.mu.RLock()
	version := s.view.HoldingsVersion
	s.mu.RUnlock()

	ch := s.group.DoChan(strconv.FormatUint(version, 10), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		return nil, s.refresh(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Refresh coalesced with an in-flight refresh", "version", version)
		}
		return res.Err
	}
}

func (s *PortfolioServiceImpl) refresh(ctx context.Context) error {
	s.mu.RLock()
	holdings := s.view.Holdings
	version := s.view.HoldingsVersion
	s.mu.RUnlock()

	ids := make([]entity.AssetID, 0, len(holdings))
	for _, h := range holdings {
		ids = append(ids, h.AssetID)
	}

	started := s.now()
	quotes, err := s.priceSource.FetchPrices(ctx, ids)
	elapsed := s.now().Sub(started)
	if err != nil {
		s.metrics.ObservePriceFetch(metrics.ResultError, elapsed)
		s.logger.Warn("Price refresh failed, keeping last snapshot", "error", err)
		return err
	}
	s.metrics.ObservePriceFetch(metrics.ResultSuccess, elapsed)

	snapshot := s.engine.Valuate(holdings, quotes)
	if skipped := len(distinctIDs(ids)) - len(snapshot.Assets); skipped > 0 {
		s.logger.Debug("Holdings without quote skipped for this pass", "skipped", skipped)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.HoldingsVersion != version {
		s.metrics.StaleResultDiscarded("prices")
		s.logger.Debug("Discarding valuation of superseded holdings", "valued", version, "current", s.view.HoldingsVersion)
		return nil
	}

	s.view.Snapshot = snapshot
	s.view.Valued = true
	s.view.Stale = false
	s.view.PnL = CalculatePnL(snapshot, s.view.Window)
	if s.wallets != nil {
		s.view.Wallets = s.wallets.Snapshot()
	}
	s.view.GrandTotal = snapshot.TotalBalance.Add(s.view.Wallets.Total)
	s.view.UpdatedAt = s.now()
	s.metrics.SetPortfolioTotal(snapshot.TotalBalance.InexactFloat64())
	s.logger.Info("Portfolio revalued", "assets", len(snapshot.Assets), "total", snapshot.TotalBalance.StringFixed(2))
	s.publishLocked()
	return nil
}

// SelectWindow switches the PnL window and returns the recomputed result.
func (s *PortfolioServiceImpl) SelectWindow(window entity.PnLWindow) entity.PnLResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Window = window
	s.view.PnL = CalculatePnL(s.view.Snapshot, window)
	s.publishLocked()
	return s.view.PnL
}

// ApplyWallets rolls a registry snapshot into the view. Older snapshots are ignored.
func (s *PortfolioServiceImpl) ApplyWallets(snap entity.WalletsSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Version < s.view.Wallets.Version {
		return
	}
	s.view.Wallets = snap
	s.view.GrandTotal = s.view.Snapshot.TotalBalance.Add(snap.Total)
	s.publishLocked()
}

// Close ends every subscription.
func (s *PortfolioServiceImpl) Close() {
	s.feed.Close()
}

func (s *PortfolioServiceImpl) publishLocked() {
	s.feed.Publish(s.view)
}

func distinctIDs(ids []entity.AssetID) map[entity.AssetID]struct{} {
	set := make(map[entity.AssetID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
