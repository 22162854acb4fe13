package service

import (
	"sort"
	"strings"

	"portfolio_bridge/internal/domain/entity"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// pnlMultipliers is a synthetic placeholder for real historical valuation:
// unrealized and realized PnL as fractions of the current total balance.
// Production use requires replacing it with a computation over historical prices.
var pnlMultipliers = map[entity.PnLWindow][2]decimal.Decimal{
	entity.PnLWindowDay:   {decimal.RequireFromString("0.02"), decimal.RequireFromString("-0.005")},
	entity.PnLWindowWeek:  {decimal.RequireFromString("0.045"), decimal.RequireFromString("-0.003")},
	entity.PnLWindowMonth: {decimal.RequireFromString("0.12"), decimal.RequireFromString("0.01")},
	entity.PnLWindowYear:  {decimal.RequireFromString("0.35"), decimal.RequireFromString("0.05")},
	entity.PnLWindowAll:   {decimal.RequireFromString("0.65"), decimal.RequireFromString("0.15")},
}

// ValuationEngine turns holdings and quotes into portfolio snapshots.
// It holds only read-only metadata and is safe for concurrent use.
type ValuationEngine struct {
	catalog map[entity.AssetID]entity.AssetInfo
}

// NewValuationEngine creates an engine with the given asset display catalog.
func NewValuationEngine(catalog map[entity.AssetID]entity.AssetInfo) *ValuationEngine {
	copied := make(map[entity.AssetID]entity.AssetInfo, len(catalog))
	for id, info := range catalog {
		copied[id] = info
	}
	return &ValuationEngine{catalog: copied}
}

// Info returns display metadata for id, falling back to the id itself.
func (e *ValuationEngine) Info(id entity.AssetID) entity.AssetInfo {
	if info, ok := e.catalog[id]; ok {
		return info
	}
	return entity.AssetInfo{Name: string(id), Symbol: strings.ToUpper(string(id))}
}

// Valuate values every holding that has a quote. Holdings without a quote are left out
// entirely; counting them at zero would drag the weighted change toward zero.
// Holdings of the same asset are merged.
func (e *ValuationEngine) Valuate(holdings []entity.Holding, quotes map[entity.AssetID]entity.AssetQuote) entity.PortfolioSnapshot {
	quantities := make(map[entity.AssetID]decimal.Decimal, len(holdings))
	order := make([]entity.AssetID, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := quotes[h.AssetID]; !ok {
			continue
		}
		if q, seen := quantities[h.AssetID]; seen {
			quantities[h.AssetID] = q.Add(h.Quantity)
			continue
		}
		quantities[h.AssetID] = h.Quantity
		order = append(order, h.AssetID)
	}

	assets := make([]entity.PortfolioAsset, 0, len(order))
	total := decimal.Zero
	weightedSum := decimal.Zero
	for _, id := range order {
		quote := quotes[id]
		qty := quantities[id]
		value := qty.Mul(quote.PriceUSD)
		info := e.Info(id)

		assets = append(assets, entity.PortfolioAsset{
			AssetID:    id,
			Name:       info.Name,
			Symbol:     info.Symbol,
			Quantity:   qty,
			UnitPrice:  quote.PriceUSD,
			TotalValue: value,
			Change24h:  quote.Change24h,
			Image:      info.Image,
		})
		total = total.Add(value)
		weightedSum = weightedSum.Add(quote.Change24h.Mul(value))
	}

	sort.SliceStable(assets, func(i, j int) bool {
		if c := assets[i].TotalValue.Cmp(assets[j].TotalValue); c != 0 {
			return c > 0
		}
		return assets[i].AssetID < assets[j].AssetID
	})

	// The divisor is floored at 1 so an empty or all-zero portfolio reports 0 instead of NaN.
	weighted := weightedSum.Div(decimal.Max(one, total))

	return entity.PortfolioSnapshot{
		Assets:            assets,
		TotalBalance:      total,
		WeightedChange24h: weighted,
		AbsoluteChange24h: total.Mul(weighted).Div(hundred),
	}
}

// PnL applies the window multiplier table to the snapshot total.
func (e *ValuationEngine) PnL(snapshot entity.PortfolioSnapshot, window entity.PnLWindow) entity.PnLResult {
	return CalculatePnL(snapshot, window)
}

// CalculatePnL applies the window multiplier table to the snapshot total.
// An unknown window yields a zero result.
func CalculatePnL(snapshot entity.PortfolioSnapshot, window entity.PnLWindow) entity.PnLResult {
	result := entity.PnLResult{
		Window:     window,
		Unrealized: decimal.Zero,
		Realized:   decimal.Zero,
		Total:      decimal.Zero,
		TotalPct:   decimal.Zero,
	}
	m, ok := pnlMultipliers[window]
	if !ok {
		return result
	}

	balance := snapshot.TotalBalance
	result.Unrealized = balance.Mul(m[0])
	result.Realized = balance.Mul(m[1])
	result.Total = result.Unrealized.Add(result.Realized)
	if !balance.IsZero() {
		result.TotalPct = result.Total.Div(balance).Mul(hundred)
	}
	return result
}
