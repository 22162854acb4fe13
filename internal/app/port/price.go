package port

import (
	"context"

	"portfolio_bridge/internal/domain/entity"
)

// PriceSource fetches current USD prices and 24h changes from a market-data provider.
type PriceSource interface {
	// FetchPrices returns a quote for every requested id the provider recognizes.
	// Unknown ids are omitted from the result. An empty request returns an empty map
	// without touching the network. Failures are reported as *entity.FetchError.
	FetchPrices(ctx context.Context, ids []entity.AssetID) (map[entity.AssetID]entity.AssetQuote, error)
}
