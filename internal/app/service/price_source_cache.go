package service

import (
	"context"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"

	"github.com/patrickmn/go-cache"
)

// cachedPriceSource serves recently fetched quotes from memory and asks the
// upstream source only for the ids it does not hold.
type cachedPriceSource struct {
	upstream    port.PriceSource
	pricesCache *cache.Cache
	logger      port.Logger
}

// NewCachedPriceSource wraps upstream with a TTL cache. A non-positive ttl disables caching.
func NewCachedPriceSource(upstream port.PriceSource, ttl time.Duration, logger port.Logger) port.PriceSource {
	if ttl <= 0 {
		return upstream
	}
	return &cachedPriceSource{
		upstream:    upstream,
		pricesCache: cache.New(ttl, 2*ttl),
		logger:      logger,
	}
}

// FetchPrices implements port.PriceSource.
func (s *cachedPriceSource) FetchPrices(ctx context.Context, ids []entity.AssetID) (map[entity.AssetID]entity.AssetQuote, error) {
	result := make(map[entity.AssetID]entity.AssetQuote, len(ids))
	var missing []entity.AssetID
	for _, id := range ids {
		if cached, found := s.pricesCache.Get(string(id)); found {
			result[id] = cached.(entity.AssetQuote)
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		if len(ids) > 0 {
			s.logger.Debug("All prices served from cache", "ids", len(ids))
		}
		return result, nil
	}

	fetched, err := s.upstream.FetchPrices(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, q := range fetched {
		s.pricesCache.SetDefault(string(id), q)
		result[id] = q
	}
	s.logger.Debug("Prices fetched", "cached", len(ids)-len(missing), "fetched", len(fetched), "requested", len(missing))
	return result, nil
}
