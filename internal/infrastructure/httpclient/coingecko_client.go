package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
	"portfolio_bridge/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const coinGeckoProvider = "coingecko"

// CoinGeckoOptions configures the price-feed client.
type CoinGeckoOptions struct {
	BaseURL               string
	APIKey                string
	VsCurrency            string
	Timeout               time.Duration
	MaxIDsPerRequest      int
	MaxConcurrentRequests int
	RequestsPerSecond     float64
}

// coinGeckoClient implements port.PriceSource against the simple/price endpoint.
type coinGeckoClient struct {
	client        *fasthttp.Client
	baseURL       string
	apiKey        string
	vsCurrency    string
	timeout       time.Duration
	maxIDs        int
	maxConcurrent int
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewCoinGeckoClient creates a new price-feed client.
func NewCoinGeckoClient(opts CoinGeckoOptions, logger *zap.Logger) port.PriceSource {
	if opts.VsCurrency == "" {
		opts.VsCurrency = "usd"
	}
	if opts.MaxConcurrentRequests <= 0 {
		opts.MaxConcurrentRequests = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &coinGeckoClient{
		client:        &fasthttp.Client{Name: "portfolio_bridge"},
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		apiKey:        opts.APIKey,
		vsCurrency:    strings.ToLower(opts.VsCurrency),
		timeout:       opts.Timeout,
		maxIDs:        opts.MaxIDsPerRequest,
		maxConcurrent: opts.MaxConcurrentRequests,
		limiter:       rate.NewLimiter(limit, 1),
		logger:        logger.Named("CoinGeckoClient"),
	}
}

// FetchPrices implements port.PriceSource. Ids are deduplicated and requested in batches;
// any failing batch fails the whole fetch so callers never publish a partial pass.
func (c *coinGeckoClient) FetchPrices(ctx context.Context, ids []entity.AssetID) (map[entity.AssetID]entity.AssetQuote, error) {
	unique := utils.UniqueSorted(ids)
	result := make(map[entity.AssetID]entity.AssetQuote, len(unique))
	if len(unique) == 0 {
		return result, nil
	}

	raw := make([]string, len(unique))
	for i, id := range unique {
		raw[i] = string(id)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for _, batch := range utils.BatchStrings(raw, c.maxIDs) {
		g.Go(func() error {
			quotes, err := c.fetchBatch(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, q := range quotes {
				result[id] = q
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *coinGeckoClient) fetchBatch(ctx context.Context, ids []string) (map[entity.AssetID]entity.AssetQuote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &entity.FetchError{Provider: coinGeckoProvider, Reason: "rate limiter wait aborted", Cause: err}
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", c.vsCurrency)
	query.Set("include_24hr_change", "true")
	requestURL := c.baseURL + "/simple/price?" + query.Encode()

	c.logger.Debug("Requesting prices", zap.String("url", requestURL), zap.Int("ids", len(ids)))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := do(ctx, c.client, req, resp, c.timeout); err != nil {
		c.logger.Warn("Price request failed", zap.String("url", requestURL), zap.Error(err))
		reason := "transport failure"
		if isTimeout(err) {
			reason = "timeout"
		}
		return nil, &entity.FetchError{Provider: coinGeckoProvider, Reason: reason, Cause: err}
	}

	rawBody := resp.Body()
	if !statusOK(resp.StatusCode()) {
		c.logger.Warn("Price feed returned non-success status",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", truncateBody(rawBody)),
		)
		return nil, &entity.FetchError{Provider: coinGeckoProvider, Status: resp.StatusCode(), Reason: "non-success status"}
	}

	quotes, err := c.decode(rawBody)
	if err != nil {
		c.logger.Warn("Malformed price payload", zap.ByteString("responseBody", truncateBody(rawBody)), zap.Error(err))
		return nil, &entity.FetchError{Provider: coinGeckoProvider, Reason: "malformed payload", Cause: err}
	}

	if len(quotes) < len(ids) {
		c.logger.Debug("Provider omitted unknown ids", zap.Int("requested", len(ids)), zap.Int("returned", len(quotes)))
	}
	return quotes, nil
}

// decode parses {"<id>": {"usd": 1.0, "usd_24h_change": -0.5}}. An id without a price is omitted.
func (c *coinGeckoClient) decode(body []byte) (map[entity.AssetID]entity.AssetQuote, error) {
	var payload map[string]map[string]*decimal.Decimal
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("empty payload")
	}

	changeKey := c.vsCurrency + "_24h_change"
	quotes := make(map[entity.AssetID]entity.AssetQuote, len(payload))
	for id, fields := range payload {
		price := fields[c.vsCurrency]
		if price == nil {
			continue
		}
		change := decimal.Zero
		if ch := fields[changeKey]; ch != nil {
			change = *ch
		}
		quotes[entity.AssetID(id)] = entity.AssetQuote{
			AssetID:   entity.AssetID(id),
			PriceUSD:  *price,
			Change24h: change,
		}
	}
	return quotes, nil
}
