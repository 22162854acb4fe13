package httpclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterOptions configures the routing-provider client.
type RouterOptions struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type routeRequestBody struct {
	FromChain   uint64  `json:"fromChain"`
	ToChain     uint64  `json:"toChain"`
	FromToken   string  `json:"fromToken"`
	ToToken     string  `json:"toToken"`
	FromAmount  string  `json:"fromAmount"`
	FromAddress string  `json:"fromAddress"`
	Slippage    float64 `json:"slippage"`
}

type routeGasCost struct {
	Type      string           `json:"type"`
	Amount    string           `json:"amount"`
	AmountUSD *decimal.Decimal `json:"amountUSD"`
}

type routeResponseBody struct {
	ID       string `json:"id"`
	Tool     string `json:"tool"`
	Estimate *struct {
		ToAmount          string         `json:"toAmount"`
		ToAmountMin       string         `json:"toAmountMin"`
		ExecutionDuration float64        `json:"executionDuration"`
		GasCosts          []routeGasCost `json:"gasCosts"`
	} `json:"estimate"`
	TransactionRequest *struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		ChainID  uint64 `json:"chainId"`
		GasLimit string `json:"gasLimit"`
	} `json:"transactionRequest"`
	Message string `json:"message"`
}

// lifiClient implements port.BridgeRouter against a LI.FI style quote endpoint.
type lifiClient struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLiFiClient creates a new routing-provider client.
func NewLiFiClient(opts RouterOptions, logger *zap.Logger) port.BridgeRouter {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &lifiClient{
		client:  &fasthttp.Client{Name: "portfolio_bridge"},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("LiFiClient"),
	}
}

// RequestRoute implements port.BridgeRouter.
func (c *lifiClient) RequestRoute(ctx context.Context, r entity.RouteRequest) (*entity.RouteEstimate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		kind := entity.QuoteErrorUnreachable
		if errors.Is(err, context.DeadlineExceeded) {
			kind = entity.QuoteErrorTimeout
		}
		return nil, &entity.QuoteError{Kind: kind, Reason: "rate limiter wait aborted", Cause: err}
	}

	body, err := json.Marshal(routeRequestBody{
		FromChain:   r.FromChainID,
		ToChain:     r.ToChainID,
		FromToken:   r.FromToken,
		ToToken:     r.ToToken,
		FromAmount:  r.FromAmount,
		FromAddress: r.FromAddress,
		Slippage:    r.Slippage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode route request: %w", err)
	}

	requestURL := c.baseURL + "/quote"
	c.logger.Debug("Requesting route",
		zap.String("url", requestURL),
		zap.Uint64("fromChain", r.FromChainID),
		zap.Uint64("toChain", r.ToChainID),
		zap.String("fromAmount", r.FromAmount))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-lifi-api-key", c.apiKey)
	}
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if err := do(ctx, c.client, req, resp, c.timeout); err != nil {
		if isTimeout(err) {
			c.logger.Warn("Route request timed out", zap.String("url", requestURL), zap.Error(err))
			return nil, &entity.QuoteError{Kind: entity.QuoteErrorTimeout, Reason: "routing provider did not answer in time", Cause: err}
		}
		c.logger.Warn("Route request failed", zap.String("url", requestURL), zap.Error(err))
		return nil, &entity.QuoteError{Kind: entity.QuoteErrorUnreachable, Reason: "routing provider unreachable", Cause: err}
	}

	rawBody := resp.Body()
	var parsed routeResponseBody
	decodeErr := json.Unmarshal(rawBody, &parsed)

	if !statusOK(resp.StatusCode()) {
		reason := "routing provider rejected the request"
		if decodeErr == nil && parsed.Message != "" {
			reason = parsed.Message
		}
		c.logger.Warn("Routing provider returned non-success status",
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", truncateBody(rawBody)))
		return nil, &entity.QuoteError{Kind: entity.QuoteErrorRejected, Status: resp.StatusCode(), Reason: reason}
	}
	if decodeErr != nil {
		return nil, &entity.QuoteError{Kind: entity.QuoteErrorMalformed, Reason: "undecodable route response", Cause: decodeErr}
	}
	if parsed.Estimate == nil || parsed.Estimate.ToAmount == "" {
		return nil, &entity.QuoteError{Kind: entity.QuoteErrorMalformed, Reason: "route response has no estimate"}
	}

	estimate := &entity.RouteEstimate{
		Tool:              parsed.Tool,
		ToAmount:          parsed.Estimate.ToAmount,
		ToAmountMin:       parsed.Estimate.ToAmountMin,
		GasCostUSD:        decimal.Zero,
		ExecutionDuration: time.Duration(parsed.Estimate.ExecutionDuration * float64(time.Second)),
	}
	for _, gc := range parsed.Estimate.GasCosts {
		if gc.AmountUSD != nil {
			estimate.GasCostUSD = estimate.GasCostUSD.Add(*gc.AmountUSD)
		}
	}
	if tx := parsed.TransactionRequest; tx != nil {
		estimate.Transaction = &entity.TransactionRequest{
			To:       tx.To,
			Data:     tx.Data,
			Value:    tx.Value,
			ChainID:  tx.ChainID,
			GasLimit: tx.GasLimit,
		}
	}

	c.logger.Debug("Route received",
		zap.String("tool", estimate.Tool),
		zap.String("toAmount", estimate.ToAmount),
		zap.String("gasUSD", estimate.GasCostUSD.String()))
	return estimate, nil
}
