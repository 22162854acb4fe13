package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type submitRequestBody struct {
	QuoteID            string                     `json:"quoteId"`
	FromChain          entity.Chain               `json:"fromChain"`
	ToChain            entity.Chain               `json:"toChain"`
	FromAddress        string                     `json:"fromAddress"`
	TransactionRequest *entity.TransactionRequest `json:"transactionRequest"`
}

type submitResponseBody struct {
	TxHash          string `json:"txHash"`
	TransactionHash string `json:"transactionHash"`
	Message         string `json:"message"`
}

// relayClient implements port.BridgeExecutor by handing the prepared transaction to a relay endpoint.
// Signing and broadcasting happen on the relay side.
type relayClient struct {
	client   *fasthttp.Client
	endpoint string
	apiKey   string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRelayClient creates a new execution client. An empty endpoint makes every submission fail
// with ProviderRejected.
func NewRelayClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) port.BridgeExecutor {
	return &relayClient{
		client:   &fasthttp.Client{Name: "portfolio_bridge"},
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   apiKey,
		timeout:  timeout,
		logger:   logger.Named("RelayClient"),
	}
}

// Submit implements port.BridgeExecutor.
func (c *relayClient) Submit(ctx context.Context, quote entity.BridgeQuote) (string, error) {
	if c.endpoint == "" {
		return "", &entity.ExecutionError{Kind: entity.ExecutionProviderRejected, Reason: "no execution endpoint configured"}
	}

	body, err := json.Marshal(submitRequestBody{
		QuoteID:            quote.ID,
		FromChain:          quote.Request.From,
		ToChain:            quote.Request.To,
		FromAddress:        quote.Request.WalletAddress,
		TransactionRequest: quote.Transaction,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode submission: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("x-lifi-api-key", c.apiKey)
	}
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	c.logger.Info("Submitting bridge transaction", zap.String("quoteId", quote.ID), zap.String("from", string(quote.Request.From)), zap.String("to", string(quote.Request.To)))

	if err := do(ctx, c.client, req, resp, c.timeout); err != nil {
		if isTimeout(err) {
			return "", &entity.ExecutionError{Kind: entity.ExecutionTimeout, Reason: "relay did not answer in time", Cause: err}
		}
		return "", &entity.ExecutionError{Kind: entity.ExecutionConnectionFailed, Reason: "relay unreachable", Cause: err}
	}

	rawBody := resp.Body()
	var parsed submitResponseBody
	decodeErr := json.Unmarshal(rawBody, &parsed)

	if !statusOK(resp.StatusCode()) {
		reason := "relay rejected the transaction"
		if decodeErr == nil && parsed.Message != "" {
			reason = parsed.Message
		}
		c.logger.Error("Relay rejected submission",
			zap.String("quoteId", quote.ID),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", truncateBody(rawBody)))
		return "", &entity.ExecutionError{Kind: entity.ExecutionProviderRejected, Status: resp.StatusCode(), Reason: reason}
	}

	txRef := parsed.TxHash
	if txRef == "" {
		txRef = parsed.TransactionHash
	}
	if decodeErr != nil || txRef == "" {
		return "", &entity.ExecutionError{Kind: entity.ExecutionProviderRejected, Status: resp.StatusCode(), Reason: "relay response carries no transaction reference", Cause: decodeErr}
	}
	return txRef, nil
}
