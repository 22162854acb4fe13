package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
	"portfolio_bridge/internal/pkg/metrics"
	"portfolio_bridge/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// BridgeQuoteOptions tunes BridgeQuoteServiceImpl.
type BridgeQuoteOptions struct {
	Slippage float64
	// Timeout bounds every quote and execution call.
	Timeout time.Duration
	// ExecutedQuoteTTL is how long an executed quote id is remembered.
	ExecutedQuoteTTL time.Duration
}

// BridgeQuoteServiceImpl implements port.BridgeQuoteService on top of a routing provider.
type BridgeQuoteServiceImpl struct {
	chains   port.ChainRegistry
	router   port.BridgeRouter
	executor port.BridgeExecutor
	opts     BridgeQuoteOptions
	executed *cache.Cache
	logger   port.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

var _ port.BridgeQuoteService = (*BridgeQuoteServiceImpl)(nil)

// NewBridgeQuoteService creates a new quote service.
func NewBridgeQuoteService(
	chains port.ChainRegistry,
	router port.BridgeRouter,
	executor port.BridgeExecutor,
	opts BridgeQuoteOptions,
	l port.Logger,
	m *metrics.Metrics,
) *BridgeQuoteServiceImpl {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ExecutedQuoteTTL <= 0 {
		opts.ExecutedQuoteTTL = 30 * time.Minute
	}
	return &BridgeQuoteServiceImpl{
		chains:   chains,
		router:   router,
		executor: executor,
		opts:     opts,
		executed: cache.New(opts.ExecutedQuoteTTL, opts.ExecutedQuoteTTL),
		logger:   l,
		metrics:  m,
		now:      time.Now,
	}
}

// ParseAmount parses a human-unit amount. Surrounding spaces are ignored.
func ParseAmount(amount string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// GetQuote asks the routing provider for an estimate. Amounts that do not parse as a
// non-negative decimal, zero amounts and same-chain requests yield a zero quote without
// a network call and without an error.
func (s *BridgeQuoteServiceImpl) GetQuote(ctx context.Context, from, to entity.Chain, amount, walletAddress string) (entity.BridgeQuote, error) {
	req := entity.BridgeRequest{From: from, To: to, Amount: amount, WalletAddress: walletAddress}

	parsed, ok := ParseAmount(amount)
	if !ok || parsed.IsNegative() {
		s.logger.Debug("Quote requested for invalid amount, returning zero quote", "amount", amount)
		s.metrics.ObserveBridgeQuote(metrics.ResultSkipped, 0)
		return entity.ZeroQuote(req), nil
	}
	if req.SameChain() || parsed.IsZero() {
		s.metrics.ObserveBridgeQuote(metrics.ResultSkipped, 0)
		return entity.ZeroQuote(req), nil
	}

	src := s.chains.Definition(from)
	dst := s.chains.Definition(to)
	fromAmount := utils.ToSmallestUnit(parsed, src.Decimals)
	if fromAmount.Sign() == 0 {
		s.logger.Debug("Amount below the smallest unit of the source chain", "amount", amount, "chain", from)
		s.metrics.ObserveBridgeQuote(metrics.ResultSkipped, 0)
		return entity.ZeroQuote(req), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	started := s.now()
	estimate, err := s.router.RequestRoute(ctx, entity.RouteRequest{
		FromChainID: src.RoutingChainID,
		ToChainID:   dst.RoutingChainID,
		FromToken:   src.NativeAddress,
		ToToken:     dst.NativeAddress,
		FromAmount:  fromAmount.String(),
		FromAddress: walletAddress,
		Slippage:    s.opts.Slippage,
	})
	elapsed := s.now().Sub(started)
	if err != nil {
		s.metrics.ObserveBridgeQuote(metrics.ResultError, elapsed)
		return entity.BridgeQuote{}, asQuoteError(err)
	}

	receive, err := utils.ParseSmallestUnit(estimate.ToAmount, dst.Decimals)
	if err != nil {
		s.metrics.ObserveBridgeQuote(metrics.ResultError, elapsed)
		return entity.BridgeQuote{}, &entity.QuoteError{Kind: entity.QuoteErrorMalformed, Reason: "unparseable toAmount", Cause: err}
	}
	minimum := receive
	if estimate.ToAmountMin != "" {
		if m, err := utils.ParseSmallestUnit(estimate.ToAmountMin, dst.Decimals); err == nil {
			minimum = m
		}
	}

	s.metrics.ObserveBridgeQuote(metrics.ResultSuccess, elapsed)
	quote := entity.BridgeQuote{
		ID:                uuid.NewString(),
		Request:           req,
		Tool:              estimate.Tool,
		EstimatedGas:      estimate.GasCostUSD,
		EstimatedReceive:  receive,
		MinimumReceive:    minimum,
		ExecutionDuration: estimate.ExecutionDuration,
		Transaction:       estimate.Transaction,
		QuotedAt:          s.now(),
	}
	s.logger.Debug("Bridge quote ready", "quoteId", quote.ID, "from", from, "to", to, "receive", receive.String(), "gasUsd", quote.EstimatedGas.String())
	return quote, nil
}

// Execute submits quote. Each quote can be executed at most once; a failed attempt needs
// a fresh quote. The result is terminal and never mutated afterwards.
func (s *BridgeQuoteServiceImpl) Execute(ctx context.Context, quote entity.BridgeQuote) entity.BridgeExecutionResult {
	result := entity.BridgeExecutionResult{
		AttemptID: uuid.NewString(),
		QuoteID:   quote.ID,
	}
	finish := func(err error) entity.BridgeExecutionResult {
		result.CompletedAt = s.now()
		if err != nil {
			result.Err = err
			result.Error = err.Error()
			var execErr *entity.ExecutionError
			if errors.As(err, &execErr) {
				result.FailureKind = execErr.Kind
			}
			s.metrics.ObserveBridgeExecution(metrics.ResultError)
			return result
		}
		result.Success = true
		s.metrics.ObserveBridgeExecution(metrics.ResultSuccess)
		return result
	}

	if err := s.ValidateForExecution(quote); err != nil {
		s.logger.Warn("Bridge execution rejected", "quoteId", quote.ID, "error", err)
		return finish(err)
	}
	if err := s.executed.Add(quote.ID, result.AttemptID, cache.DefaultExpiration); err != nil {
		return finish(&entity.ValidationError{Field: "quote", Reason: "quote was already submitted", Err: entity.ErrQuoteAlreadyExecuted})
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	s.logger.Info("Executing bridge", "attemptId", result.AttemptID, "quoteId", quote.ID, "from", quote.Request.From, "to", quote.Request.To, "amount", quote.Request.Amount)
	txRef, err := s.executor.Submit(ctx, quote)
	if err != nil {
		err = asExecutionError(err)
		s.logger.Error("Bridge execution failed", "attemptId", result.AttemptID, "error", err)
		return finish(err)
	}

	result.TransactionRef = txRef
	result.ExplorerURL = s.chains.Definition(quote.Request.From).ExplorerTxURL(txRef)
	s.logger.Info("Bridge executed", "attemptId", result.AttemptID, "tx", txRef)
	return finish(nil)
}

// ValidateForExecution checks everything that can be checked without the network.
func (s *BridgeQuoteServiceImpl) ValidateForExecution(quote entity.BridgeQuote) error {
	req := quote.Request
	if req.SameChain() {
		return &entity.ValidationError{Field: "chains", Reason: "source and destination must differ", Err: entity.ErrSameChain}
	}
	amount, ok := ParseAmount(req.Amount)
	if !ok || !amount.IsPositive() {
		return &entity.ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a positive amount", req.Amount), Err: entity.ErrInvalidAmount}
	}
	if !quote.Executable() {
		return &entity.ValidationError{Field: "quote", Reason: "quote has no execution plan", Err: entity.ErrQuoteNotExecutable}
	}
	if tx := quote.Transaction; tx.Value != "" && strings.HasPrefix(tx.Value, "0x") {
		if _, err := hexutil.DecodeBig(tx.Value); err != nil {
			return &entity.ValidationError{Field: "transaction.value", Reason: "invalid hex quantity", Err: err}
		}
	}
	return ValidateAddress(s.chains.Definition(req.From), req.WalletAddress)
}

// ValidateAddress checks the wallet address format of the chain's VM.
func ValidateAddress(def entity.ChainDefinition, address string) error {
	address = strings.TrimSpace(address)
	valid := false
	switch def.VM {
	case entity.VMKindEVM:
		valid = common.IsHexAddress(address)
	case entity.VMKindSolana:
		valid = isBase58Address(address)
	}
	if !valid {
		return &entity.ValidationError{Field: "walletAddress", Reason: fmt.Sprintf("%q is not a %s address", address, def.Name), Err: entity.ErrInvalidAddress}
	}
	return nil
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// isBase58Address accepts the 32-44 character base58 strings Solana public keys encode to.
func isBase58Address(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

func asQuoteError(err error) error {
	var quoteErr *entity.QuoteError
	if errors.As(err, &quoteErr) {
		return err
	}
	kind := entity.QuoteErrorUnreachable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = entity.QuoteErrorTimeout
	}
	return &entity.QuoteError{Kind: kind, Reason: "routing provider call failed", Cause: err}
}

func asExecutionError(err error) error {
	var execErr *entity.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	kind := entity.ExecutionConnectionFailed
	if errors.Is(err, context.DeadlineExceeded) {
		kind = entity.ExecutionTimeout
	}
	return &entity.ExecutionError{Kind: kind, Reason: "submission failed", Cause: err}
}
