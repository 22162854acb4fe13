package service

import (
	"context"
	"strings"
	"sync"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
	"portfolio_bridge/internal/pkg/broadcast"
	"portfolio_bridge/internal/pkg/debounce"
	"portfolio_bridge/internal/pkg/metrics"
)

// BridgeOrchestratorImpl owns the bridge form and drives it through
// Idle -> QuotePending -> QuoteReady -> Executing -> ExecutionSucceeded | ExecutionFailed.
//
// Any edit of chains or amount returns the form to Idle and, when the request is quotable,
// schedules a debounced quote. Quote results carry the debouncer generation they were
// requested under and are dropped unless that generation is still current.
type BridgeOrchestratorImpl struct {
	quotes    port.BridgeQuoteService
	debouncer *debounce.Debouncer
	logger    port.Logger
	metrics   *metrics.Metrics

	mu        sync.Mutex
	state     entity.BridgeState
	quote     *entity.BridgeQuote
	executing bool
	closed    bool
	feed      *broadcast.Broadcaster[entity.BridgeState]
}

var _ port.BridgeOrchestrator = (*BridgeOrchestratorImpl)(nil)

// NewBridgeOrchestrator creates an orchestrator with the given initial chains.
func NewBridgeOrchestrator(
	quotes port.BridgeQuoteService,
	debouncer *debounce.Debouncer,
	from, to entity.Chain,
	l port.Logger,
	m *metrics.Metrics,
) *BridgeOrchestratorImpl {
	o := &BridgeOrchestratorImpl{
		quotes:    quotes,
		debouncer: debouncer,
		logger:    l,
		metrics:   m,
		feed:      broadcast.New[entity.BridgeState](),
		state: entity.BridgeState{
			Phase:            entity.BridgePhaseIdle,
			From:             from,
			To:               to,
			EstimatedGas:     entity.NeutralEstimate,
			EstimatedReceive: entity.NeutralEstimate,
		},
	}
	o.state.CanExecute = o.canExecuteLocked()
	return o
}

// State returns the latest published state.
func (o *BridgeOrchestratorImpl) State() entity.BridgeState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe returns a channel that starts with the current state and then carries the latest
// published one. States a slow subscriber has not read yet are replaced.
func (o *BridgeOrchestratorImpl) Subscribe() (<-chan entity.BridgeState, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.feed.Subscribe(o.state)
}

// CanExecute reports whether source and destination differ, the amount is positive
// and no execution is in flight.
func (o *BridgeOrchestratorImpl) CanExecute() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.canExecuteLocked()
}

// SetAmount edits the amount in source-chain human units.
func (o *BridgeOrchestratorImpl) SetAmount(amount string) error {
	return o.edit(func(s *entity.BridgeState) error {
		s.Amount = strings.TrimSpace(amount)
		return nil
	})
}

// SetChains edits both chains at once.
func (o *BridgeOrchestratorImpl) SetChains(from, to entity.Chain) error {
	if !from.Valid() {
		return &entity.ValidationError{Field: "from", Reason: "unsupported chain " + string(from)}
	}
	if !to.Valid() {
		return &entity.ValidationError{Field: "to", Reason: "unsupported chain " + string(to)}
	}
	return o.edit(func(s *entity.BridgeState) error {
		s.From, s.To = from, to
		return nil
	})
}

// SwapChains exchanges source and destination and re-quotes like any other edit.
func (o *BridgeOrchestratorImpl) SwapChains() error {
	return o.edit(func(s *entity.BridgeState) error {
		s.From, s.To = s.To, s.From
		return nil
	})
}

// SetWalletAddress edits the address quotes and executions are made for.
func (o *BridgeOrchestratorImpl) SetWalletAddress(address string) error {
	return o.edit(func(s *entity.BridgeState) error {
		s.WalletAddress = strings.TrimSpace(address)
		return nil
	})
}

// Requote re-runs the quote path for the current form, e.g. after a quote error.
func (o *BridgeOrchestratorImpl) Requote() error {
	return o.edit(func(*entity.BridgeState) error { return nil })
}

// Reset clears the amount together with any quote, result or error. Chains and wallet are kept.
func (o *BridgeOrchestratorImpl) Reset() error {
	return o.edit(func(s *entity.BridgeState) error {
		s.Amount = ""
		return nil
	})
}

// edit applies mutate and restarts the quote lifecycle. The form is locked while executing
// because a dispatched execution cannot be cancelled.
func (o *BridgeOrchestratorImpl) edit(mutate func(s *entity.BridgeState) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return entity.ErrOrchestratorClosed
	}
	if o.executing {
		return entity.ErrExecutionInFlight
	}
	if err := mutate(&o.state); err != nil {
		return err
	}

	o.quote = nil
	o.state.Quote = nil
	o.state.Result = nil
	o.state.Error = ""
	o.state.ErrorKind = ""
	o.state.EstimatedGas = entity.NeutralEstimate
	o.state.EstimatedReceive = entity.NeutralEstimate
	o.state.Phase = entity.BridgePhaseIdle

	req := o.state.Request()
	if !quotable(req) {
		o.state.Generation = o.debouncer.Cancel()
		o.publishLocked()
		return nil
	}

	o.state.Generation = o.debouncer.Schedule(func(ctx context.Context, gen uint64) {
		o.fetchQuote(ctx, gen, req)
	})
	// Idle is published first so observers see the invalidation, then the pending fetch.
	o.publishLocked()
	o.state.Phase = entity.BridgePhaseQuotePending
	o.publishLocked()
	return nil
}

func quotable(req entity.BridgeRequest) bool {
	if req.Amount == "" || req.SameChain() {
		return false
	}
	amount, ok := ParseAmount(req.Amount)
	return ok && !amount.IsNegative()
}

func (o *BridgeOrchestratorImpl) fetchQuote(ctx context.Context, gen uint64, req entity.BridgeRequest) {
	quote, err := o.quotes.GetQuote(ctx, req.From, req.To, req.Amount, req.WalletAddress)

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.debouncer.IsCurrent(gen) || o.state.Generation != gen {
		o.metrics.StaleResultDiscarded("bridge_quote")
		o.logger.Debug("Discarding superseded quote result", "generation", gen)
		return
	}

	if err != nil {
		o.logger.Warn("Bridge quote failed", "from", req.From, "to", req.To, "amount", req.Amount, "error", err)
		o.state.Phase = entity.BridgePhaseIdle
		o.state.Error = err.Error()
		o.state.ErrorKind = entity.ErrorKind(err)
		o.state.EstimatedGas = entity.NeutralEstimate
		o.state.EstimatedReceive = entity.NeutralEstimate
		o.publishLocked()
		return
	}

	o.quote = &quote
	o.state.Quote = &quote
	o.state.Phase = entity.BridgePhaseQuoteReady
	o.state.EstimatedGas = quote.EstimatedGas.StringFixed(2)
	o.state.EstimatedReceive = quote.EstimatedReceive.StringFixed(4)
	o.publishLocked()
}

// Execute submits the current quote. It is rejected with ErrExecutionInFlight while another
// execution runs, and with a ValidationError when the guard fails or no current quote exists.
// The returned result is also published as the terminal state.
func (o *BridgeOrchestratorImpl) Execute(ctx context.Context) (entity.BridgeExecutionResult, error) {
	o.mu.Lock()
	if o.executing {
		o.mu.Unlock()
		o.logger.Debug("Execute ignored, an execution is already in flight")
		return entity.BridgeExecutionResult{}, entity.ErrExecutionInFlight
	}
	if err := o.guardLocked(); err != nil {
		o.mu.Unlock()
		return entity.BridgeExecutionResult{}, err
	}

	quote := *o.quote
	o.executing = true
	o.state.Phase = entity.BridgePhaseExecuting
	o.state.Error = ""
	o.state.ErrorKind = ""
	o.publishLocked()
	o.mu.Unlock()

	result := o.quotes.Execute(ctx, quote)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.executing = false
	o.quote = nil
	o.state.Quote = nil
	o.state.Result = &result
	if result.Success {
		o.state.Phase = entity.BridgePhaseExecutionSucceeded
	} else {
		o.state.Phase = entity.BridgePhaseExecutionFailed
		o.state.Error = result.Error
		o.state.ErrorKind = entity.ErrorKind(result.Err)
	}
	o.publishLocked()
	return result, nil
}

func (o *BridgeOrchestratorImpl) guardLocked() error {
	req := o.state.Request()
	if req.SameChain() {
		return &entity.ValidationError{Field: "chains", Reason: "source and destination must differ", Err: entity.ErrSameChain}
	}
	if amount, ok := ParseAmount(req.Amount); !ok || !amount.IsPositive() {
		return &entity.ValidationError{Field: "amount", Reason: "amount must be a positive number", Err: entity.ErrInvalidAmount}
	}
	if o.state.Phase != entity.BridgePhaseQuoteReady || o.quote == nil || !o.quote.Matches(req) {
		return &entity.ValidationError{Field: "quote", Reason: "no quote for the current request", Err: entity.ErrQuoteStale}
	}
	return nil
}

func (o *BridgeOrchestratorImpl) canExecuteLocked() bool {
	if o.executing || o.state.From == o.state.To {
		return false
	}
	amount, ok := ParseAmount(o.state.Amount)
	return ok && amount.IsPositive()
}

// Close cancels pending quote work and ends every subscription.
func (o *BridgeOrchestratorImpl) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.debouncer.Close()
	o.feed.Close()
}

func (o *BridgeOrchestratorImpl) publishLocked() {
	o.state.CanExecute = o.canExecuteLocked()
	o.feed.Publish(o.state)
}
