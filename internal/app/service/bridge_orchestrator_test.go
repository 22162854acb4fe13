package service

import (
	"context"
	"testing"
	"time"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"
	"portfolio_bridge/internal/pkg/debounce"
	"portfolio_bridge/internal/pkg/metrics"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 30 * time.Millisecond

func newTestOrchestrator(t *testing.T, router *fakeRouter, executor *fakeExecutor, from, to entity.Chain) *BridgeOrchestratorImpl {
	t.Helper()
	quotes := newTestQuoteService(router, executor)
	o := NewBridgeOrchestrator(quotes, debounce.New(testDebounce), from, to, port.NopLogger(), metrics.New(nil))
	t.Cleanup(o.Close)
	return o
}

func waitForPhase(t *testing.T, o *BridgeOrchestratorImpl, phase entity.BridgePhase) entity.BridgeState {
	t.Helper()
	require.Eventually(t, func() bool {
		return o.State().Phase == phase
	}, 2*time.Second, 5*time.Millisecond, "phase never reached %s, last %s", phase, o.State().Phase)
	return o.State()
}

func TestOrchestrator_InitialState(t *testing.T) {
	o := newTestOrchestrator(t, newFakeRouter(), &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)

	s := o.State()
	assert.Equal(t, entity.BridgePhaseIdle, s.Phase)
	assert.Equal(t, entity.ChainSOL, s.From)
	assert.Equal(t, entity.ChainETH, s.To)
	assert.Equal(t, "0.00", s.EstimatedGas)
	assert.Equal(t, "0.00", s.EstimatedReceive)
	assert.False(t, s.CanExecute)

	ch, unsubscribe := o.Subscribe()
	defer unsubscribe()
	assert.Equal(t, s, <-ch)
}

func TestOrchestrator_DebouncesBurstOfEdits(t *testing.T) {
	router := newFakeRouter()
	o := newTestOrchestrator(t, router, &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)

	require.NoError(t, o.SetAmount("1"))
	require.NoError(t, o.SetAmount("1.5"))
	require.NoError(t, o.SetAmount("2"))
	assert.Equal(t, entity.BridgePhaseQuotePending, o.State().Phase)

	s := waitForPhase(t, o, entity.BridgePhaseQuoteReady)
	time.Sleep(3 * testDebounce)

	calls := router.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "2000000000", calls[0].FromAmount)
	assert.Equal(t, "2", s.Quote.Request.Amount)
	assert.Equal(t, "1.24", s.EstimatedGas)
	assert.Equal(t, "1.2500", s.EstimatedReceive)
	assert.True(t, s.CanExecute)
}

func TestOrchestrator_SwapRequotes(t *testing.T) {
	router := newFakeRouter()
	o := newTestOrchestrator(t, router, &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)

	require.NoError(t, o.SetAmount("1"))
	waitForPhase(t, o, entity.BridgePhaseQuoteReady)

	require.NoError(t, o.SwapChains())
	s := o.State()
	assert.Equal(t, entity.BridgePhaseQuotePending, s.Phase)
	assert.Equal(t, entity.ChainETH, s.From)
	assert.Equal(t, entity.ChainSOL, s.To)
	assert.Nil(t, s.Quote)
	assert.Equal(t, "0.00", s.EstimatedGas)

	waitForPhase(t, o, entity.BridgePhaseQuoteReady)
	calls := router.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, uint64(1), calls[1].FromChainID)
	assert.Equal(t, "1000000000000000000", calls[1].FromAmount)
}

func TestOrchestrator_NonQuotableEditsStayIdle(t *testing.T) {
	router := newFakeRouter()
	o := newTestOrchestrator(t, router, &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)

	require.NoError(t, o.SetAmount("abc"))
	assert.Equal(t, entity.BridgePhaseIdle, o.State().Phase)

	require.NoError(t, o.SetAmount("1"))
	require.NoError(t, o.SetChains(entity.ChainETH, entity.ChainETH))
	s := o.State()
	assert.Equal(t, entity.BridgePhaseIdle, s.Phase)
	assert.False(t, s.CanExecute)

	time.Sleep(3 * testDebounce)
	assert.Empty(t, router.calls())
}

func TestOrchestrator_RejectsUnknownChain(t *testing.T) {
	o := newTestOrchestrator(t, newFakeRouter(), &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)

	err := o.SetChains(entity.Chain("DOGE"), entity.ChainETH)
	var valErr *entity.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, entity.ChainSOL, o.State().From)
}

func TestOrchestrator_QuoteErrorResetsEstimates(t *testing.T) {
	router := newFakeRouter()
	o := newTestOrchestrator(t, router, &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)

	require.NoError(t, o.SetAmount("1"))
	waitForPhase(t, o, entity.BridgePhaseQuoteReady)

	router.setErr(&entity.QuoteError{Kind: entity.QuoteErrorUnreachable, Reason: "down"})
	require.NoError(t, o.SetAmount("3"))

	require.Eventually(t, func() bool { return o.State().Error != "" }, 2*time.Second, 5*time.Millisecond)
	s := o.State()
	assert.Equal(t, entity.BridgePhaseIdle, s.Phase)
	assert.Equal(t, "QuoteError", s.ErrorKind)
	assert.Equal(t, "0.00", s.EstimatedGas)
	assert.Equal(t, "0.00", s.EstimatedReceive)
	assert.Nil(t, s.Quote)

	_, err := o.Execute(context.Background())
	assert.ErrorIs(t, err, entity.ErrQuoteStale)
}

func TestOrchestrator_DiscardsSupersededResult(t *testing.T) {
	router := newFakeRouter()
	router.release = make(chan struct{})
	o := newTestOrchestrator(t, router, &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)

	require.NoError(t, o.SetAmount("1"))
	require.Eventually(t, func() bool { return len(router.calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, o.SetAmount("2"))
	close(router.release)

	s := waitForPhase(t, o, entity.BridgePhaseQuoteReady)
	assert.Empty(t, s.Error)
	assert.Equal(t, "2", s.Quote.Request.Amount)
	calls := router.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "2000000000", calls[1].FromAmount)
}

func TestOrchestrator_ExecuteOnceWhileInFlight(t *testing.T) {
	executor := &fakeExecutor{
		txRef:   "0xfeed",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	o := newTestOrchestrator(t, newFakeRouter(), executor, entity.ChainETH, entity.ChainBASE)

	require.NoError(t, o.SetWalletAddress(testEVMAddress))
	require.NoError(t, o.SetAmount("0.5"))
	waitForPhase(t, o, entity.BridgePhaseQuoteReady)

	done := make(chan entity.BridgeExecutionResult, 1)
	go func() {
		result, err := o.Execute(context.Background())
		assert.NoError(t, err)
		done <- result
	}()
	<-executor.started

	s := o.State()
	assert.Equal(t, entity.BridgePhaseExecuting, s.Phase)
	assert.False(t, s.CanExecute)

	_, err := o.Execute(context.Background())
	assert.ErrorIs(t, err, entity.ErrExecutionInFlight)
	assert.ErrorIs(t, o.SetAmount("1"), entity.ErrExecutionInFlight)

	close(executor.release)
	result := <-done

	assert.True(t, result.Success)
	assert.Equal(t, "0xfeed", result.TransactionRef)
	assert.Equal(t, "https://etherscan.io/tx/0xfeed", result.ExplorerURL)
	assert.Equal(t, 1, executor.count())

	s = o.State()
	assert.Equal(t, entity.BridgePhaseExecutionSucceeded, s.Phase)
	require.NotNil(t, s.Result)
	assert.Equal(t, result.AttemptID, s.Result.AttemptID)
	assert.True(t, s.CanExecute)

	_, err = o.Execute(context.Background())
	assert.ErrorIs(t, err, entity.ErrQuoteStale)
}

func TestOrchestrator_ExecutionFailure(t *testing.T) {
	executor := &fakeExecutor{err: &entity.ExecutionError{Kind: entity.ExecutionConnectionFailed, Reason: "dial tcp"}}
	o := newTestOrchestrator(t, newFakeRouter(), executor, entity.ChainETH, entity.ChainBSC)

	require.NoError(t, o.SetWalletAddress(testEVMAddress))
	require.NoError(t, o.SetAmount("1"))
	waitForPhase(t, o, entity.BridgePhaseQuoteReady)

	result, err := o.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, entity.ExecutionConnectionFailed, result.FailureKind)

	s := o.State()
	assert.Equal(t, entity.BridgePhaseExecutionFailed, s.Phase)
	assert.Equal(t, "ConnectionFailed", s.ErrorKind)

	// Editing after a failure starts a new quote lifecycle.
	require.NoError(t, o.SetAmount("2"))
	waitForPhase(t, o, entity.BridgePhaseQuoteReady)
}

func TestOrchestrator_ExecuteGuards(t *testing.T) {
	o := newTestOrchestrator(t, newFakeRouter(), &fakeExecutor{}, entity.ChainETH, entity.ChainETH)

	require.NoError(t, o.SetAmount("1"))
	_, err := o.Execute(context.Background())
	assert.ErrorIs(t, err, entity.ErrSameChain)

	require.NoError(t, o.SetChains(entity.ChainETH, entity.ChainBSC))
	require.NoError(t, o.SetAmount("0"))
	_, err = o.Execute(context.Background())
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
}

func TestOrchestrator_CanExecuteProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("executable only for distinct chains and a positive amount", prop.ForAll(
		func(fromIdx, toIdx int, cents int64, garbage bool) bool {
			from, to := entity.Chains[fromIdx], entity.Chains[toIdx]
			amount := decimal.New(cents, -2).String()
			if garbage {
				amount = "12x"
			}

			quotes := newTestQuoteService(newFakeRouter(), &fakeExecutor{})
			o := NewBridgeOrchestrator(quotes, debounce.New(time.Hour), from, to, port.NopLogger(), nil)
			defer o.Close()
			if err := o.SetAmount(amount); err != nil {
				return false
			}

			want := from != to && !garbage && cents > 0
			return o.CanExecute() == want && o.State().CanExecute == want
		},
		gen.IntRange(0, len(entity.Chains)-1),
		gen.IntRange(0, len(entity.Chains)-1),
		gen.Int64Range(-500, 500),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestOrchestrator_ResetAfterExecution(t *testing.T) {
	o := newTestOrchestrator(t, newFakeRouter(), &fakeExecutor{txRef: "0x1"}, entity.ChainETH, entity.ChainBASE)

	require.NoError(t, o.SetWalletAddress(testEVMAddress))
	require.NoError(t, o.SetAmount("1"))
	waitForPhase(t, o, entity.BridgePhaseQuoteReady)
	_, err := o.Execute(context.Background())
	require.NoError(t, err)

	require.NoError(t, o.Reset())
	s := o.State()
	assert.Equal(t, entity.BridgePhaseIdle, s.Phase)
	assert.Empty(t, s.Amount)
	assert.Nil(t, s.Result)
	assert.Equal(t, entity.ChainETH, s.From)
	assert.Equal(t, testEVMAddress, s.WalletAddress)
	assert.False(t, s.CanExecute)
}

func TestOrchestrator_RequoteAfterError(t *testing.T) {
	router := newFakeRouter()
	router.setErr(&entity.QuoteError{Kind: entity.QuoteErrorTimeout, Reason: "slow"})
	o := newTestOrchestrator(t, router, &fakeExecutor{}, entity.ChainSOL, entity.ChainBSC)

	require.NoError(t, o.SetAmount("1"))
	require.Eventually(t, func() bool { return o.State().ErrorKind == "QuoteError" }, 2*time.Second, 5*time.Millisecond)

	router.setErr(nil)
	require.NoError(t, o.Requote())
	s := waitForPhase(t, o, entity.BridgePhaseQuoteReady)
	assert.Empty(t, s.Error)
	assert.Len(t, router.calls(), 2)
}

func TestBridgeOrchestrator_EditsAfterCloseAreRejected(t *testing.T) {
	router := newFakeRouter()
	o := newTestOrchestrator(t, router, &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)
	o.Close()

	assert.ErrorIs(t, o.SetAmount("1"), entity.ErrOrchestratorClosed)
	assert.ErrorIs(t, o.SwapChains(), entity.ErrOrchestratorClosed)
	assert.ErrorIs(t, o.Requote(), entity.ErrOrchestratorClosed)

	state := o.State()
	assert.Equal(t, entity.BridgePhaseIdle, state.Phase, "a closed orchestrator never parks in QuotePending")
	assert.Empty(t, state.Amount)
	time.Sleep(3 * testDebounce)
	assert.Empty(t, router.calls())
}

func TestBridgeOrchestrator_SubscriberSeesLatestState(t *testing.T) {
	o := newTestOrchestrator(t, newFakeRouter(), &fakeExecutor{}, entity.ChainSOL, entity.ChainETH)
	states, unsubscribe := o.Subscribe()
	defer unsubscribe()
	assert.Equal(t, entity.BridgePhaseIdle, (<-states).Phase)

	require.NoError(t, o.SetAmount("1"))
	assert.Equal(t, entity.BridgePhaseQuotePending, (<-states).Phase, "the intermediate Idle is replaced")
	assert.Equal(t, entity.BridgePhaseQuoteReady, (<-states).Phase)
}
