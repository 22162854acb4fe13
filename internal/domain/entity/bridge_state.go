package entity

// BridgePhase is the lifecycle position of the bridge form.
type BridgePhase string

const (
	BridgePhaseIdle               BridgePhase = "Idle"
	BridgePhaseQuotePending       BridgePhase = "QuotePending"
	BridgePhaseQuoteReady         BridgePhase = "QuoteReady"
	BridgePhaseExecuting          BridgePhase = "Executing"
	BridgePhaseExecutionSucceeded BridgePhase = "ExecutionSucceeded"
	BridgePhaseExecutionFailed    BridgePhase = "ExecutionFailed"
)

// Terminal reports whether the phase ends an execution attempt.
func (p BridgePhase) Terminal() bool {
	return p == BridgePhaseExecutionSucceeded || p == BridgePhaseExecutionFailed
}

// NeutralEstimate is displayed whenever no quote is current.
const NeutralEstimate = "0.00"

// BridgeState is an immutable snapshot of the bridge orchestrator published to subscribers.
type BridgeState struct {
	Phase            BridgePhase            `json:"phase"`
	From             Chain                  `json:"from"`
	To               Chain                  `json:"to"`
	Amount           string                 `json:"amount"`
	WalletAddress    string                 `json:"walletAddress"`
	EstimatedGas     string                 `json:"estimatedGas"`
	EstimatedReceive string                 `json:"estimatedReceive"`
	Quote            *BridgeQuote           `json:"quote,omitempty"`
	Result           *BridgeExecutionResult `json:"result,omitempty"`
	Error            string                 `json:"error,omitempty"`
	ErrorKind        string                 `json:"errorKind,omitempty"`
	CanExecute       bool                   `json:"canExecute"`
	// Generation increases on every edit of the form.
	Generation uint64 `json:"generation"`
}

// Request returns the bridge request described by the form.
func (s BridgeState) Request() BridgeRequest {
	return BridgeRequest{From: s.From, To: s.To, Amount: s.Amount, WalletAddress: s.WalletAddress}
}
