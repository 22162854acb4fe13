package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BridgeRequest is one edit of the bridge form.
type BridgeRequest struct {
	From          Chain  `json:"from"`
	To            Chain  `json:"to"`
	Amount        string `json:"amount"` // human units of the source chain native asset
	WalletAddress string `json:"walletAddress"`
}

// SameChain reports whether source and destination are identical.
func (r BridgeRequest) SameChain() bool {
	return r.From == r.To
}

// RouteRequest is the provider-facing form of a BridgeRequest, amounts in smallest units.
type RouteRequest struct {
	FromChainID uint64
	ToChainID   uint64
	FromToken   string
	ToToken     string
	FromAmount  string
	FromAddress string
	Slippage    float64
}

// RouteEstimate is what the routing provider answered for a RouteRequest.
type RouteEstimate struct {
	Tool              string
	ToAmount          string // smallest units of the destination chain
	ToAmountMin       string
	GasCostUSD        decimal.Decimal
	ExecutionDuration time.Duration
	Transaction       *TransactionRequest
}

// TransactionRequest is the prepared transaction returned by the routing provider.
type TransactionRequest struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	ChainID  uint64 `json:"chainId"`
	GasLimit string `json:"gasLimit,omitempty"`
}

// BridgeQuote is an estimate for one BridgeRequest. It is only valid for that request.
type BridgeQuote struct {
	ID                string              `json:"id"`
	Request           BridgeRequest       `json:"request"`
	Tool              string              `json:"tool,omitempty"`
	EstimatedGas      decimal.Decimal     `json:"estimatedGas"`     // USD
	EstimatedReceive  decimal.Decimal     `json:"estimatedReceive"` // destination human units
	MinimumReceive    decimal.Decimal     `json:"minimumReceive"`
	ExecutionDuration time.Duration       `json:"executionDuration"`
	Transaction       *TransactionRequest `json:"transaction,omitempty"`
	QuotedAt          time.Time           `json:"quotedAt"`
}

// ZeroQuote is the neutral result for requests that cannot or need not be routed.
func ZeroQuote(req BridgeRequest) BridgeQuote {
	return BridgeQuote{
		Request:          req,
		EstimatedGas:     decimal.Zero,
		EstimatedReceive: decimal.Zero,
		MinimumReceive:   decimal.Zero,
	}
}

// Executable reports whether the quote carries a provider execution plan.
func (q BridgeQuote) Executable() bool {
	return q.ID != "" && q.Transaction != nil
}

// Matches reports whether the quote was produced for req.
func (q BridgeQuote) Matches(req BridgeRequest) bool {
	return q.Request == req
}

// BridgeExecutionResult is the terminal outcome of one execution attempt.
type BridgeExecutionResult struct {
	AttemptID      string             `json:"attemptId"`
	QuoteID        string             `json:"quoteId"`
	Success        bool               `json:"success"`
	TransactionRef string             `json:"transactionRef,omitempty"`
	ExplorerURL    string             `json:"explorerUrl,omitempty"`
	FailureKind    ExecutionErrorKind `json:"failureKind,omitempty"`
	Err            error              `json:"-"`
	Error          string             `json:"error,omitempty"`
	CompletedAt    time.Time          `json:"completedAt"`
}
