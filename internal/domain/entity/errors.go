package entity

import (
	"errors"
	"fmt"
)

var (
	ErrSameChain            = errors.New("source and destination chain are identical")
	ErrInvalidAmount        = errors.New("amount must be a positive decimal")
	ErrExecutionInFlight    = errors.New("an execution is already in flight")
	ErrQuoteStale           = errors.New("quote does not match the current bridge request")
	ErrQuoteAlreadyExecuted = errors.New("quote was already submitted for execution")
	ErrQuoteNotExecutable   = errors.New("quote carries no execution plan")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrDuplicateWallet      = errors.New("wallet name already in use")
	ErrInsufficientFunds    = errors.New("insufficient wallet balance")
	ErrInvalidAddress       = errors.New("invalid wallet address")
	ErrOrchestratorClosed   = errors.New("bridge orchestrator is closed")
)

// FetchError reports that the price feed was unreachable or answered with something unusable.
type FetchError struct {
	Provider string
	Status   int
	Reason   string
	Cause    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("price fetch from %s failed: %s", e.Provider, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Cause }

// QuoteErrorKind classifies routing-provider failures.
type QuoteErrorKind string

const (
	QuoteErrorUnreachable QuoteErrorKind = "Unreachable"
	QuoteErrorRejected    QuoteErrorKind = "Rejected"
	QuoteErrorMalformed   QuoteErrorKind = "Malformed"
	QuoteErrorTimeout     QuoteErrorKind = "Timeout"
)

// QuoteError reports that the routing provider could not produce a usable quote.
type QuoteError struct {
	Kind   QuoteErrorKind
	Status int
	Reason string
	Cause  error
}

func (e *QuoteError) Error() string {
	msg := fmt.Sprintf("bridge quote %s: %s", e.Kind, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *QuoteError) Unwrap() error { return e.Cause }

// ExecutionErrorKind classifies bridge submission failures.
type ExecutionErrorKind string

const (
	ExecutionConnectionFailed ExecutionErrorKind = "ConnectionFailed"
	ExecutionProviderRejected ExecutionErrorKind = "ProviderRejected"
	ExecutionTimeout          ExecutionErrorKind = "Timeout"
)

// ExecutionError reports a failed bridge submission. Every kind is recoverable with a fresh quote.
type ExecutionError struct {
	Kind   ExecutionErrorKind
	Status int
	Reason string
	Cause  error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("bridge execution %s: %s", e.Kind, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// ValidationError rejects input before any transition or network call happens.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err leaves the core usable and may be retried by the caller.
func IsRecoverable(err error) bool {
	var (
		fetchErr *FetchError
		quoteErr *QuoteError
		execErr  *ExecutionError
	)
	return errors.As(err, &fetchErr) || errors.As(err, &quoteErr) || errors.As(err, &execErr)
}

// ErrorKind names the error category for presentation.
func ErrorKind(err error) string {
	var (
		fetchErr *FetchError
		quoteErr *QuoteError
		execErr  *ExecutionError
		valErr   *ValidationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &execErr):
		return string(execErr.Kind)
	case errors.As(err, &quoteErr):
		return "QuoteError"
	case errors.As(err, &fetchErr):
		return "FetchError"
	case errors.As(err, &valErr):
		return "ValidationError"
	default:
		return "Unknown"
	}
}
