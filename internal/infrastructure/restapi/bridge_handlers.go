package restapi

import (
	"context"
	"net/http"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

type amountRequest struct {
	Amount string `json:"amount"`
}

type chainsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type walletAddressRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// BridgeHandler exposes the bridge orchestrator and one-off quotes.
type BridgeHandler struct {
	orchestrator port.BridgeOrchestrator
	quotes       port.BridgeQuoteService
	chains       port.ChainRegistry
	logger       port.Logger
}

// NewBridgeHandler creates a new BridgeHandler.
func NewBridgeHandler(orchestrator port.BridgeOrchestrator, quotes port.BridgeQuoteService, chains port.ChainRegistry, logger port.Logger) *BridgeHandler {
	return &BridgeHandler{orchestrator: orchestrator, quotes: quotes, chains: chains, logger: logger}
}

// GetState returns the current bridge form state.
func (h *BridgeHandler) GetState(c *gin.Context) {
	respond(c, http.StatusOK, h.orchestrator.State(), "")
}

// SetAmount edits the amount. The quote arrives asynchronously; poll GetState.
func (h *BridgeHandler) SetAmount(c *gin.Context) {
	var req amountRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	h.apply(c, h.orchestrator.SetAmount(req.Amount))
}

// SetChains edits source and destination.
func (h *BridgeHandler) SetChains(c *gin.Context) {
	var req chainsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	from, err := entity.ParseChain(req.From)
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := entity.ParseChain(req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	h.apply(c, h.orchestrator.SetChains(from, to))
}

// SetWalletAddress edits the wallet the bridge is made for.
func (h *BridgeHandler) SetWalletAddress(c *gin.Context) {
	var req walletAddressRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	h.apply(c, h.orchestrator.SetWalletAddress(req.WalletAddress))
}

func (h *BridgeHandler) SwapChains(c *gin.Context) { h.apply(c, h.orchestrator.SwapChains()) }

func (h *BridgeHandler) Requote(c *gin.Context) { h.apply(c, h.orchestrator.Requote()) }

func (h *BridgeHandler) Reset(c *gin.Context) { h.apply(c, h.orchestrator.Reset()) }

// Execute submits the current quote and waits for the terminal result.
// The submission is detached from the request so a disconnecting client cannot cancel it mid-flight.
func (h *BridgeHandler) Execute(c *gin.Context) {
	result, err := h.orchestrator.Execute(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
		h.logger.Warn("Bridge execution failed", "attemptId", result.AttemptID, "kind", result.FailureKind)
	}
	respond(c, status, gin.H{"result": result, "state": h.orchestrator.State()}, "")
}

// GetQuote returns a one-off quote without touching the orchestrator form.
func (h *BridgeHandler) GetQuote(c *gin.Context) {
	from, err := entity.ParseChain(c.Query("from"))
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := entity.ParseChain(c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	quote, err := h.quotes.GetQuote(c.Request.Context(), from, to, c.Query("amount"), c.Query("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, quote, "")
}

// ListChains returns the supported chains.
func (h *BridgeHandler) ListChains(c *gin.Context) {
	respond(c, http.StatusOK, h.chains.All(), "")
}

func (h *BridgeHandler) apply(c *gin.Context, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, h.orchestrator.State(), "")
}
