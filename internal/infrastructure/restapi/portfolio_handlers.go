package restapi

import (
	"net/http"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/app/service"
	"portfolio_bridge/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

type holdingsRequest struct {
	Holdings []entity.Holding `json:"holdings"`
}

type windowRequest struct {
	Window string `json:"window"`
}

type loadHoldingsRequest struct {
	WalletAddress string `json:"walletAddress"`
	// Refresh revalues the portfolio right after the holdings were replaced.
	Refresh bool `json:"refresh"`
}

// PortfolioHandler serves the portfolio state container.
type PortfolioHandler struct {
	portfolio port.PortfolioService
	loader    port.HoldingsLoader
	logger    port.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler. loader may be nil, which disables on-chain loading.
func NewPortfolioHandler(portfolio port.PortfolioService, loader port.HoldingsLoader, logger port.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio, loader: loader, logger: logger}
}

// GetPortfolio returns the current view. An optional ?window= recomputes the PnL of that
// window for this response only; the selected window is changed with PUT /portfolio/window.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	view := h.portfolio.View()
	if raw := c.Query("window"); raw != "" {
		window, err := entity.ParsePnLWindow(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		view.Window = window
		view.PnL = service.CalculatePnL(view.Snapshot, window)
	}

	message := ""
	switch {
	case !view.Valued:
		message = "Portfolio has not been valued yet."
	case view.Stale:
		message = "Holdings changed since the last valuation. Refresh prices to update."
	}
	respond(c, http.StatusOK, view, message)
}

// SelectWindow switches the PnL window of the shared view.
func (h *PortfolioHandler) SelectWindow(c *gin.Context) {
	var req windowRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	window, err := entity.ParsePnLWindow(req.Window)
	if err != nil {
		respondError(c, err)
		return
	}
	h.portfolio.SelectWindow(window)
	respond(c, http.StatusOK, h.portfolio.View(), "")
}

// PutHoldings replaces the holdings list.
func (h *PortfolioHandler) PutHoldings(c *gin.Context) {
	var req holdingsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := h.portfolio.SetHoldings(req.Holdings); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, h.portfolio.View(), "")
}

// LoadHoldings replaces the holdings with the native balances of an EVM wallet.
// Chains that could not be read are listed in service_errors.
func (h *PortfolioHandler) LoadHoldings(c *gin.Context) {
	if h.loader == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, APIError{Error: "on-chain holdings loading is disabled", Kind: "Unsupported"})
		return
	}
	var req loadHoldingsRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	holdings, failures, err := h.loader.LoadWallet(c.Request.Context(), req.WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.portfolio.SetHoldings(holdings); err != nil {
		respondError(c, err)
		return
	}

	message := "Holdings loaded."
	if len(failures) > 0 {
		message = "Holdings loaded. Some chains could not be read."
	}
	if req.Refresh {
		if err := h.portfolio.RefreshPrices(c.Request.Context()); err != nil {
			h.logger.Warn("Refresh after holdings load failed", "error", err)
			message += " Price refresh failed: " + err.Error()
		}
	}
	c.JSON(http.StatusOK, APIResponse{Data: h.portfolio.View(), ServiceErrors: failures, StatusMessage: message})
}

// RefreshPrices revalues the holdings. On failure the last view stays in place and 502 is returned.
func (h *PortfolioHandler) RefreshPrices(c *gin.Context) {
	if err := h.portfolio.RefreshPrices(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, h.portfolio.View(), "")
}
