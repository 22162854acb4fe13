package restapi

import (
	"net/http"

	"portfolio_bridge/internal/app/port"
	"portfolio_bridge/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createWalletRequest struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

type renameWalletRequest struct {
	Name string `json:"name"`
}

type walletAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// WalletHandler serves the wallet registry.
type WalletHandler struct {
	registry port.WalletRegistry
}

func NewWalletHandler(registry port.WalletRegistry) *WalletHandler {
	return &WalletHandler{registry: registry}
}

func (h *WalletHandler) List(c *gin.Context) {
	respond(c, http.StatusOK, h.registry.Snapshot(), "")
}

func (h *WalletHandler) Create(c *gin.Context) {
	var req createWalletRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	w, err := h.registry.Add(req.Name, req.Balance)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, w, "")
}

func (h *WalletHandler) Get(c *gin.Context) {
	w, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, w, "")
}

func (h *WalletHandler) Rename(c *gin.Context) {
	var req renameWalletRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	w, err := h.registry.Rename(c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, w, "")
}

func (h *WalletHandler) Delete(c *gin.Context) {
	if err := h.registry.Remove(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WalletHandler) Deposit(c *gin.Context) {
	h.move(c, h.registry.Deposit)
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.move(c, h.registry.Withdraw)
}

func (h *WalletHandler) move(c *gin.Context, op func(id string, amount decimal.Decimal) (entity.Wallet, error)) {
	var req walletAmountRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	w, err := op(c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, w, "")
}
