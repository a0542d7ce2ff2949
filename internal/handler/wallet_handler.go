package handler

import (
	"net/http"

	"tutorwallet/internal/domain"
	"tutorwallet/internal/middleware"
	"tutorwallet/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	wallet *service.WalletService
}

func NewWalletHandler(wallet *service.WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	b, err := h.wallet.GetBalance(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *WalletHandler) AddFunds(c *gin.Context) {
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.wallet.AddFunds(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Charge deducts funds for a named product (book_tutor, post_assignment, ai_tutor).
func (h *WalletHandler) Charge(c *gin.Context) {
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Reason      string          `json:"reason" binding:"required"`
		RelatedID   string          `json:"related_id"`
		Description string          `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !isChargeReason(req.Reason) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown charge reason", "code": "invalid_input"})
		return
	}
	b, err := h.wallet.DeductFunds(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.Reason, req.RelatedID, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *WalletHandler) ListTransactions(c *gin.Context) {
	page, err := h.wallet.ListTransactions(c.Request.Context(), middleware.GetUserID(c), queryInt(c, "limit", 20), queryInt(c, "skip", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Refund credits a user's wallet. Admin only.
func (h *WalletHandler) Refund(c *gin.Context) {
	userID, ok := paramUint(c, "user_id")
	if !ok {
		return
	}
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		RelatedID   string          `json:"related_id"`
		Description string          `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.wallet.RefundFunds(c.Request.Context(), userID, req.Amount, req.RelatedID, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func isChargeReason(reason string) bool {
	for _, r := range domain.ChargeReasons {
		if r == reason {
			return true
		}
	}
	return false
}
