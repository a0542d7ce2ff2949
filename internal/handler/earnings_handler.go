package handler

import (
	"net/http"

	"tutorwallet/internal/middleware"
	"tutorwallet/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type EarningsHandler struct {
	earnings *service.EarningsService
}

func NewEarningsHandler(earnings *service.EarningsService) *EarningsHandler {
	return &EarningsHandler{earnings: earnings}
}

type proposalFundsRequest struct {
	PayeeID uint            `json:"payee_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

// Capture moves the caller's funds into the tutor's pending balance when a proposal is accepted.
func (h *EarningsHandler) Capture(c *gin.Context) {
	var req proposalFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := h.earnings.CaptureProposalFunds(c.Request.Context(), middleware.GetUserID(c), req.PayeeID, c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "captured", "proposal_id": c.Param("id"), "amount": req.Amount.Round(2)})
}

// Release pays a tutor out of pending funds once the proposal is completed. Admin only.
func (h *EarningsHandler) Release(c *gin.Context) {
	var req proposalFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := h.earnings.ReleasePendingFunds(c.Request.Context(), req.PayeeID, req.Amount, c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "released", "proposal_id": c.Param("id"), "amount": req.Amount.Round(2)})
}

func (h *EarningsHandler) GetEarnings(c *gin.Context) {
	summary, err := h.earnings.GetEarnings(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *EarningsHandler) RequestWithdrawal(c *gin.Context) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Reason string          `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wr, err := h.earnings.RequestWithdrawal(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wr)
}

func (h *EarningsHandler) ListWithdrawals(c *gin.Context) {
	page, err := h.earnings.ListWithdrawals(c.Request.Context(), middleware.GetUserID(c), queryInt(c, "limit", 20), queryInt(c, "skip", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
