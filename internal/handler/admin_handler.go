package handler

import (
	"net/http"

	"tutorwallet/internal/middleware"
	"tutorwallet/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler is the withdrawal review queue.
type AdminHandler struct {
	earnings *service.EarningsService
}

func NewAdminHandler(earnings *service.EarningsService) *AdminHandler {
	return &AdminHandler{earnings: earnings}
}

func (h *AdminHandler) PendingWithdrawals(c *gin.Context) {
	list, err := h.earnings.PendingWithdrawals(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	wr, err := h.earnings.ApproveWithdrawal(c.Request.Context(), id, middleware.GetUserID(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wr)
}

func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	wr, err := h.earnings.RejectWithdrawal(c.Request.Context(), id, middleware.GetUserID(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wr)
}
