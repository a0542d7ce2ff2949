package handler

import (
	"errors"
	"net/http"

	"tutorwallet/internal/domain"
	"tutorwallet/internal/middleware"
	"tutorwallet/internal/service"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create opens a session. duration_hours > 0 books and charges the time up front;
// omitted or zero starts a session billed by the minute when it ends.
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		Subject       string  `json:"subject"`
		DurationHours float64 `json:"duration_hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.sessions.CreateSession(c.Request.Context(), middleware.GetUserID(c), req.Subject, req.DurationHours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *SessionHandler) List(c *gin.Context) {
	list, err := h.sessions.ListSessions(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.sessions.GetSession(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.sessions.SendMessage(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SessionHandler) End(c *gin.Context) {
	var req struct {
		DurationSeconds *int64 `json:"duration_seconds"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := h.sessions.EndSessionWithBilling(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.DurationSeconds)
	if err != nil {
		// the session is completed even when the charge could not be taken
		var funds *domain.InsufficientFundsError
		if res != nil && errors.As(err, &funds) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":    funds.Error(),
				"code":     "insufficient_funds",
				"balance":  funds.Balance,
				"required": funds.Required,
				"session":  res,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *SessionHandler) Extend(c *gin.Context) {
	var req struct {
		Hours float64 `json:"hours" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.sessions.ExtendSession(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Hours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
