package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"zkpredict/internal/auth"
	"zkpredict/internal/models"
	"zkpredict/internal/services"
)

type ClaimHandler struct {
	coordinator *services.Coordinator
}

func NewClaimHandler(coordinator *services.Coordinator) *ClaimHandler {
	return &ClaimHandler{
		coordinator: coordinator,
	}
}

// CheckClaim returns the chain-authoritative claim eligibility for the
// session account on one event. The mirror is never consulted here.
// GET /api/claim/:eventId
func (h *ClaimHandler) CheckClaim(c *gin.Context) {
	account, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	eventID, err := strconv.ParseInt(c.Param("eventId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	eligibility, err := h.coordinator.CheckClaim(c.Request.Context(), account, eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, eligibility)
}

// Claim submits claim_public after gating on the chain view.
// POST /api/claim/:eventId
func (h *ClaimHandler) Claim(c *gin.Context) {
	account, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	eventID, err := strconv.ParseInt(c.Param("eventId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	txID, err := h.coordinator.Claim(c.Request.Context(), account, eventID, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_id": eventID, "transaction_id": txID})
}
