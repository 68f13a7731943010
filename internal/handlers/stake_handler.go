package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"zkpredict/internal/auth"
	"zkpredict/internal/models"
	"zkpredict/internal/repository"
	"zkpredict/internal/services"
)

type StakeHandler struct {
	repo        *repository.Repository
	coordinator *services.Coordinator
}

func NewStakeHandler(repo *repository.Repository, coordinator *services.Coordinator) *StakeHandler {
	return &StakeHandler{
		repo:        repo,
		coordinator: coordinator,
	}
}

// ListStakes retrieves all participations for an account. Defaults to the
// session's wallet address when no publicKey query is given.
// GET /api/stake
func (h *StakeHandler) ListStakes(c *gin.Context) {
	publicKey := c.Query("publicKey")
	if publicKey == "" {
		address, ok := auth.GetWalletAddress(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing publicKey"})
			return
		}
		publicKey = address
	}

	stakes, err := h.repo.FindStakesByAccount(c.Request.Context(), publicKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stakes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stakes": stakes})
}

// GetStakeDetail retrieves the session account's participation on one event.
// GET /api/stake/detail?eventId=
func (h *StakeHandler) GetStakeDetail(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	eventID, err := strconv.ParseInt(c.Query("eventId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid eventId"})
		return
	}

	stake, err := h.repo.FindStakeByAccountAndEvent(c.Request.Context(), address, eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stake"})
		return
	}
	if stake == nil {
		c.JSON(http.StatusOK, gin.H{"stake": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stake": stake})
}

// PlaceStake runs the full stake flow: key derivation, mirror accumulation,
// stake_public submission, mirror confirmation.
// POST /api/stake
func (h *StakeHandler) PlaceStake(c *gin.Context) {
	account, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Amounts cross the boundary as decimal strings to avoid precision loss.
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	result, err := h.coordinator.PlaceStake(c.Request.Context(), account, req.EventID, amount, *req.Prediction)
	if err != nil {
		if result != nil && result.Stake != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "result": result})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ConfirmStake marks a stake transaction as accepted. Idempotent.
// PATCH /api/stake
func (h *StakeHandler) ConfirmStake(c *gin.Context) {
	var req models.ConfirmStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.MarkStakeChainConfirmed(c.Request.Context(), req.StakeKey); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stake not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stake_key": req.StakeKey, "is_chain_success": true})
}
