package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zkpredict/internal/repository"
	"zkpredict/internal/services"
	"zkpredict/internal/stakekey"
)

// respondError maps service-layer error kinds onto HTTP statuses. The
// handlers are the single point translating internal errors into user-facing
// responses; nothing below this layer swallows them.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrEventNotResolved),
		errors.Is(err, services.ErrNothingToClaim),
		errors.Is(err, services.ErrClaimExceedsStake):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrChainPending):
		// Pending confirmation, not a failure: the caller may poll.
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "pending": true})
	case errors.Is(err, stakekey.ErrHasherUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stake key unavailable, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
