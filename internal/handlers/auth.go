package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"zkpredict/internal/auth"
)

// AuthHandler handles wallet session endpoints
type AuthHandler struct{}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// WalletLogin opens a session for an Aleo wallet address. Ownership of the
// address is attested by the wallet adapter on the client; the session only
// binds subsequent requests to that address.
// POST /auth/wallet
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address := strings.TrimSpace(req.WalletAddress)
	if !strings.HasPrefix(address, "aleo1") || len(address) != 63 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	token, err := auth.GenerateToken(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"wallet_address": address,
	})
}

// Logout handles user logout (stateless JWT, client discards the token)
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}
