package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates JWT tokens and protects routes
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>" format
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		tokenString := parts[1]

		// Validate token
		claims, err := ValidateToken(tokenString)
		if err != nil {
			log.Printf("Auth Debug: Token validation failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("wallet_address", claims.WalletAddress)

		c.Next()
	}
}

// AdminMiddleware restricts a route to the configured admin account.
// Must run after AuthMiddleware.
func AdminMiddleware(adminAddress string) gin.HandlerFunc {
	return func(c *gin.Context) {
		walletAddress, ok := GetWalletAddress(c)
		if !ok || walletAddress != adminAddress {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Only admin can perform this action",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetWalletAddress retrieves the wallet address from the context
func GetWalletAddress(c *gin.Context) (string, bool) {
	walletAddress, exists := c.Get("wallet_address")
	if !exists {
		return "", false
	}
	address, ok := walletAddress.(string)
	if !ok || address == "" {
		return "", false
	}
	return address, true
}
