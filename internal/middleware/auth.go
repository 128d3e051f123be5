package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/pkg/jwt"
)

// JWTAuth JWT authentication middleware. The token comes from the
// Authorization header, or from the "token" query parameter when the
// header is absent (browser WebSocket clients cannot set headers).
func JWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		authHeader := c.GetHeader("Authorization")
		switch {
		case authHeader != "":
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				common.ErrorResponse(c, 401, "Invalid authorization header format", nil)
				c.Abort()
				return
			}
			token = parts[1]
		default:
			token = c.Query("token")
			if token == "" {
				common.ErrorResponse(c, 401, "Missing authorization header", nil)
				c.Abort()
				return
			}
		}

		claims, err := jwtManager.VerifyToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				common.ErrorResponse(c, 401, "Token expired", err)
			} else {
				common.ErrorResponse(c, 401, "Invalid token", err)
			}
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("displayName", claims.DisplayName)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// OptionalJWTAuth verifies a token when present but lets anonymous
// requests through. Used on endpoints that only vary by identity.
func OptionalJWTAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			if claims, err := jwtManager.VerifyToken(parts[1]); err == nil {
				c.Set("userID", claims.UserID)
				c.Set("displayName", claims.DisplayName)
				c.Set("role", claims.Role)
			}
		}
		c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get("userID")
	if !exists {
		return ""
	}
	if str, ok := userID.(string); ok {
		return str
	}
	return ""
}

// GetRole extracts the caller's role from context
func GetRole(c *gin.Context) string {
	role, exists := c.Get("role")
	if !exists {
		return ""
	}
	if str, ok := role.(string); ok {
		return str
	}
	return ""
}
