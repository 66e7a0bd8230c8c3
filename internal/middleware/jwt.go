package middleware

import (
	"net/http"
	"strings"

	"github.com/coursekit/livequiz-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextKeyClaims is the Gin context key for JWT claims.
const ContextKeyClaims = "claims"

// RequireStudentJWT validates a student JWT from the Authorization header.
// Auth failures are a bare 401 with an empty body — no detail leaks to
// unauthenticated probes, not even whether a session exists.
func RequireStudentJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireRole(authService, service.TokenTypeStudent)
}

// RequirePresenterJWT validates a presenter JWT from the Authorization
// header. Presenter and projector surfaces fail closed the same way.
func RequirePresenterJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireRole(authService, service.TokenTypePresenter)
}

func requireRole(authService *service.AuthService, want service.TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService)
		if err != nil || claims.TokenType != want {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractAndValidateClaims(c *gin.Context, authService *service.AuthService) (*service.Claims, error) {
	tokenStr := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
	}

	// Fallback for clients that cannot set headers on poll requests.
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	return authService.ValidateToken(tokenStr)
}
