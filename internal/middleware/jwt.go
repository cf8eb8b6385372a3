package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
)

const claimsKey = "claims"

// RequireJWT authenticates hosts from the Authorization bearer header.
func RequireJWT(auth *service.AuthService) gin.HandlerFunc {
	return requireToken(auth, bearerToken)
}

// RequireWSAuth authenticates WebSocket upgrades from ?token=...;
// browsers cannot attach headers to upgrade requests.
func RequireWSAuth(auth *service.AuthService) gin.HandlerFunc {
	return requireToken(auth, func(c *gin.Context) string {
		return c.Query("token")
	})
}

func requireToken(auth *service.AuthService, extract func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extract(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := auth.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the authenticated host's claims, or nil when the
// request never went through an auth middleware.
func GetClaims(c *gin.Context) *service.Claims {
	val, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := val.(*service.Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
