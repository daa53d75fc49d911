package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagedrop/internal/auth"
	"github.com/pagedrop/internal/metrics"
)

const claimsContextKey = "auth_claims"

type loginPayload struct {
	Password string `json:"password"`
}

// Login 校验管理员密码并签发访问令牌
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "Invalid request body") {
		return
	}

	token, err := a.gate.IssueToken(payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("rejected").Inc()
			respondError(c, http.StatusUnauthorized, "Invalid password")
			return
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	metrics.LoginAttempts.WithLabelValues("accepted").Inc()
	c.JSON(http.StatusOK, gin.H{
		"token":     token.Value,
		"expiresAt": token.ExpiresAt,
	})
}

// AuthRequired 校验 Bearer 令牌：缺失返回 401，无效或过期返回 403
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if errors.Is(err, auth.ErrForbidden) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := a.gate.VerifyToken(token)
		if err != nil {
			status := http.StatusForbidden
			if errors.Is(err, auth.ErrUnauthenticated) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}
