package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BarkinBalci/synthesis-engine/internal/auth"
	"github.com/BarkinBalci/synthesis-engine/internal/dto"
)

// requireAdmin rejects requests without a valid admin bearer token
func (h *Handler) requireAdmin(c *gin.Context) {
	token, err := auth.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		h.writeError(c, "Missing bearer token", err)
		return
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		h.writeError(c, "Rejected bearer token", err)
		return
	}

	c.Set(subjectKey, claims.Subject)
	c.Next()
}

// rateLimit throttles each token subject independently
func (h *Handler) rateLimit(c *gin.Context) {
	if h.limiter == nil {
		c.Next()
		return
	}

	subject := c.GetString(subjectKey)
	if !h.limiter.Allow(subject) {
		h.log.Warn("Rate limit exceeded", zap.String("subject", subject))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:   "rate_limited",
			Message: "too many queries, retry later",
		})
		return
	}

	c.Next()
}
