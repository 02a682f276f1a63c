package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const MatcherHeader = "X-Matcher-ID"

// RequireMatcher rejects execution requests that do not name the matcher
// instance that produced them.
func RequireMatcher() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(MatcherHeader)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": MatcherHeader + " header required"})
			return
		}
		c.Set("matcher_id", id)
		c.Next()
	}
}

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if id := c.GetString("matcher_id"); id != "" {
			fields = append(fields, zap.String("matcher_id", id))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}
