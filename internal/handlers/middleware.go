package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"golang.org/x/crypto/bcrypt"
)

// AdminPasswordHeader carries the organizer password on admin requests.
const AdminPasswordHeader = "X-Admin-Password"

// AdminAuth rejects requests whose password does not match the configured
// bcrypt hash.
func (h *HTTPHandler) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminHash == "" {
			c.Next()
			return
		}
		password := c.GetHeader(AdminPasswordHeader)
		if err := bcrypt.CompareHashAndPassword([]byte(h.adminHash), []byte(password)); err != nil {
			logger.Warningf("Rejected admin request %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "管理员密码错误", "kind": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// RequestLogger writes one access log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infof("%s %s %d %v %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
