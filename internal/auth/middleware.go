package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminKeyHeader carries the shared admin secret.
const AdminKeyHeader = "x-admin-key"

// AdminOnly gates admin endpoints. A request passes with either the shared
// secret in the x-admin-key header or a bearer token previously issued by
// the admin login endpoint. An unset adminKey means the server is
// misconfigured and every admin request fails with a 500.
func AdminOnly(adminKey, jwtKey, issuer string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if adminKey == "" {
			logger.Error("admin gate missing ADMIN_KEY")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server misconfigured: ADMIN_KEY not set"})
			return
		}

		if provided := c.GetHeader(AdminKeyHeader); provided != "" {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) == 1 {
				c.Next()
				return
			}
			logger.Warn("admin gate rejected request", zap.String("reason", "bad key"))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		if authz := c.GetHeader("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			tokenStr := strings.TrimSpace(authz[len("bearer "):])
			claims, err := Parse(tokenStr, jwtKey, issuer)
			if err == nil && claims.Role == RoleAdmin {
				c.Next()
				return
			}
			logger.Warn("admin gate rejected request", zap.String("reason", "bad token"))
		} else {
			logger.Warn("admin gate rejected request", zap.String("reason", "no credentials"))
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
	}
}
