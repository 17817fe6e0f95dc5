package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"khata/internal/domain"
	"khata/internal/logging"
)

// Identity headers set by the upstream gateway. They are trusted as-is.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"

	ContextKeyTenantID = "tenant_id"
	ContextKeyUserID   = "user_id"
)

// TenantContext requires valid tenant and user ids in the request headers and
// stores them in the gin context.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader(HeaderTenantID))
		if err != nil || tenantID == uuid.Nil {
			abortUnauthorized(c, "missing or invalid "+HeaderTenantID+" header")
			return
		}
		userID, err := uuid.Parse(c.GetHeader(HeaderUserID))
		if err != nil || userID == uuid.Nil {
			abortUnauthorized(c, "missing or invalid "+HeaderUserID+" header")
			return
		}

		c.Set(ContextKeyTenantID, tenantID)
		c.Set(ContextKeyUserID, userID)

		ctx := c.Request.Context()
		l := logging.FromContext(ctx).With(slog.String("tenant_id", tenantID.String()))
		c.Request = c.Request.WithContext(logging.WithContext(ctx, l))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "UNAUTHORIZED", "message": msg},
	})
}

// GetTenantID extracts the tenant ID from the Gin context.
func GetTenantID(c *gin.Context) (uuid.UUID, error) {
	val, exists := c.Get(ContextKeyTenantID)
	if !exists {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return val.(uuid.UUID), nil
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return val.(uuid.UUID), nil
}
