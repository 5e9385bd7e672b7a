package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

const (
	requestIDKey    = "request_id"
	adminKey        = "admin"
	requestIDHeader = "X-Request-ID"
	fullRole        = entity.RoleFull
)

// AdminLookup resolves the admin a token was issued to
type AdminLookup interface {
	GetAdmin(ctx context.Context, id int64) (*entity.Admin, error)
}

// requestIDMiddleware propagates the caller's request id or assigns one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// corsMiddleware adds CORS headers. An empty allow list permits any origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allow := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allow[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allow) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allow[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// authMiddleware resolves the bearer token to the admin as currently stored.
// A token for a deleted admin is rejected.
func authMiddleware(tokens TokenVerifier, admins AdminLookup, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		adminID, err := claims.AdminID()
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		admin, err := admins.GetAdmin(c.Request.Context(), adminID)
		if err != nil {
			logger.Error("Failed to resolve token admin", "error", err, "admin_id", adminID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "internal error",
				Code:    "internal",
			})
			return
		}
		if admin == nil {
			abortUnauthorized(c, "unknown admin")
			return
		}

		c.Set(adminKey, admin)
		c.Next()
	}
}

// requireRole rejects admins without role
func requireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := currentAdmin(c)
		if admin == nil || admin.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "This action requires the " + string(role) + " role",
				Code:    "forbidden",
			})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="partner-review"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Success: false,
		Error:   msg,
		Code:    "unauthenticated",
	})
}

// currentAdmin returns the authenticated admin, or nil on public routes
func currentAdmin(c *gin.Context) *entity.Admin {
	v, ok := c.Get(adminKey)
	if !ok {
		return nil
	}
	admin, _ := v.(*entity.Admin)
	return admin
}
