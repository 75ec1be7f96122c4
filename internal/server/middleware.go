package server

import (
	"github.com/classbridge/feeledger/internal/auditcontext"
	"github.com/gin-gonic/gin"
)

// AuditContextMiddleware copies the caller identity off the request so the
// audit layer can attribute every write without handlers threading it through.
func AuditContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if requestID := c.Writer.Header().Get("X-Request-Id"); requestID != "" {
			ctx = auditcontext.WithRequestID(ctx, requestID)
		}
		if actor := c.GetHeader("X-Actor-Id"); actor != "" {
			ctx = auditcontext.WithActor(ctx, actor)
		}
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		if ua := c.Request.UserAgent(); ua != "" {
			ctx = auditcontext.WithUserAgent(ctx, ua)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
