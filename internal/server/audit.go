package server

import (
	"net/http"
	"strconv"
	"time"

	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	"github.com/gin-gonic/gin"
)

// ListAuditLogs returns audit entries filtered by action, target and time
// window. Timestamps are RFC 3339.
func (s *Server) ListAuditLogs(c *gin.Context) {
	filter := auditdomain.ListFilter{
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
		TargetID:   c.Query("target_id"),
	}
	if raw := c.Query("start"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, badRequestError("start must be RFC 3339"))
			return
		}
		filter.StartAt = &at
	}
	if raw := c.Query("end"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, badRequestError("end must be RFC 3339"))
			return
		}
		filter.EndAt = &at
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			AbortWithError(c, badRequestError("limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	logs, err := s.auditSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}
