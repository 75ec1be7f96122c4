package server

import (
	"net/http"

	deletiondomain "github.com/classbridge/feeledger/internal/deletion/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) BulkDeleteBilling(c *gin.Context) {
	var req deletiondomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.deletionSvc.BulkDelete(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// A blocked run is a refusal, not a failure: the caller must re-submit
	// with force after reviewing the at-risk payments.
	if result.Blocked {
		c.JSON(http.StatusConflict, result)
		return
	}

	c.JSON(http.StatusOK, result)
}
