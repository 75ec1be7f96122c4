package server

import (
	"net/http"

	generationdomain "github.com/classbridge/feeledger/internal/generation/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GenerateBilling(c *gin.Context) {
	var req generationdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	report, err := s.generationSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
