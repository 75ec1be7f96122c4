package server

import (
	"net/http"

	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateBillingRecord(c *gin.Context) {
	var req billingdomain.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.billingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (s *Server) ListBillingRecords(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	records, err := s.billingSvc.ListByScope(c.Request.Context(), scope)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (s *Server) GetBillingRecord(c *gin.Context) {
	record, err := s.billingSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}
