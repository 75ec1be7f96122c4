package server

import (
	"net/http"

	"github.com/classbridge/feeledger/internal/auditcontext"
	"github.com/gin-gonic/gin"
)

type linkPaymentRequest struct {
	PaymentID string `json:"payment_id"`
}

func (s *Server) LinkPayment(c *gin.Context) {
	var req linkPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	record, err := s.paymentLinkSvc.Link(ctx, c.Param("id"), req.PaymentID, auditcontext.ActorFromContext(ctx))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) UnlinkPayment(c *gin.Context) {
	ctx := c.Request.Context()
	err := s.paymentLinkSvc.Unlink(ctx, c.Param("id"), c.Param("paymentID"), auditcontext.ActorFromContext(ctx))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unlinked"})
}

func (s *Server) ListLinkedPayments(c *gin.Context) {
	resp, err := s.paymentLinkSvc.ListLinked(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
