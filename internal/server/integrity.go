package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ValidateScope(c *gin.Context) {
	scope, err := scopeFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.integritySvc.Validate(c.Request.Context(), scope)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func scopeFromQuery(c *gin.Context) (billingdomain.Scope, error) {
	var scope billingdomain.Scope

	siteID, err := snowflake.ParseString(c.Query("school_site_id"))
	if err != nil {
		return scope, billingdomain.ErrInvalidSite
	}
	scope.SchoolSiteID = siteID

	scope.AcademicYear = c.Query("academic_year")
	if scope.AcademicYear == "" {
		return scope, billingdomain.ErrInvalidYear
	}

	scope.PeriodType = billingdomain.PeriodType(c.Query("period_type"))
	if scope.PeriodType != billingdomain.PeriodTypeTerm && scope.PeriodType != billingdomain.PeriodTypeSemester {
		return scope, billingdomain.ErrInvalidPeriod
	}

	scope.PeriodNumber, err = strconv.Atoi(c.Query("period_number"))
	if err != nil || scope.PeriodNumber < 1 {
		return scope, billingdomain.ErrInvalidPeriod
	}

	if raw := c.Query("class_id"); raw != "" {
		classID, err := snowflake.ParseString(raw)
		if err != nil {
			return scope, billingdomain.ErrInvalidScope
		}
		scope.ClassID = &classID
	}

	return scope, nil
}
