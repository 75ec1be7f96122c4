package server

import (
	"errors"
	"net/http"

	auditdomain "github.com/classbridge/feeledger/internal/audit/domain"
	billingdomain "github.com/classbridge/feeledger/internal/billing/domain"
	deletiondomain "github.com/classbridge/feeledger/internal/deletion/domain"
	feeconfigdomain "github.com/classbridge/feeledger/internal/feeconfig/domain"
	generationdomain "github.com/classbridge/feeledger/internal/generation/domain"
	paymentdomain "github.com/classbridge/feeledger/internal/payment/domain"
	paymentlinkdomain "github.com/classbridge/feeledger/internal/paymentlink/domain"
	studentdomain "github.com/classbridge/feeledger/internal/student/domain"
	"github.com/gin-gonic/gin"
)

// APIError is the wire shape of every error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code }

var errorStatus = map[error]int{
	billingdomain.ErrInvalidStudent:       http.StatusBadRequest,
	billingdomain.ErrInvalidSite:          http.StatusBadRequest,
	billingdomain.ErrInvalidYear:          http.StatusBadRequest,
	billingdomain.ErrInvalidPeriod:        http.StatusBadRequest,
	billingdomain.ErrInvalidScope:         http.StatusBadRequest,
	billingdomain.ErrNegativeTotalBilled:  http.StatusBadRequest,
	billingdomain.ErrNegativeTotalPaid:    http.StatusBadRequest,
	generationdomain.ErrInvalidSite:       http.StatusBadRequest,
	generationdomain.ErrInvalidYear:       http.StatusBadRequest,
	generationdomain.ErrInvalidPeriod:     http.StatusBadRequest,
	generationdomain.ErrInvalidClass:      http.StatusBadRequest,
	generationdomain.ErrInvalidDepartment: http.StatusBadRequest,
	generationdomain.ErrNoClasses:         http.StatusBadRequest,
	deletiondomain.ErrInvalidSite:         http.StatusBadRequest,
	deletiondomain.ErrInvalidYear:         http.StatusBadRequest,
	deletiondomain.ErrInvalidPeriod:       http.StatusBadRequest,
	deletiondomain.ErrInvalidClass:        http.StatusBadRequest,
	auditdomain.ErrInvalidAction:          http.StatusBadRequest,
	auditdomain.ErrInvalidTarget:          http.StatusBadRequest,

	billingdomain.ErrRecordNotFound:   http.StatusNotFound,
	paymentdomain.ErrPaymentNotFound:  http.StatusNotFound,
	studentdomain.ErrStudentNotFound:  http.StatusNotFound,
	studentdomain.ErrClassNotFound:    http.StatusNotFound,
	feeconfigdomain.ErrConfigNotFound: http.StatusNotFound,

	billingdomain.ErrDuplicateRecord:     http.StatusConflict,
	paymentlinkdomain.ErrAlreadyLinked:   http.StatusConflict,
	paymentlinkdomain.ErrNotLinked:       http.StatusConflict,
	billingdomain.ErrRecordLocked:        http.StatusLocked,
	paymentlinkdomain.ErrStudentMismatch: http.StatusUnprocessableEntity,
}

// AbortWithError maps a domain sentinel to its HTTP status and writes the
// error payload. Unknown errors become 500s without leaking internals.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, apiErr)
		return
	}

	for sentinel, status := range errorStatus {
		if errors.Is(err, sentinel) {
			c.AbortWithStatusJSON(status, &APIError{
				Status:  status,
				Code:    sentinel.Error(),
				Message: sentinel.Error(),
			})
			return
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "an unexpected error occurred",
	})
}

func invalidRequestError() *APIError {
	return badRequestError("request body could not be parsed")
}

func badRequestError(msg string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: msg,
	}
}
