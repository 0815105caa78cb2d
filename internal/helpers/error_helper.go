package helpers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Stable machine-readable rejection reasons. Clients switch on these, so the
// strings are part of the API.
const (
	ReasonInvalidInput      = "invalid_input"
	ReasonNotFound          = "not_found"
	ReasonNotPublished      = "not_published"
	ReasonDeadlinePassed    = "deadline_passed"
	ReasonLimitReached      = "limit_reached"
	ReasonNotEligible       = "not_eligible"
	ReasonAlreadyRegistered = "already_registered"
	ReasonForbiddenFields   = "forbidden_fields"
	ReasonFormLocked        = "form_locked"
	ReasonNotEditable       = "not_editable"
	ReasonAlreadyPublished  = "already_published"
	ReasonAlreadyProcessed  = "already_processed"
	ReasonInvalidTicket     = "invalid_ticket"
	ReasonAlreadyAttended   = "already_attended"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithReason is RespondWithError plus the machine-readable reason code
// business-rule rejections must carry.
func RespondWithReason(c *gin.Context, statusCode int, reason, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
		Reason:  reason,
	})
}

// IsDuplicateError reports whether err is a store-level uniqueness violation.
// Covers gorm's translated error plus the raw postgres and sqlite messages,
// since TranslateError support varies by driver.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
