package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/tutorly/internal/account/domain"
	directorydomain "github.com/smallbiznis/tutorly/internal/directory/domain"
	"github.com/smallbiznis/tutorly/internal/directory/selection"
	enrollmentdomain "github.com/smallbiznis/tutorly/internal/enrollment/domain"
	ledgerdomain "github.com/smallbiznis/tutorly/internal/ledger/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type      string                            `json:"type"`
	Message   string                            `json:"message"`
	Errors    []ValidationError                 `json:"errors,omitempty"`
	Stage     string                            `json:"stage,omitempty"`
	Retryable bool                              `json:"retryable,omitempty"`
	Blocking  []directorydomain.BlockingAccount `json:"blocking,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErr *directorydomain.ValidationError
	if errors.As(err, &fieldErr) {
		message := "invalid value"
		if fieldErr.Detail != "" {
			message = fieldErr.Detail
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: fieldErr.Field, Code: fieldErr.Code, Message: message},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var integrityErr *directorydomain.ReferentialIntegrityError
	if errors.As(err, &integrityErr) {
		return http.StatusConflict, errorPayload{
			Type:     "referential_integrity",
			Message:  "accounts are still referenced",
			Blocking: integrityErr.Blocking,
		}
	}

	var stageErr *directorydomain.StageError
	if errors.As(err, &stageErr) {
		if stageErr.Timeout {
			return http.StatusServiceUnavailable, errorPayload{
				Type:      "store_timeout",
				Message:   "directory query timed out",
				Stage:     string(stageErr.Stage),
				Retryable: true,
			}
		}
		return http.StatusInternalServerError, errorPayload{
			Type:    "store_error",
			Message: "directory query failed",
			Stage:   string(stageErr.Stage),
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, ledgerdomain.ErrDuplicateNumber):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if payload.Stage != "" {
		code = payload.Stage
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, selection.ErrInvalidKey):
		return true
	case isOrganizationValidationError(err),
		isAccountValidationError(err),
		isLedgerValidationError(err),
		isEnrollmentValidationError(err):
		return true
	default:
		return false
	}
}

func isOrganizationValidationError(err error) bool {
	return errors.Is(err, directorydomain.ErrInvalidOrganization) ||
		errors.Is(err, accountdomain.ErrInvalidOrganization) ||
		errors.Is(err, ledgerdomain.ErrInvalidOrganization) ||
		errors.Is(err, enrollmentdomain.ErrInvalidOrganization)
}

func isAccountValidationError(err error) bool {
	switch err {
	case accountdomain.ErrInvalidName,
		accountdomain.ErrInvalidEmail,
		accountdomain.ErrInvalidStatus,
		accountdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isLedgerValidationError(err error) bool {
	switch err {
	case ledgerdomain.ErrInvalidAccount,
		ledgerdomain.ErrInvalidNumber,
		ledgerdomain.ErrInvalidStatus,
		ledgerdomain.ErrInvalidBalance,
		ledgerdomain.ErrInvalidCurrency,
		ledgerdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isEnrollmentValidationError(err error) bool {
	switch err {
	case enrollmentdomain.ErrInvalidAccount,
		enrollmentdomain.ErrInvalidMember,
		enrollmentdomain.ErrInvalidServiceName,
		enrollmentdomain.ErrInvalidStatus:
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, directorydomain.ErrAccountNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrAccountNotFound),
		errors.Is(err, enrollmentdomain.ErrAccountNotFound),
		errors.Is(err, enrollmentdomain.ErrMemberNotFound),
		errors.Is(err, selection.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case isOrganizationValidationError(err):
		return "invalid_organization"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_organization":
		return "missing or invalid organization"
	default:
		return "invalid value"
	}
}
