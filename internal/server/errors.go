package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/gstinvoice/internal/ledger/domain"
	"github.com/smallbiznis/gstinvoice/internal/ratelimit"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
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
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
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

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, invoicedomain.ErrAllocationConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "invoice number allocation conflict, retry the request",
		}
	case errors.Is(err, ratelimit.ErrRenderBusy):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "document is already being generated",
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many documents requested, retry later",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, invoicedomain.ErrInconsistentTotals):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "inconsistent_totals",
			Message: "invoice totals do not reconcile",
		}
	case errors.Is(err, invoicedomain.ErrRenderResource):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "render_resource_unavailable",
			Message: "document resources are unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// asValidationErrors converts both the handler-level and the domain-level
// validation error lists.
func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}

	var domainErrs invoicedomain.ValidationErrors
	if errors.As(err, &domainErrs) {
		out := &ValidationErrors{Errors: make([]ValidationError, 0, len(domainErrs))}
		for _, e := range domainErrs {
			out.Errors = append(out.Errors, ValidationError{Field: e.Field, Code: e.Code, Message: e.Message})
		}
		return out
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrInvalidMerchant),
		errors.Is(err, invoicedomain.ErrInvalidOrderRef),
		errors.Is(err, invoicedomain.ErrInvalidPrefix),
		errors.Is(err, ledgerdomain.ErrInvalidMerchant),
		errors.Is(err, ledgerdomain.ErrInvalidPeriod),
		errors.Is(err, ledgerdomain.ErrInvalidRate),
		errors.Is(err, taxdomain.ErrNegativeAmount),
		errors.Is(err, taxdomain.ErrNegativeRate),
		errors.Is(err, taxdomain.ErrUnknownRegime):
		return true
	default:
		return false
	}
}

func validationErrorField(err error) string {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidMerchant),
		errors.Is(err, ledgerdomain.ErrInvalidMerchant):
		return "merchant_id"
	case errors.Is(err, invoicedomain.ErrInvalidOrderRef):
		return "order_id"
	case errors.Is(err, invoicedomain.ErrInvalidPrefix):
		return "prefix"
	case errors.Is(err, ledgerdomain.ErrInvalidPeriod):
		return "period"
	case errors.Is(err, ledgerdomain.ErrInvalidRate),
		errors.Is(err, taxdomain.ErrNegativeRate):
		return "gst_rate"
	case errors.Is(err, taxdomain.ErrNegativeAmount):
		return "taxable"
	case errors.Is(err, taxdomain.ErrUnknownRegime):
		return "regime"
	default:
		return "request"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotAllocated):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the error type and code recorded on the
// request log line.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server", payload.Type
	default:
		return "client", payload.Type
	}
}
