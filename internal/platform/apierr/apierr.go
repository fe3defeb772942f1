package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	out := &Error{Status: status, Code: code, Err: err}
	if err != nil {
		out.Message = err.Error()
	}
	return out
}

// StatusFor maps an aggregate error code to an HTTP status.
func StatusFor(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeForbidden:
		return http.StatusForbidden
	case domainagg.CodeConflict:
		return http.StatusConflict
	case domainagg.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError renders any error as a client-facing payload. Internal failures
// keep their cause in Err but expose only a generic message.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		return &Error{
			Status:  http.StatusInternalServerError,
			Code:    string(domainagg.CodeInternal),
			Message: "internal error",
			Err:     err,
		}
	}
	out := &Error{
		Status:  StatusFor(aggErr.Code),
		Code:    string(aggErr.Code),
		Reason:  domainagg.ReasonOf(err),
		Message: aggErr.Message,
		Details: aggErr.Details,
		Err:     err,
	}
	if aggErr.Code == domainagg.CodeInternal || aggErr.Code == "" {
		out.Code = string(domainagg.CodeInternal)
		out.Message = "internal error"
		out.Details = nil
	}
	return out
}
