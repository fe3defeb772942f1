package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes aggregate failure semantics across domains.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeForbidden          ErrorCode = "forbidden"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Machine-readable reasons carried next to a code.
const (
	ReasonInvalidGeoJSON      = "invalid_geojson"
	ReasonInvalidCoordinates  = "invalid_coordinates"
	ReasonTreeCountMismatch   = "tree_count_mismatch"
	ReasonSpeciesRequired     = "species_required"
	ReasonInvalidSpeciesCount = "invalid_species_count"
	ReasonUnknownSpecies      = "unknown_species"
	ReasonInvalidType         = "invalid_type"
	ReasonCountBelowTrees     = "species_count_below_tree_count"
	ReasonTerminalStatus      = "terminal_status"
	ReasonSelfTransfer        = "self_transfer"
	ReasonInsufficientRole    = "insufficient_role"
	ReasonInactiveUser        = "inactive_user"
	ReasonDuplicateUID        = "duplicate_uid"
	ReasonDuplicateIdemKey    = "duplicate_idempotency_key"
	ReasonDuplicateHID        = "duplicate_hid"
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	// Reason is a stable tag callers can switch on (e.g. "tree_count_mismatch").
	Reason string
	// Details is an optional diagnostic payload such as *CountViolation.
	Details any
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// NewReasonError builds an aggregate error tagged with a reason and optional details.
func NewReasonError(code ErrorCode, op, reason, message string, details any) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Reason:  strings.TrimSpace(reason),
		Details: details,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// ReasonOf extracts the outermost non-empty reason tag.
func ReasonOf(err error) string {
	for err != nil {
		var aggErr *Error
		if !errors.As(err, &aggErr) {
			return ""
		}
		if aggErr.Reason != "" {
			return aggErr.Reason
		}
		err = aggErr.Cause
	}
	return ""
}

// DetailsAs returns the diagnostic payload of err when it has type T.
func DetailsAs[T any](err error) (T, bool) {
	var zero T
	for err != nil {
		var aggErr *Error
		if !errors.As(err, &aggErr) {
			return zero, false
		}
		if d, ok := aggErr.Details.(T); ok {
			return d, true
		}
		err = aggErr.Cause
	}
	return zero, false
}

// CountViolation is the payload of a rejected species-count reduction.
type CountViolation struct {
	CurrentTreeCount      int      `json:"current_tree_count"`
	RequestedSpeciesCount int      `json:"requested_species_count"`
	TreeHIDs              []string `json:"tree_hids"`
}

// MissingSpecies is the payload of an unknown_species validation failure.
type MissingSpecies struct {
	IDs []int64 `json:"ids"`
}
