package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/domain/interventions"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrInvariant indicates invariant rule violation.
	ErrInvariant = errors.New("aggregate invariant violation")
	// ErrConflict indicates optimistic/concurrency conflict.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("aggregate retryable")
)

// ValidationError tags an error as validation failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// InvariantError tags an error as invariant violation.
func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

// ConflictError tags an error as conflict failure.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// RetryableError tags an error as retryable failure.
func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// MapError classifies err into an aggregate error code for op. Errors that
// are already *domainagg.Error pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	if code, ok := sentinelCode(err); ok {
		return domainagg.Wrap(code, op, err)
	}
	if errors.Is(err, interventions.ErrInvalidType) {
		return &domainagg.Error{Code: domainagg.CodeValidation, Op: op, Message: err.Error(), Reason: domainagg.ReasonInvalidType, Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return duplicateError(op, err, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err)
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return domainagg.Wrap(domainagg.CodeRetryable, op, err)
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "duplicate key"):
		return duplicateError(op, err, msg)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

func sentinelCode(err error) (domainagg.ErrorCode, bool) {
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.CodeValidation, true
	case errors.Is(err, ErrInvariant):
		return domainagg.CodeInvariantViolation, true
	case errors.Is(err, ErrConflict):
		return domainagg.CodeConflict, true
	case errors.Is(err, ErrRetryable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable, true
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound, true
	}
	return "", false
}

// duplicateError tags a unique violation with the column it collided on.
// hint is a postgres constraint name (idx_interventions_uid) or a sqlite
// message (UNIQUE constraint failed: interventions.uid).
func duplicateError(op string, err error, hint string) error {
	out := &domainagg.Error{Code: domainagg.CodeConflict, Op: op, Message: err.Error(), Cause: err}
	hint = strings.ToLower(hint)
	switch {
	case strings.HasSuffix(hint, "idempotency_key"):
		out.Reason = domainagg.ReasonDuplicateIdemKey
	case strings.HasSuffix(hint, "_uid"), strings.HasSuffix(hint, ".uid"):
		out.Reason = domainagg.ReasonDuplicateUID
	case strings.HasSuffix(hint, "_hid"), strings.HasSuffix(hint, ".hid"):
		out.Reason = domainagg.ReasonDuplicateHID
	}
	return out
}

// ErrorMessage renders err for a per-item failure report.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) && strings.TrimSpace(aggErr.Message) != "" {
		return aggErr.Message
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "unknown error"
	}
	return msg
}
