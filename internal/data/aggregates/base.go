package aggregates

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/observability"
	"github.com/yungbote/reforest-backend/internal/pkg/dbctx"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

// RetryPolicy bounds how often a write is replayed after a retryable storage
// failure (serialization failure, deadlock, lock timeout). Attempts counts the
// first try; values below 1 mean DefaultRetryPolicy.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 25 * time.Millisecond}

// NoRetry runs every write exactly once.
var NoRetry = RetryPolicy{Attempts: 1}

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	Retry    RetryPolicy
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Retry.Attempts < 1 {
		d.Retry = DefaultRetryPolicy
	}
	return d
}

// executeWrite runs fn in one transaction per attempt. Only CodeRetryable
// failures are replayed, and never once ctx is done. Conflicts are final: a
// stale version means the caller must re-read.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := observability.StartSpan(ctx, op)
	defer span.End()

	var (
		mapped  error
		attempt int
	)
	for attempt = 1; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if !shouldRetry(ctx, mapped, attempt, deps.Retry) {
			break
		}
		deps.Hooks.IncRetry(op)
		deps.Log.Debug("Retrying aggregate write", "op", op, "attempt", attempt, "error", mapped)
		if !sleepCtx(ctx, deps.Retry.Backoff*time.Duration(attempt)) {
			break
		}
	}

	status := aggregateErrorStatus(mapped)
	if mapped != nil {
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeInternal) {
			deps.Log.Error("Aggregate write failed", "op", op, "error", mapped)
		}
		observability.FailSpan(span, mapped, status)
	}
	span.SetAttributes(
		attribute.String("aggregate.status", status),
		attribute.Int("aggregate.attempts", attempt),
	)
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func shouldRetry(ctx context.Context, err error, attempt int, policy RetryPolicy) bool {
	if err == nil || attempt >= policy.Attempts || ctx.Err() != nil {
		return false
	}
	return domainagg.IsCode(err, domainagg.CodeRetryable)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
