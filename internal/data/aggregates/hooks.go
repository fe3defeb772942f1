package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/reforest-backend/internal/observability"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

// Hooks receives write-path signals from executeWrite and BatchWriter.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	// ObserveBatch reports one BatchWriter stage of a bulk write.
	ObserveBatch(stage string, succeeded, failed int, usedFallback bool)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) ObserveBatch(string, int, int, bool)            {}

// metricsHooks feeds the prometheus collectors.
type metricsHooks struct {
	m *observability.Metrics
}

// NewObservabilityHooks returns hooks backed by metrics, or no-op hooks when
// metrics are disabled.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{m: metrics}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(strings.TrimSpace(name)) }
func (h metricsHooks) IncRetry(name string)    { h.m.IncAggregateRetry(strings.TrimSpace(name)) }

func (h metricsHooks) ObserveBatch(stage string, succeeded, failed int, usedFallback bool) {
	stage = strings.TrimSpace(stage)
	h.m.AddBulkRows(stage, "passed", succeeded)
	h.m.AddBulkRows(stage, "failed", failed)
	if usedFallback {
		h.m.IncBatchFallback(stage)
	}
}

// loggingHooks surfaces degraded bulk stages. Per-operation outcomes are
// already logged by executeWrite.
type loggingHooks struct {
	noopHooks
	log *logger.Logger
}

func NewLoggingHooks(log *logger.Logger) Hooks {
	if log == nil {
		return noopHooks{}
	}
	return loggingHooks{log: log.With("component", "aggregate_hooks")}
}

func (h loggingHooks) ObserveBatch(stage string, succeeded, failed int, usedFallback bool) {
	switch {
	case usedFallback:
		h.log.Warn("batch stage fell back to per-row inserts", "stage", stage, "succeeded", succeeded, "failed", failed)
	case failed > 0:
		h.log.Info("batch stage rejected rows", "stage", stage, "succeeded", succeeded, "failed", failed)
	}
}

type multiHooks []Hooks

// MultiHooks fans every signal out to each non-nil hook in order.
func MultiHooks(hooks ...Hooks) Hooks {
	out := make(multiHooks, 0, len(hooks))
	for _, h := range hooks {
		if h == nil {
			continue
		}
		if _, ok := h.(noopHooks); ok {
			continue
		}
		out = append(out, h)
	}
	switch len(out) {
	case 0:
		return noopHooks{}
	case 1:
		return out[0]
	}
	return out
}

func (m multiHooks) ObserveOperation(name, status string, dur time.Duration) {
	for _, h := range m {
		h.ObserveOperation(name, status, dur)
	}
}

func (m multiHooks) IncConflict(name string) {
	for _, h := range m {
		h.IncConflict(name)
	}
}

func (m multiHooks) IncRetry(name string) {
	for _, h := range m {
		h.IncRetry(name)
	}
}

func (m multiHooks) ObserveBatch(stage string, succeeded, failed int, usedFallback bool) {
	for _, h := range m {
		h.ObserveBatch(stage, succeeded, failed, usedFallback)
	}
}
