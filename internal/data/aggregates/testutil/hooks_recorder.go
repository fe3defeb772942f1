package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/reforest-backend/internal/data/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []OperationEvent
	Conflicts  []string
	Retries    []string
	Batches    []BatchEvent
}

type BatchEvent struct {
	Stage        string
	Succeeded    int
	Failed       int
	UsedFallback bool
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{
		Name:     name,
		Status:   status,
		Duration: dur,
	})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

func (h *HooksRecorder) ObserveBatch(stage string, succeeded, failed int, usedFallback bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Batches = append(h.Batches, BatchEvent{
		Stage:        stage,
		Succeeded:    succeeded,
		Failed:       failed,
		UsedFallback: usedFallback,
	})
}

// Batch returns the last recorded event for stage.
func (h *HooksRecorder) Batch(stage string) (BatchEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.Batches) - 1; i >= 0; i-- {
		if h.Batches[i].Stage == stage {
			return h.Batches[i], true
		}
	}
	return BatchEvent{}, false
}

// Statuses returns the recorded operation statuses for name, in order.
func (h *HooksRecorder) Statuses(name string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, op := range h.Operations {
		if op.Name == name {
			out = append(out, op.Status)
		}
	}
	return out
}
