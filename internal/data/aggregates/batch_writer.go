package aggregates

import (
	"context"

	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

// BatchFailure pairs an item with the error that kept it out of storage.
type BatchFailure[T any] struct {
	Item T
	Err  error
}

type BatchResult[T any] struct {
	Succeeded    []T
	Failed       []BatchFailure[T]
	UsedFallback bool
}

// BatchWriter inserts a slice in one statement and, when that fails, retries
// every item on its own so one bad row cannot sink the rest. Fallback inserts
// run sequentially.
type BatchWriter[T any] struct {
	Stage string
	// WriteBatch persists all items atomically.
	WriteBatch func(ctx context.Context, items []T) error
	// WriteOne persists a single item. Defaults to WriteBatch with one item.
	WriteOne func(ctx context.Context, item T) error
	// Reset clears state a failed batch may have left on an item.
	Reset func(item T)

	Hooks Hooks
	Log   *logger.Logger
}

func (w BatchWriter[T]) WriteAll(ctx context.Context, items []T) BatchResult[T] {
	var out BatchResult[T]
	if len(items) == 0 {
		return out
	}
	hooks := w.Hooks
	if hooks == nil {
		hooks = noopHooks{}
	}
	log := w.Log
	if log == nil {
		log = logger.Nop()
	}
	writeOne := w.WriteOne
	if writeOne == nil {
		writeOne = func(ctx context.Context, item T) error {
			return w.WriteBatch(ctx, []T{item})
		}
	}

	batchErr := w.WriteBatch(ctx, items)
	if batchErr == nil {
		out.Succeeded = append(out.Succeeded, items...)
		hooks.ObserveBatch(w.Stage, len(out.Succeeded), 0, false)
		return out
	}

	log.Warn("Batch insert failed, falling back to per-row inserts",
		"stage", w.Stage,
		"rows", len(items),
		"error", batchErr,
	)
	out.UsedFallback = true
	for _, item := range items {
		if w.Reset != nil {
			w.Reset(item)
		}
		if err := ctx.Err(); err != nil {
			out.Failed = append(out.Failed, BatchFailure[T]{Item: item, Err: err})
			continue
		}
		if err := writeOne(ctx, item); err != nil {
			if w.Reset != nil {
				w.Reset(item)
			}
			out.Failed = append(out.Failed, BatchFailure[T]{Item: item, Err: err})
			continue
		}
		out.Succeeded = append(out.Succeeded, item)
	}
	hooks.ObserveBatch(w.Stage, len(out.Succeeded), len(out.Failed), true)
	return out
}
