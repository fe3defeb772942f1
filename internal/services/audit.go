package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/observability"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
	"github.com/yungbote/reforest-backend/internal/realtime/bus"
)

// =========================
// Change sinks
// =========================

type noopChangeSink struct{}

func NewNoopChangeSink() domainagg.ChangeRecorder { return noopChangeSink{} }

func (noopChangeSink) RecordChange(context.Context, domainagg.ChangeEvent) error { return nil }

type loggingChangeSink struct {
	log *logger.Logger
}

// NewLoggingChangeSink writes every event as a structured log line.
func NewLoggingChangeSink(log *logger.Logger) domainagg.ChangeRecorder {
	return &loggingChangeSink{log: log.With("service", "AuditLog")}
}

func (s *loggingChangeSink) RecordChange(_ context.Context, ev domainagg.ChangeEvent) error {
	s.log.Info("Change recorded",
		"action", ev.Action,
		"entity_type", ev.EntityType,
		"entity_id", ev.EntityID,
		"entity_uid", ev.EntityUID,
		"project_id", ev.ProjectID,
		"user_id", ev.UserID,
		"changed_fields", ev.ChangedFields,
	)
	return nil
}

type busChangeSink struct {
	bus bus.Bus
}

// NewBusChangeSink publishes events on the change bus.
func NewBusChangeSink(b bus.Bus) domainagg.ChangeRecorder {
	return &busChangeSink{bus: b}
}

func (s *busChangeSink) RecordChange(ctx context.Context, ev domainagg.ChangeEvent) error {
	if s == nil || s.bus == nil {
		return fmt.Errorf("change bus not configured")
	}
	return s.bus.Publish(ctx, ev)
}

type multiChangeSink []domainagg.ChangeRecorder

// NewMultiChangeSink records to every sink and joins their errors.
func NewMultiChangeSink(sinks ...domainagg.ChangeRecorder) domainagg.ChangeRecorder {
	out := make(multiChangeSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiChangeSink) RecordChange(ctx context.Context, ev domainagg.ChangeEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.RecordChange(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncChangeSink hands events to background workers so a slow sink never
// holds up the caller. Close drains the queue.
type AsyncChangeSink struct {
	name    string
	next    domainagg.ChangeRecorder
	log     *logger.Logger
	metrics *observability.Metrics

	queue chan domainagg.ChangeEvent
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsyncChangeSink(log *logger.Logger, name string, next domainagg.ChangeRecorder, buffer, workers int, metrics *observability.Metrics) *AsyncChangeSink {
	if buffer <= 0 {
		buffer = 256
	}
	if workers <= 0 {
		workers = 1
	}
	s := &AsyncChangeSink{
		name:    name,
		next:    next,
		log:     log.With("service", "AsyncChangeSink", "sink", name),
		metrics: metrics,
		queue:   make(chan domainagg.ChangeEvent, buffer),
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.run()
	}
	return s
}

func (s *AsyncChangeSink) run() {
	defer s.wg.Done()
	for ev := range s.queue {
		if err := s.next.RecordChange(context.Background(), ev); err != nil {
			s.metrics.IncSinkFailure(s.name)
			s.log.Warn("Change sink failed", "action", ev.Action, "entity_id", ev.EntityID, "error", err)
		}
	}
}

// RecordChange enqueues ev. A full queue or a closed sink drops the event and
// returns an error the caller is expected to log.
func (s *AsyncChangeSink) RecordChange(ctx context.Context, ev domainagg.ChangeEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("change sink %s closed", s.name)
	}
	select {
	case s.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.metrics.IncSinkFailure(s.name)
		return fmt.Errorf("change sink %s queue full", s.name)
	}
}

// Close stops intake and waits for queued events until ctx expires.
func (s *AsyncChangeSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
