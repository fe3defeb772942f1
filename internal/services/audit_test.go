package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/observability"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	seen    int
}

func (s *blockingSink) RecordChange(context.Context, domainagg.ChangeEvent) error {
	<-s.release
	s.mu.Lock()
	s.seen++
	s.mu.Unlock()
	return nil
}

func TestAsyncChangeSinkDrainsOnClose(t *testing.T) {
	next := &recordingSink{}
	sink := NewAsyncChangeSink(logger.Nop(), "audit", next, 16, 2, nil)

	for i := 0; i < 10; i++ {
		if err := sink.RecordChange(context.Background(), domainagg.ChangeEvent{Action: "a", EntityID: int64(i)}); err != nil {
			t.Fatalf("RecordChange %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(next.Events()); n != 10 {
		t.Fatalf("drained events: want=10 got=%d", n)
	}
	if err := sink.RecordChange(context.Background(), domainagg.ChangeEvent{Action: "late"}); err == nil {
		t.Fatalf("expected closed sink to reject events")
	}
}

func TestAsyncChangeSinkCountsFailures(t *testing.T) {
	metrics := observability.NewMetrics()
	next := &recordingSink{err: errors.New("down")}
	sink := NewAsyncChangeSink(logger.Nop(), "notify", next, 4, 1, metrics)

	_ = sink.RecordChange(context.Background(), domainagg.ChangeEvent{Action: "a"})
	_ = sink.RecordChange(context.Background(), domainagg.ChangeEvent{Action: "b"})
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	n, err := testutil.GatherAndCount(metrics.Registry(), "reforest_change_sink_failures_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Fatalf("failure series: want=1 got=%d", n)
	}
	families, err := metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "reforest_change_sink_failures_total" {
			continue
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
			t.Fatalf("failures: want=2 got=%v", got)
		}
	}
}

func TestAsyncChangeSinkRejectsWhenFull(t *testing.T) {
	next := &blockingSink{release: make(chan struct{})}
	sink := NewAsyncChangeSink(logger.Nop(), "audit", next, 1, 1, nil)

	var rejected int
	for i := 0; i < 5; i++ {
		if err := sink.RecordChange(context.Background(), domainagg.ChangeEvent{Action: "a"}); err != nil {
			rejected++
		}
	}
	close(next.release)
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rejected == 0 {
		t.Fatalf("expected some events to be rejected by a full queue")
	}
	next.mu.Lock()
	defer next.mu.Unlock()
	if next.seen+rejected != 5 {
		t.Fatalf("events lost: seen=%d rejected=%d", next.seen, rejected)
	}
}

func TestMultiChangeSinkJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("down")}
	sink := NewMultiChangeSink(ok, nil, bad)

	err := sink.RecordChange(context.Background(), domainagg.ChangeEvent{Action: "a"})
	if err == nil || err.Error() != "down" {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.Events()) != 1 || len(bad.Events()) != 1 {
		t.Fatalf("every sink should see the event")
	}
}

func TestBusChangeSinkRequiresBus(t *testing.T) {
	if err := NewBusChangeSink(nil).RecordChange(context.Background(), domainagg.ChangeEvent{Action: "a"}); err == nil {
		t.Fatalf("expected error without bus")
	}
	if err := NewLoggingChangeSink(logger.Nop()).RecordChange(context.Background(), domainagg.ChangeEvent{Action: "a"}); err != nil {
		t.Fatalf("logging sink: %v", err)
	}
}
