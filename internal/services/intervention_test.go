package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	types "github.com/yungbote/reforest-backend/internal/domain"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

type fakeInterventionAggregate struct {
	createRes   domainagg.CreateInterventionResult
	createErr   error
	bulkRes     domainagg.BulkIngestResult
	reconcile   domainagg.ReconcileSpeciesResult
	transferRes domainagg.TransferOwnershipResult
	transferErr error
	bulkXfer    domainagg.BulkTransferOwnershipResult

	createCalls int
}

func (f *fakeInterventionAggregate) Create(context.Context, domainagg.CreateInterventionInput) (domainagg.CreateInterventionResult, error) {
	f.createCalls++
	return f.createRes, f.createErr
}

func (f *fakeInterventionAggregate) BulkIngest(context.Context, domainagg.BulkIngestInput) (domainagg.BulkIngestResult, error) {
	return f.bulkRes, nil
}

func (f *fakeInterventionAggregate) ReconcileSpecies(context.Context, domainagg.ReconcileSpeciesInput) (domainagg.ReconcileSpeciesResult, error) {
	return f.reconcile, nil
}

func (f *fakeInterventionAggregate) TransferOwnership(context.Context, domainagg.TransferOwnershipInput) (domainagg.TransferOwnershipResult, error) {
	return f.transferRes, f.transferErr
}

func (f *fakeInterventionAggregate) BulkTransferOwnership(context.Context, domainagg.BulkTransferOwnershipInput) (domainagg.BulkTransferOwnershipResult, error) {
	return f.bulkXfer, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domainagg.ChangeEvent
	err    error
}

func (s *recordingSink) RecordChange(ctx context.Context, ev domainagg.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) Events() []domainagg.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domainagg.ChangeEvent(nil), s.events...)
}

func TestCreateInterventionRecordsAfterSuccess(t *testing.T) {
	agg := &fakeInterventionAggregate{createRes: domainagg.CreateInterventionResult{
		Intervention: &types.Intervention{ID: 4, UID: "inv_4", ProjectID: 2, Type: types.TypeSingleTreeRegistration, TotalTreeCount: 1},
		Tree:         &types.Tree{ID: 8},
	}}
	audit := &recordingSink{}
	svc := NewInterventionService(logger.Nop(), agg, audit, nil)

	if _, err := svc.CreateIntervention(context.Background(), domainagg.CreateInterventionInput{UserID: 11}); err != nil {
		t.Fatalf("CreateIntervention: %v", err)
	}
	events := audit.Events()
	if len(events) != 1 {
		t.Fatalf("events: want=1 got=%d", len(events))
	}
	ev := events[0]
	if ev.Action != domainagg.ActionInterventionCreated || ev.EntityID != 4 || ev.UserID != 11 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set")
	}
	if len(ev.ChangedFields) != 3 || ev.ChangedFields[2] != "tree" {
		t.Fatalf("changed fields: %+v", ev.ChangedFields)
	}
}

func TestCreateInterventionSkipsSinkOnFailureAndReplay(t *testing.T) {
	audit := &recordingSink{}

	failing := &fakeInterventionAggregate{createErr: domainagg.NewError(domainagg.CodeValidation, "op", "bad", nil)}
	svc := NewInterventionService(logger.Nop(), failing, audit, nil)
	if _, err := svc.CreateIntervention(context.Background(), domainagg.CreateInterventionInput{}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	replay := &fakeInterventionAggregate{createRes: domainagg.CreateInterventionResult{
		Intervention: &types.Intervention{ID: 1},
		Replayed:     true,
	}}
	svc = NewInterventionService(logger.Nop(), replay, audit, nil)
	if _, err := svc.CreateIntervention(context.Background(), domainagg.CreateInterventionInput{}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n := len(audit.Events()); n != 0 {
		t.Fatalf("expected no events, got %d", n)
	}
}

func TestSinkFailureDoesNotFailOperation(t *testing.T) {
	agg := &fakeInterventionAggregate{transferRes: domainagg.TransferOwnershipResult{
		InterventionID: 3,
		NewOwnerID:     5,
		TransferredAt:  time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
	}}
	audit := &recordingSink{err: errors.New("audit store down")}
	notify := &recordingSink{err: errors.New("mailer down")}
	svc := NewInterventionService(logger.Nop(), agg, audit, notify)

	res, err := svc.TransferOwnership(context.Background(), domainagg.TransferOwnershipInput{
		InterventionID: 3,
		NewOwnerID:     5,
		RequesterID:    1,
		Reason:         "reorg",
		Notify:         true,
	})
	if err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	if res.NewOwnerID != 5 {
		t.Fatalf("result not passed through: %+v", res)
	}
	if len(audit.Events()) != 1 || len(notify.Events()) != 1 {
		t.Fatalf("sinks: audit=%d notify=%d", len(audit.Events()), len(notify.Events()))
	}
	ev := notify.Events()[0]
	if ev.Metadata["reason"] != "reorg" || !ev.OccurredAt.Equal(res.TransferredAt) {
		t.Fatalf("unexpected notify event: %+v", ev)
	}
}

func TestTransferWithoutNotifySkipsNotificationSink(t *testing.T) {
	agg := &fakeInterventionAggregate{transferRes: domainagg.TransferOwnershipResult{InterventionID: 3}}
	audit := &recordingSink{}
	notify := &recordingSink{}
	svc := NewInterventionService(logger.Nop(), agg, audit, notify)

	if _, err := svc.TransferOwnership(context.Background(), domainagg.TransferOwnershipInput{InterventionID: 3}); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	if len(notify.Events()) != 0 {
		t.Fatalf("notification sent without Notify")
	}
}

func TestTransferFailureRecordsNothing(t *testing.T) {
	agg := &fakeInterventionAggregate{transferErr: domainagg.NewReasonError(domainagg.CodeForbidden, "op", domainagg.ReasonTerminalStatus, "cannot transfer completed intervention", nil)}
	audit := &recordingSink{}
	svc := NewInterventionService(logger.Nop(), agg, audit, audit)

	_, err := svc.TransferOwnership(context.Background(), domainagg.TransferOwnershipInput{Notify: true})
	if domainagg.ReasonOf(err) != domainagg.ReasonTerminalStatus {
		t.Fatalf("expected terminal status error, got %v", err)
	}
	if len(audit.Events()) != 0 {
		t.Fatalf("expected no events")
	}
}

func TestBulkOperationsRecordEvents(t *testing.T) {
	agg := &fakeInterventionAggregate{
		bulkRes: domainagg.BulkIngestResult{TotalProcessed: 3, Passed: 2, Failed: 1, SuccessfulInterventions: []string{"a", "b"}},
		bulkXfer: domainagg.BulkTransferOwnershipResult{
			Successful: []domainagg.TransferOwnershipResult{{InterventionID: 1}, {InterventionID: 2}},
			Failed:     []domainagg.BulkTransferFailure{{ID: 3, Code: domainagg.CodeNotFound, Error: "missing"}},
		},
		reconcile: domainagg.ReconcileSpeciesResult{
			InterventionUID: "inv_1",
			Species:         &types.InterventionSpecies{ID: 9, UID: "isp_9", SpeciesCount: 15},
			ChangedFields:   []string{"species_count"},
		},
	}
	audit := &recordingSink{}
	svc := NewInterventionService(logger.Nop(), agg, audit, nil)
	ctx := context.Background()

	if _, err := svc.BulkIngestInterventions(ctx, domainagg.BulkIngestInput{ProjectID: 1}); err != nil {
		t.Fatalf("BulkIngestInterventions: %v", err)
	}
	if _, err := svc.BulkTransferOwnership(ctx, domainagg.BulkTransferOwnershipInput{InterventionIDs: []int64{1, 2, 3}}); err != nil {
		t.Fatalf("BulkTransferOwnership: %v", err)
	}
	if _, err := svc.ReconcileSpeciesCount(ctx, domainagg.ReconcileSpeciesInput{UserID: 4}); err != nil {
		t.Fatalf("ReconcileSpeciesCount: %v", err)
	}

	events := audit.Events()
	want := []string{
		domainagg.ActionInterventionBulkIngested,
		domainagg.ActionOwnershipTransferred,
		domainagg.ActionOwnershipTransferred,
		domainagg.ActionSpeciesReconciled,
	}
	if len(events) != len(want) {
		t.Fatalf("events: want=%d got=%d", len(want), len(events))
	}
	for i, action := range want {
		if events[i].Action != action {
			t.Fatalf("event %d: want=%s got=%s", i, action, events[i].Action)
		}
	}
	if events[3].EntityUID != "isp_9" || events[3].Metadata["species_count"] != 15 {
		t.Fatalf("reconcile event: %+v", events[3])
	}
}

type panickingSink struct{ calls int }

func (s *panickingSink) RecordChange(context.Context, domainagg.ChangeEvent) error {
	s.calls++
	panic("sink exploded")
}

func TestPanickingSinkDoesNotEscapeCommittedWrite(t *testing.T) {
	agg := &fakeInterventionAggregate{transferRes: domainagg.TransferOwnershipResult{InterventionID: 6, NewOwnerID: 2}}
	audit := &panickingSink{}
	notify := &recordingSink{}
	svc := NewInterventionService(logger.Nop(), agg, audit, notify)

	res, err := svc.TransferOwnership(context.Background(), domainagg.TransferOwnershipInput{InterventionID: 6, Notify: true})
	if err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	if res.InterventionID != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if audit.calls != 1 {
		t.Fatalf("audit sink calls: want=1 got=%d", audit.calls)
	}
	if len(notify.Events()) != 1 {
		t.Fatalf("notification skipped after audit panic")
	}
}
