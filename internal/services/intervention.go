package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/pkg/ctxutil"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

const recordTimeout = 5 * time.Second

// InterventionService is the entry point callers use for intervention writes.
// Change events go out only after the aggregate has committed; sink failures
// are logged and never returned.
type InterventionService interface {
	CreateIntervention(ctx context.Context, in domainagg.CreateInterventionInput) (domainagg.CreateInterventionResult, error)
	BulkIngestInterventions(ctx context.Context, in domainagg.BulkIngestInput) (domainagg.BulkIngestResult, error)
	ReconcileSpeciesCount(ctx context.Context, in domainagg.ReconcileSpeciesInput) (domainagg.ReconcileSpeciesResult, error)
	TransferOwnership(ctx context.Context, in domainagg.TransferOwnershipInput) (domainagg.TransferOwnershipResult, error)
	BulkTransferOwnership(ctx context.Context, in domainagg.BulkTransferOwnershipInput) (domainagg.BulkTransferOwnershipResult, error)
}

type interventionService struct {
	log    *logger.Logger
	agg    domainagg.InterventionAggregate
	audit  domainagg.ChangeRecorder
	notify domainagg.ChangeRecorder
	now    func() time.Time
}

func NewInterventionService(log *logger.Logger, agg domainagg.InterventionAggregate, audit, notify domainagg.ChangeRecorder) InterventionService {
	if audit == nil {
		audit = NewNoopChangeSink()
	}
	if notify == nil {
		notify = NewNoopChangeSink()
	}
	return &interventionService{
		log:    log.With("service", "InterventionService"),
		agg:    agg,
		audit:  audit,
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *interventionService) CreateIntervention(ctx context.Context, in domainagg.CreateInterventionInput) (domainagg.CreateInterventionResult, error) {
	res, err := s.agg.Create(ctx, in)
	if err != nil || res.Replayed || res.Intervention == nil {
		return res, err
	}
	inv := res.Intervention
	fields := []string{"intervention", "species"}
	if res.Tree != nil {
		fields = append(fields, "tree")
	}
	s.record(ctx, s.audit, domainagg.ChangeEvent{
		Action:        domainagg.ActionInterventionCreated,
		EntityType:    "intervention",
		EntityID:      inv.ID,
		EntityUID:     inv.UID,
		ProjectID:     inv.ProjectID,
		UserID:        in.UserID,
		ChangedFields: fields,
		Metadata: map[string]any{
			"type":             string(inv.Type),
			"total_tree_count": inv.TotalTreeCount,
		},
	})
	return res, nil
}

func (s *interventionService) BulkIngestInterventions(ctx context.Context, in domainagg.BulkIngestInput) (domainagg.BulkIngestResult, error) {
	res, err := s.agg.BulkIngest(ctx, in)
	if err != nil || res.TotalProcessed == 0 {
		return res, err
	}
	s.record(ctx, s.audit, domainagg.ChangeEvent{
		Action:     domainagg.ActionInterventionBulkIngested,
		EntityType: "intervention",
		ProjectID:  in.ProjectID,
		UserID:     in.UserID,
		Metadata: map[string]any{
			"total_processed":          res.TotalProcessed,
			"passed":                   res.Passed,
			"failed":                   res.Failed,
			"used_fallback":            res.UsedFallback,
			"successful_interventions": res.SuccessfulInterventions,
		},
	})
	return res, nil
}

func (s *interventionService) ReconcileSpeciesCount(ctx context.Context, in domainagg.ReconcileSpeciesInput) (domainagg.ReconcileSpeciesResult, error) {
	res, err := s.agg.ReconcileSpecies(ctx, in)
	if err != nil {
		return res, err
	}
	ev := domainagg.ChangeEvent{
		Action:        domainagg.ActionSpeciesReconciled,
		EntityType:    "intervention_species",
		ProjectID:     res.ProjectID,
		UserID:        in.UserID,
		ChangedFields: res.ChangedFields,
		Metadata: map[string]any{
			"intervention_uid": res.InterventionUID,
			"trees_updated":    res.TreesUpdated,
		},
	}
	if res.Species != nil {
		ev.EntityID = res.Species.ID
		ev.EntityUID = res.Species.UID
		ev.Metadata["species_count"] = res.Species.SpeciesCount
	}
	s.record(ctx, s.audit, ev)
	return res, nil
}

func (s *interventionService) TransferOwnership(ctx context.Context, in domainagg.TransferOwnershipInput) (domainagg.TransferOwnershipResult, error) {
	res, err := s.agg.TransferOwnership(ctx, in)
	if err != nil {
		return res, err
	}
	s.afterTransfer(ctx, in.RequesterID, in.Reason, in.Notify, res)
	return res, nil
}

func (s *interventionService) BulkTransferOwnership(ctx context.Context, in domainagg.BulkTransferOwnershipInput) (domainagg.BulkTransferOwnershipResult, error) {
	res, err := s.agg.BulkTransferOwnership(ctx, in)
	if err != nil {
		return res, err
	}
	for _, item := range res.Successful {
		s.afterTransfer(ctx, in.RequesterID, in.Reason, in.Notify, item)
	}
	if len(res.Failed) > 0 {
		s.log.Warn("Bulk ownership transfer had failures",
			"requested", len(in.InterventionIDs),
			"failed", len(res.Failed),
			"new_owner_id", in.NewOwnerID,
		)
	}
	return res, nil
}

func (s *interventionService) afterTransfer(ctx context.Context, requesterID int64, reason string, notify bool, res domainagg.TransferOwnershipResult) {
	ev := domainagg.ChangeEvent{
		Action:        domainagg.ActionOwnershipTransferred,
		EntityType:    "intervention",
		EntityID:      res.InterventionID,
		EntityUID:     res.InterventionUID,
		ProjectID:     res.ProjectID,
		UserID:        requesterID,
		ChangedFields: res.ChangedFields,
		Metadata: map[string]any{
			"previous_owner_id": res.PreviousOwnerID,
			"new_owner_id":      res.NewOwnerID,
			"trees_transferred": res.TreesTransferred,
		},
		OccurredAt: res.TransferredAt,
	}
	if r := strings.TrimSpace(reason); r != "" {
		ev.Metadata["reason"] = r
	}
	s.record(ctx, s.audit, ev)
	if notify {
		s.record(ctx, s.notify, ev)
	}
}

// record runs after commit. The event is detached from request cancellation
// so a client disconnect does not drop it.
func (s *interventionService) record(ctx context.Context, sink domainagg.ChangeRecorder, ev domainagg.ChangeEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now()
	}
	recordCtx, cancel := ctxutil.Detached(ctx, recordTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Change sink panicked",
				"action", ev.Action,
				"entity_id", ev.EntityID,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	if err := sink.RecordChange(recordCtx, ev); err != nil {
		s.log.Warn("Failed to record change",
			"action", ev.Action,
			"entity_id", ev.EntityID,
			"project_id", ev.ProjectID,
			"error", err,
		)
	}
}
