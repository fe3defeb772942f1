package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yungbote/reforest-backend/internal/domain/interventions"
)

// InterventionAggregate owns the intervention/species/tree invariants.
//
// Single-record write failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeForbidden, CodeConflict, CodeInvariantViolation, CodeInternal.
// Bulk methods run one independent unit of work per item, report per-item
// failures in their result and only return an error when a shared
// precondition fails for the whole batch.
type InterventionAggregate interface {
	// Create atomically writes one intervention, its species lines and, for
	// single-tree registrations, its single Tree.
	Create(ctx context.Context, in CreateInterventionInput) (CreateInterventionResult, error)

	// BulkIngest persists as many records as possible, isolating failures per row.
	BulkIngest(ctx context.Context, in BulkIngestInput) (BulkIngestResult, error)

	// ReconcileSpecies changes the species reference and/or count of one line
	// without dropping the count below the line's tracked trees.
	ReconcileSpecies(ctx context.Context, in ReconcileSpeciesInput) (ReconcileSpeciesResult, error)

	// TransferOwnership reassigns an intervention and its trees to another member.
	TransferOwnership(ctx context.Context, in TransferOwnershipInput) (TransferOwnershipResult, error)

	// BulkTransferOwnership applies TransferOwnership per id with no cross-item rollback.
	BulkTransferOwnership(ctx context.Context, in BulkTransferOwnershipInput) (BulkTransferOwnershipResult, error)
}

// SpeciesLineInput declares one composition line. A nil ScientificSpeciesID
// marks the line as unknown; OtherSpecies then carries the free-text name.
type SpeciesLineInput struct {
	ScientificSpeciesID *int64 `json:"scientific_species_id,omitempty"`
	OtherSpecies        string `json:"other_species,omitempty"`
	SpeciesCount        int    `json:"species_count"`
}

// CreateInterventionInput is keyed by Type: single-tree-registration requires a
// Point Feature and ignores the declared count; every other type requires a
// species list summing to TotalTreeCount.
type CreateInterventionInput struct {
	ProjectID      int64
	UserID         int64
	Type           string
	SiteUID        string
	IdempotencyKey string
	StartDate      time.Time
	EndDate        time.Time
	Geometry       json.RawMessage
	TotalTreeCount int
	Species        []SpeciesLineInput
	Description    string
	Metadata       json.RawMessage
}

type CreateInterventionResult struct {
	Intervention *interventions.Intervention
	Species      []*interventions.InterventionSpecies
	Tree         *interventions.Tree
	// Replayed is true when IdempotencyKey matched an existing intervention.
	Replayed bool
}

// BulkRecordInput is one row of a bulk import. UID is optional; the server
// generates one when empty.
type BulkRecordInput struct {
	UID            string             `json:"uid,omitempty"`
	Type           string             `json:"type"`
	StartDate      time.Time          `json:"intervention_start_date"`
	EndDate        time.Time          `json:"intervention_end_date"`
	Geometry       json.RawMessage    `json:"geometry"`
	TotalTreeCount int                `json:"total_tree_count"`
	Species        []SpeciesLineInput `json:"species"`
	Description    string             `json:"description,omitempty"`
}

type BulkIngestInput struct {
	ProjectID int64
	UserID    int64
	SiteUID   string
	Records   []BulkRecordInput
}

type BulkFailure struct {
	UID   string `json:"uid"`
	Error string `json:"error"`
}

type BulkIngestResult struct {
	TotalProcessed          int           `json:"total_processed"`
	Passed                  int           `json:"passed"`
	Failed                  int           `json:"failed"`
	FailedInterventionUID   []BulkFailure `json:"failed_intervention_uid"`
	SuccessfulInterventions []string      `json:"successful_interventions"`
	// UsedFallback is true when any stage degraded to per-row inserts.
	UsedFallback bool `json:"used_fallback"`
}

type ReconcileSpeciesInput struct {
	InterventionUID string
	SpeciesUID      string
	// ScientificSpeciesID re-points the line at a catalog entry; nil keeps the current reference.
	ScientificSpeciesID *int64
	// SpeciesCount sets the declared quantity; nil keeps the current count.
	SpeciesCount *int
	UserID       int64
}

type ReconcileSpeciesResult struct {
	InterventionID  int64
	InterventionUID string
	ProjectID       int64
	Species         *interventions.InterventionSpecies
	TreesUpdated    int
	ChangedFields   []string
}

type TransferOwnershipInput struct {
	InterventionID int64
	NewOwnerID     int64
	RequesterID    int64
	Reason         string
	Notify         bool
}

type TransferOwnershipResult struct {
	InterventionID   int64     `json:"intervention_id"`
	InterventionUID  string    `json:"intervention_uid"`
	ProjectID        int64     `json:"project_id"`
	PreviousOwnerID  int64     `json:"previous_owner_id"`
	NewOwnerID       int64     `json:"new_owner_id"`
	TreesTransferred int       `json:"trees_transferred"`
	ChangedFields    []string  `json:"changed_fields"`
	TransferredAt    time.Time `json:"transferred_at"`
}

type BulkTransferOwnershipInput struct {
	InterventionIDs []int64
	NewOwnerID      int64
	RequesterID     int64
	Reason          string
	Notify          bool
}

type BulkTransferFailure struct {
	ID    int64     `json:"id"`
	Code  ErrorCode `json:"code,omitempty"`
	Error string    `json:"error"`
}

type BulkTransferOwnershipResult struct {
	Successful []TransferOwnershipResult `json:"successful"`
	Failed     []BulkTransferFailure     `json:"failed"`
}
