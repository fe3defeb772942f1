package aggregates

import (
	"context"
	"time"

	"github.com/yungbote/reforest-backend/internal/domain/catalog"
	"github.com/yungbote/reforest-backend/internal/domain/user"
)

// SiteDirectory resolves public site UIDs to internal ids within a project.
// A missing or soft-deleted site yields a CodeNotFound error.
type SiteDirectory interface {
	ResolveSite(ctx context.Context, projectID int64, uid string) (int64, error)
}

// SpeciesCatalog is the read-only scientific species lookup.
type SpeciesCatalog interface {
	// Missing returns the subset of ids that do not exist or are soft-deleted.
	Missing(ctx context.Context, ids []int64) ([]int64, error)
	// Get returns nil, nil when the species is absent.
	Get(ctx context.Context, id int64) (*catalog.ScientificSpecies, error)
}

// ProjectMembership returns a user's role on a project, "" when not a member.
type ProjectMembership interface {
	GetRole(ctx context.Context, projectID, userID int64) (string, error)
}

// UserDirectory returns nil, nil for unknown users.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*user.User, error)
}

// ChangeRecorder receives audit/notification events after commit. Failures are
// logged by the caller and never abort the originating write.
type ChangeRecorder interface {
	RecordChange(ctx context.Context, ev ChangeEvent) error
}

const (
	ActionInterventionCreated      = "intervention.created"
	ActionInterventionBulkIngested = "intervention.bulk_ingested"
	ActionSpeciesReconciled        = "intervention_species.reconciled"
	ActionOwnershipTransferred     = "intervention.ownership_transferred"
)

type ChangeEvent struct {
	Action        string         `json:"action"`
	EntityType    string         `json:"entity_type"`
	EntityID      int64          `json:"entity_id,omitempty"`
	EntityUID     string         `json:"entity_uid,omitempty"`
	ProjectID     int64          `json:"project_id"`
	UserID        int64          `json:"user_id"`
	ChangedFields []string       `json:"changed_fields,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}
