package interventions

import (
	"errors"
	"strings"
)

// InterventionType discriminates the kind of field work an intervention records.
type InterventionType string

const (
	TypeSingleTreeRegistration InterventionType = "single-tree-registration"
	TypeMultiTreeRegistration  InterventionType = "multi-tree-registration"
	TypeDirectSeeding          InterventionType = "direct-seeding"
	TypeEnrichmentPlanting     InterventionType = "enrichment-planting"
	TypeAssistingSeedRain      InterventionType = "assisting-seed-rain"
	TypeFencing                InterventionType = "fencing"
	TypeFirePatrol             InterventionType = "fire-patrol"
	TypeFireSuppression        InterventionType = "fire-suppression"
	TypeFirebreaks             InterventionType = "firebreaks"
	TypeGrassSuppression       InterventionType = "grass-suppression"
	TypeLiberatingRegenerant   InterventionType = "liberating-regenerant"
	TypeMaintenance            InterventionType = "maintenance"
	TypeMarkingRegenerant      InterventionType = "marking-regenerant"
	TypeOtherIntervention      InterventionType = "other-intervention"
	TypePlotPlantRegistration  InterventionType = "plot-plant-registration"
	TypeRemovalInvasiveSpecies InterventionType = "removal-invasive-species"
	TypeSampleTreeRegistration InterventionType = "sample-tree-registration"
	TypeSoilImprovement        InterventionType = "soil-improvement"
	TypeStopTreeHarvesting     InterventionType = "stop-tree-harvesting"
	TypeSeedRainMonitoring     InterventionType = "seed-rain-monitoring"
)

var knownTypes = map[InterventionType]struct{}{
	TypeSingleTreeRegistration: {},
	TypeMultiTreeRegistration:  {},
	TypeDirectSeeding:          {},
	TypeEnrichmentPlanting:     {},
	TypeAssistingSeedRain:      {},
	TypeFencing:                {},
	TypeFirePatrol:             {},
	TypeFireSuppression:        {},
	TypeFirebreaks:             {},
	TypeGrassSuppression:       {},
	TypeLiberatingRegenerant:   {},
	TypeMaintenance:            {},
	TypeMarkingRegenerant:      {},
	TypeOtherIntervention:      {},
	TypePlotPlantRegistration:  {},
	TypeRemovalInvasiveSpecies: {},
	TypeSampleTreeRegistration: {},
	TypeSoilImprovement:        {},
	TypeStopTreeHarvesting:     {},
	TypeSeedRainMonitoring:     {},
}

// ErrInvalidType is returned by the model hooks when a row carries an unknown type.
var ErrInvalidType = errors.New("invalid intervention type")

// ParseType normalizes raw and reports whether it names a known type.
func ParseType(raw string) (InterventionType, bool) {
	t := InterventionType(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := knownTypes[t]
	return t, ok
}

func (t InterventionType) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// SingleTree reports whether the type materializes exactly one tracked Tree.
func (t InterventionType) SingleTree() bool { return t == TypeSingleTreeRegistration }

// AllTypes returns the known types in declaration order.
func AllTypes() []InterventionType {
	return []InterventionType{
		TypeSingleTreeRegistration, TypeMultiTreeRegistration, TypeDirectSeeding,
		TypeEnrichmentPlanting, TypeAssistingSeedRain, TypeFencing, TypeFirePatrol,
		TypeFireSuppression, TypeFirebreaks, TypeGrassSuppression, TypeLiberatingRegenerant,
		TypeMaintenance, TypeMarkingRegenerant, TypeOtherIntervention, TypePlotPlantRegistration,
		TypeRemovalInvasiveSpecies, TypeSampleTreeRegistration, TypeSoilImprovement,
		TypeStopTreeHarvesting, TypeSeedRainMonitoring,
	}
}

// Status is the lifecycle state of an intervention.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusOnHold    Status = "on-hold"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusCompleted, StatusFailed, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether work in this state is finished and frozen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// NonTerminalStatuses lists every status an intervention may still be reassigned from.
func NonTerminalStatuses() []string {
	return []string{string(StatusPlanned), string(StatusActive), string(StatusOnHold)}
}

type TreeStatus string

const (
	TreeStatusAlive   TreeStatus = "alive"
	TreeStatusDead    TreeStatus = "dead"
	TreeStatusUnknown TreeStatus = "unknown"
)

const (
	TreeTypeSingle = "single"
	TreeTypeSample = "sample"
)
