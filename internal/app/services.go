package app

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/reforest-backend/internal/data/aggregates"
	dbpkg "github.com/yungbote/reforest-backend/internal/data/db"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/observability"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
	"github.com/yungbote/reforest-backend/internal/realtime/bus"
	"github.com/yungbote/reforest-backend/internal/services"
)

type Services struct {
	Interventions services.InterventionService
	Directory     services.DirectoryService
	Consistency   services.ConsistencyService

	// Sinks are drained on Close.
	Sinks []*services.AsyncChangeSink
}

func wireAggregate(db *gorm.DB, driver string, log *logger.Logger, cfg Config, reposet Repos, metrics *observability.Metrics) (domainagg.InterventionAggregate, error) {
	ids, err := aggregates.NewIDGenerator(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}
	var runnerOpts []aggregates.TxOption
	if driver == dbpkg.DriverPostgres {
		runnerOpts = append(runnerOpts, aggregates.WithIsolation(sql.LevelReadCommitted))
	}
	return aggregates.NewInterventionAggregate(aggregates.InterventionAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:     db,
			Log:    log,
			Runner: aggregates.NewGormTxRunner(db, runnerOpts...),
			Hooks:  aggregates.MultiHooks(aggregates.NewObservabilityHooks(metrics), aggregates.NewLoggingHooks(log)),
			Retry:  aggregates.RetryPolicy{Attempts: cfg.Writes.Attempts, Backoff: cfg.Writes.Backoff},
		},
		Interventions: reposet.Intervention,
		Species:       reposet.InterventionSpecies,
		Trees:         reposet.Tree,
		Sites:         reposet.Site,
		Catalog:       reposet.ScientificSpecies,
		Members:       reposet.ProjectMember,
		Users:         reposet.User,
		IDs:           ids,
	}), nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, agg domainagg.InterventionAggregate, changeBus bus.Bus, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	var auditNext domainagg.ChangeRecorder
	switch cfg.Audit.Sink {
	case "none":
		auditNext = nil
	case "redis":
		if changeBus == nil {
			return Services{}, fmt.Errorf("audit sink redis: bus not configured")
		}
		auditNext = services.NewMultiChangeSink(services.NewLoggingChangeSink(log), services.NewBusChangeSink(changeBus))
	default:
		auditNext = services.NewLoggingChangeSink(log)
	}

	out := Services{}
	audit := services.NewNoopChangeSink()
	if auditNext != nil {
		s := services.NewAsyncChangeSink(log, "audit", auditNext, cfg.Audit.Buffer, cfg.Audit.Workers, metrics)
		out.Sinks = append(out.Sinks, s)
		audit = s
	}

	var notify domainagg.ChangeRecorder
	if changeBus != nil {
		s := services.NewAsyncChangeSink(log, "notify", services.NewBusChangeSink(changeBus), cfg.Audit.Buffer, 1, metrics)
		out.Sinks = append(out.Sinks, s)
		notify = s
	}

	out.Interventions = services.NewInterventionService(log, agg, audit, notify)

	ids, err := aggregates.NewIDGenerator(cfg.NodeID)
	if err != nil {
		return Services{}, fmt.Errorf("init id generator: %w", err)
	}
	out.Directory = services.NewDirectoryService(log, aggregates.NewGormTxRunner(db), ids, services.DirectoryRepos{
		Users:    reposet.User,
		Members:  reposet.ProjectMember,
		Projects: reposet.Project,
		Sites:    reposet.Site,
		Species:  reposet.ScientificSpecies,
	})
	out.Consistency = services.NewConsistencyService(log, reposet.Intervention, reposet.InterventionSpecies, reposet.Tree)
	return out, nil
}
