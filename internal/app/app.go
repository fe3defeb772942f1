package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/reforest-backend/internal/data/db"
	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
	"github.com/yungbote/reforest-backend/internal/observability"
	"github.com/yungbote/reforest-backend/internal/pkg/logger"
	"github.com/yungbote/reforest-backend/internal/realtime/bus"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Cfg       Config
	Repos     Repos
	Aggregate domainagg.InterventionAggregate
	Services  Services
	Metrics   *observability.Metrics
	Bus       bus.Bus

	redis        goredis.UniversalClient
	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New wires the application from cfg. Migrations run only when migrate is set
// so read-only commands never touch the schema.
func New(ctx context.Context, cfg Config, migrate bool) (*App, error) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	dbService, err := db.NewService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if migrate {
		if err := dbService.AutoMigrateAll(); err != nil {
			_ = dbService.Close()
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	theDB := dbService.DB()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	var (
		rdb       goredis.UniversalClient
		changeBus bus.Bus
	)
	if cfg.Redis.Enabled {
		rdb, changeBus, err = dialBus(ctx, log, cfg.Redis)
		if err != nil {
			_ = dbService.Close()
			log.Sync()
			return nil, err
		}
	}

	reposet := wireRepos(theDB, log)
	agg, err := wireAggregate(theDB, dbService.Driver(), log, cfg, reposet, metrics)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	serviceset, err := wireServices(theDB, log, cfg, reposet, agg, changeBus, metrics)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Aggregate:    agg,
		Services:     serviceset,
		Metrics:      metrics,
		Bus:          changeBus,
		redis:        rdb,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the metrics collectors. Calling it twice is a no-op.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB, a.Cfg.Metrics.CollectInterval)
		a.Metrics.StartRedisCollector(ctx, a.Log, a.redis, a.Cfg.Metrics.CollectInterval)
	}
}

// Close drains the change sinks, then flushes traces and releases the bus and
// database. Every step runs even when an earlier one fails.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	var drain errgroup.Group
	for _, sink := range a.Services.Sinks {
		sink := sink
		drain.Go(func() error { return sink.Close(ctx) })
	}
	errs := []error{drain.Wait()}

	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(ctx))
		a.otelShutdown = nil
	}
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
		a.redis = nil
	}
	if a.dbService != nil {
		errs = append(errs, a.dbService.Close())
		a.dbService = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return errors.Join(errs...)
}

func dialBus(ctx context.Context, log *logger.Logger, cfg RedisConfig) (goredis.UniversalClient, bus.Bus, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	b, err := bus.NewRedisBusWithClient(log, rdb, cfg.Channel)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("init redis bus: %w", err)
	}
	return rdb, b, nil
}
