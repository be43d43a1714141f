package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmaster/tasksync/internal/adapters/cache"
	"github.com/taskmaster/tasksync/internal/adapters/repository"
	"github.com/taskmaster/tasksync/internal/application/services"
	"github.com/taskmaster/tasksync/internal/infrastructure/config"
	"github.com/taskmaster/tasksync/internal/infrastructure/database"
	"github.com/taskmaster/tasksync/internal/infrastructure/events"
	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
	"github.com/taskmaster/tasksync/internal/infrastructure/metrics"
)

// app is the wired core shared by every command
type app struct {
	cfg       *config.Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
	db        *database.DB
	cache     cache.Store
	bus       *events.Bus
	tasks     *services.TaskService
	directory *services.DirectoryService
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// bootstrap wires the core. An unreachable remote store is not fatal: the
// service then runs on the local cache alone.
func bootstrap(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: appLogger}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	a.cache, err = cache.New(ctx, cfg.Cache, cfg.Redis)
	if err != nil {
		appLogger.Close()
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	repoOpts := []services.RepositoryOption{
		services.WithCacheKey(cfg.Cache.StorageKey()),
		services.WithRepositoryMetrics(a.metrics),
	}
	if cfg.Sync.DetectConflicts {
		repoOpts = append(repoOpts, services.WithConflictDetection())
	}

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			appLogger.Warnw("Remote store unreachable, running on local cache", "error", err)
		} else {
			a.db = db
			repoOpts = append(repoOpts, services.WithRemote(repository.NewTaskStore(db.DB, appLogger)))
			a.directory = services.NewDirectoryService(
				repository.NewUserDirectory(db.DB),
				repository.NewClientDirectory(db.DB),
				appLogger,
			)
		}
	}
	if a.directory == nil {
		a.directory = services.NewDirectoryService(nil, nil, appLogger)
	}

	a.bus = events.New(events.WithLogger(appLogger), events.WithPublishHook(a.metrics.ObservePublish))

	svcOpts := []services.ServiceOption{services.WithServiceMetrics(a.metrics)}
	if cfg.Sync.DetectCycles {
		svcOpts = append(svcOpts, services.WithCycleDetection())
	}

	repo := services.NewTaskRepository(a.cache, appLogger, repoOpts...)
	a.tasks = services.NewTaskService(repo, a.bus, appLogger, svcOpts...)

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	a.logger.Close()
}
