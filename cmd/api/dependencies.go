package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/financeia/financeia/internal/domain/categorization"
	"github.com/financeia/financeia/internal/domain/import/dedup"
	importhandler "github.com/financeia/financeia/internal/domain/import/handler"
	importservice "github.com/financeia/financeia/internal/domain/import/service"
	"github.com/financeia/financeia/internal/domain/ledger"
	"github.com/financeia/financeia/internal/domain/search"
	"github.com/financeia/financeia/pkg/config"
	"github.com/financeia/financeia/pkg/cron"
	"github.com/financeia/financeia/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	LedgerRepo ledger.Repository
	RulesRepo  categorization.RulesRepository

	// Services
	CategorizationService *categorization.Service
	DedupDetector         *dedup.Detector
	ImportService         *importservice.Service
	SearchIndex           *search.Index
	Reindexer             *search.Reindexer
	Scheduler             *cron.Scheduler

	// Handlers
	ImportHandler *importhandler.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	database, err := db.Connect(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	deps.DB = database

	deps.LedgerRepo = ledger.NewPostgresRepository(database.Pool)
	deps.RulesRepo = categorization.NewPostgresRulesRepository(database.Pool)

	deps.CategorizationService = categorization.NewService(deps.RulesRepo, deps.LedgerRepo, logger)
	deps.DedupDetector = dedup.NewDetector(deps.LedgerRepo, logger)
	deps.ImportService = importservice.New(deps.LedgerRepo, deps.DedupDetector, deps.CategorizationService, logger)

	index, err := search.NewIndex(cfg.Search.IndexPath)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("init search index: %w", err)
	}
	deps.SearchIndex = index
	deps.Reindexer = search.NewReindexer(index, deps.LedgerRepo, logger)
	deps.Scheduler = cron.NewScheduler(deps.Reindexer, cfg.Search.ReindexSpec, logger)

	deps.ImportHandler = importhandler.New(
		deps.ImportService,
		deps.CategorizationService,
		deps.LedgerRepo,
		deps.SearchIndex,
		deps.Reindexer,
		logger,
	)

	logger.Info("all dependencies initialized")
	return deps, nil
}

// Close releases everything InitDependencies opened.
func (d *Dependencies) Close() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("closing search index", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
