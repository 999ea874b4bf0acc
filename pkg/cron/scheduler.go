// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/financeia/financeia/internal/domain/search"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron        *cron.Cron
	reindexer   *search.Reindexer
	reindexSpec string
	logger      *slog.Logger
}

// NewScheduler creates a new job scheduler. reindexSpec is a standard
// 5-field cron expression for the search reindex job.
func NewScheduler(reindexer *search.Reindexer, reindexSpec string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:        c,
		reindexer:   reindexer,
		reindexSpec: reindexSpec,
		logger:      logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.reindexSpec, s.reindexSearch)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("reindex_spec", s.reindexSpec),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the search reindex (for admin use).
func (s *Scheduler) RunNow() {
	go s.reindexSearch()
}

// reindexSearch rebuilds the search index from the ledger. Imported and
// backfilled rows that missed incremental indexing are picked up here.
func (s *Scheduler) reindexSearch() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info("starting search reindex")
	if err := s.reindexer.Reindex(ctx); err != nil {
		s.logger.Error("search reindex failed", slog.Any("error", err))
	}
}
