package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RecurringWorkerConfig holds settings for the recurring worker.
type RecurringWorkerConfig struct {
	PollInterval time.Duration
	// BatchTimeout bounds one pass over the due journals and invoices.
	BatchTimeout time.Duration
}

// RecurringWorker periodically materializes due recurring journals and
// invoices across all tenants.
type RecurringWorker struct {
	schedules ScheduleService
	today     Clock
	cfg       RecurringWorkerConfig
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewRecurringWorker creates a new RecurringWorker.
func NewRecurringWorker(schedules ScheduleService, today Clock, cfg RecurringWorkerConfig, logger *slog.Logger) *RecurringWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurringWorker{
		schedules: schedules,
		today:     today,
		cfg:       cfg,
		logger:    logger.With("component", "recurring_worker"),
	}
}

// Start runs the polling loop until ctx is canceled. It returns only after
// the in-flight batch has finished.
func (w *RecurringWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("started", "poll", w.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down, waiting for in-flight batch")
			w.wg.Wait()
			w.logger.Info("shutdown complete")
			return
		case <-ticker.C:
			w.wg.Add(1)
			// Detached from ctx so a batch started before shutdown commits.
			runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.BatchTimeout)
			w.RunOnce(runCtx)
			cancel()
			w.wg.Done()
		}
	}
}

// RunOnce processes the journals and invoices due today.
func (w *RecurringWorker) RunOnce(ctx context.Context) {
	asOf := w.today()

	if res, err := w.schedules.GenerateDueJournals(ctx, asOf); err != nil {
		w.logger.Error("journal batch failed", "as_of", asOf.String(), "error", err)
	} else if res.Processed > 0 {
		w.logger.Info("journal batch done", "generated", res.Generated, "failed", len(res.Failures))
	}

	if res, err := w.schedules.GenerateDueInvoices(ctx, asOf); err != nil {
		w.logger.Error("invoice batch failed", "as_of", asOf.String(), "error", err)
	} else if res.Processed > 0 {
		w.logger.Info("invoice batch done", "generated", res.Generated, "failed", len(res.Failures))
	}
}
