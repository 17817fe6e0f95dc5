// Package app wires repositories, storage and services from configuration.
// Both cmd/server and cmd/khatactl build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"khata/internal/chart"
	"khata/internal/config"
	"khata/internal/port"
	"khata/internal/repository/memory"
	"khata/internal/repository/postgres"
	"khata/internal/service"
	s3storage "khata/internal/storage/s3"
)

// App holds the wired services.
type App struct {
	DB      *sqlx.DB // nil with the memory driver
	Storage port.ObjectStorage
	Today   service.Clock

	Accounts  service.AccountService
	Ledger    service.LedgerService
	Invoices  service.InvoiceService
	Schedules service.ScheduleService
	Bank      service.BankService
}

type repositories struct {
	tx           port.TxManager
	accounts     port.AccountRepository
	mappings     port.AccountMappingRepository
	sequences    port.SequenceRepository
	transactions port.TransactionRepository
	invoices     port.InvoiceRepository
	schedules    port.ScheduleRepository
	bank         port.BankRepository
}

// New builds the application for cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	template, err := chart.Load(cfg.Chart.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}

	a := &App{Today: service.SystemClock(cfg.Scheduler.Location())}

	var repos repositories
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		store := memory.New()
		repos = repositories{
			tx:           store,
			accounts:     store.Accounts(),
			mappings:     store.Mappings(),
			sequences:    store.Sequences(),
			transactions: store.Transactions(),
			invoices:     store.Invoices(),
			schedules:    store.Schedules(),
			bank:         store.Bank(),
		}
	default:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, err
		}
		a.DB = db
		repos = repositories{
			tx:           postgres.NewTxManager(db),
			accounts:     postgres.NewAccountRepo(db),
			mappings:     postgres.NewAccountMappingRepo(db),
			sequences:    postgres.NewSequenceRepo(db),
			transactions: postgres.NewTransactionRepo(db),
			invoices:     postgres.NewInvoiceRepo(db),
			schedules:    postgres.NewScheduleRepo(db),
			bank:         postgres.NewBankRepo(db),
		}
	}

	if cfg.S3.Bucket != "" {
		storage, err := s3storage.NewArchive(ctx, cfg.S3)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initializing statement archive: %w", err)
		}
		a.Storage = storage
	} else {
		logger.Info("statement archive disabled; set KHATA_S3_BUCKET to enable")
	}

	a.Accounts = service.NewAccountService(repos.tx, repos.accounts, repos.mappings, template)
	a.Ledger = service.NewLedgerService(repos.tx, repos.accounts, repos.mappings, repos.sequences, repos.transactions, a.Today)
	a.Invoices = service.NewInvoiceService(repos.tx, repos.invoices, repos.sequences, a.Ledger, a.Today)
	a.Schedules = service.NewScheduleService(repos.tx, repos.schedules, repos.accounts, a.Ledger, a.Invoices, a.Today, cfg.Scheduler.BatchSize)
	a.Bank = service.NewBankService(repos.tx, repos.bank, repos.accounts, repos.transactions, a.Storage, service.BankServiceConfig{
		MaxFileSize:    cfg.Import.MaxFileSizeBytes(),
		MaxErrors:      cfg.Import.MaxErrors,
		HeaderScanRows: cfg.Import.HeaderScanRows,
		SuggestLimit:   cfg.Reconcile.SuggestLimit,
		ArchiveBucket:  cfg.S3.Bucket,
		ArchivePrefix:  cfg.S3.Prefix,
	})
	return a, nil
}

// Worker returns the recurring schedule worker.
func (a *App) Worker(cfg config.SchedulerConfig, logger *slog.Logger) *service.RecurringWorker {
	return service.NewRecurringWorker(a.Schedules, a.Today, service.RecurringWorkerConfig{
		PollInterval: time.Duration(cfg.PollIntervalSecs) * time.Second,
	}, logger)
}

// Close releases the database pool.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
