package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"khata/internal/app"
	"khata/internal/config"
	"khata/internal/handler"
	"khata/internal/logging"
	"khata/internal/router"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var pinger handler.Pinger
	if a.DB != nil {
		pinger = a.DB
	}
	r := router.Setup(cfg, logger, router.Handlers{
		Health:      handler.NewHealthHandler(pinger),
		Account:     handler.NewAccountHandler(a.Accounts),
		Transaction: handler.NewTransactionHandler(a.Ledger, a.Today),
		Invoice:     handler.NewInvoiceHandler(a.Invoices),
		Schedule:    handler.NewScheduleHandler(a.Schedules),
		Bank:        handler.NewBankHandler(a.Bank),
	})

	workerDone := make(chan struct{})
	if cfg.Scheduler.Enabled {
		worker := a.Worker(cfg.Scheduler, logger)
		go func() {
			defer close(workerDone)
			worker.Start(ctx)
		}()
	} else {
		close(workerDone)
		logger.Info("recurring worker disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.Server.Port), slog.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-workerDone
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	<-workerDone
	logger.Info("server stopped")
	return nil
}
