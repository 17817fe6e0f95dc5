package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"khata/internal/config"
	"khata/internal/handler"
	"khata/internal/metrics"
	"khata/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Health      *handler.HealthHandler
	Account     *handler.AccountHandler
	Transaction *handler.TransactionHandler
	Invoice     *handler.InvoiceHandler
	Schedule    *handler.ScheduleHandler
	Bank        *handler.BankHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(cfg *config.Config, logger *slog.Logger, h Handlers) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	}
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.TenantContext())

	accounts := v1.Group("/accounts")
	accounts.POST("", h.Account.Create)
	accounts.GET("", h.Account.List)
	accounts.POST("/bootstrap", h.Account.Bootstrap)
	accounts.POST("/rebalance", h.Transaction.Rebalance)
	accounts.GET("/:id", h.Account.GetByID)
	accounts.PUT("/:id", h.Account.Update)
	accounts.DELETE("/:id", h.Account.Deactivate)

	mappings := v1.Group("/account-mappings")
	mappings.GET("", h.Account.ListMappings)
	mappings.PUT("/:role", h.Account.SetMapping)

	txns := v1.Group("/transactions")
	txns.POST("", h.Transaction.Create)
	txns.GET("", h.Transaction.List)
	txns.GET("/export", h.Transaction.Export)
	txns.POST("/quick-sale", h.Transaction.QuickSale)
	txns.POST("/quick-expense", h.Transaction.QuickExpense)
	txns.GET("/:id", h.Transaction.GetByID)
	txns.POST("/:id/void", h.Transaction.Void)

	v1.GET("/reports/daily-summary", h.Transaction.DailySummary)

	invoices := v1.Group("/invoices")
	invoices.POST("/compute-totals", h.Invoice.ComputeTotals)
	invoices.POST("", h.Invoice.Create)
	invoices.GET("", h.Invoice.List)
	invoices.GET("/:id", h.Invoice.GetByID)
	invoices.POST("/:id/payments", h.Invoice.RecordPayment)

	schedules := v1.Group("/schedules")
	schedules.POST("/journals", h.Schedule.CreateJournal)
	schedules.POST("/invoices", h.Schedule.CreateInvoice)
	schedules.GET("", h.Schedule.List)
	schedules.GET("/:id", h.Schedule.GetByID)
	schedules.PATCH("/:id", h.Schedule.Update)
	schedules.POST("/:id/pause", h.Schedule.Pause)
	schedules.POST("/:id/resume", h.Schedule.Resume)
	schedules.POST("/:id/cancel", h.Schedule.Cancel)
	schedules.POST("/:id/generate", h.Schedule.GenerateNow)
	schedules.GET("/:id/occurrences", h.Schedule.ListOccurrences)

	bankAccounts := v1.Group("/bank-accounts")
	bankAccounts.POST("", h.Bank.CreateAccount)
	bankAccounts.GET("", h.Bank.ListAccounts)
	bankAccounts.GET("/:id", h.Bank.GetAccount)
	bankAccounts.POST("/:id/statements", h.Bank.ImportStatement)
	bankAccounts.GET("/:id/transactions", h.Bank.ListTransactions)
	bankAccounts.POST("/:id/auto-reconcile", h.Bank.AutoReconcile)

	bankTxns := v1.Group("/bank-transactions")
	bankTxns.POST("/:id/reconcile", h.Bank.Reconcile)
	bankTxns.DELETE("/:id/reconcile", h.Bank.Unreconcile)
	bankTxns.GET("/:id/suggestions", h.Bank.Suggestions)

	return r
}
