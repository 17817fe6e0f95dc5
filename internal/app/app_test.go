package app_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khata/internal/app"
	"khata/internal/config"
	"khata/internal/domain"
	"khata/internal/service"
)

func TestNew_MemoryDriver(t *testing.T) {
	cfg := &config.Config{
		Storage:   config.StorageConfig{Driver: config.DriverMemory},
		Scheduler: config.SchedulerConfig{Timezone: "Asia/Kolkata", BatchSize: 10},
		Import:    config.ImportConfig{MaxFileSizeMB: 1, MaxErrors: 5, HeaderScanRows: 5},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Storage)

	tenant := uuid.New()
	_, err = a.Accounts.BootstrapTenant(ctx, tenant)
	require.NoError(t, err)

	txn, err := a.Ledger.CreateQuickSale(ctx, tenant, uuid.New(), service.QuickSaleInput{
		Amount:      decimalOf(t, "100"),
		PaymentMode: domain.PaymentModeCash,
	})
	require.NoError(t, err)
	assert.Equal(t, "SAL-00001", txn.Number)

	assert.NotNil(t, a.Worker(cfg.Scheduler, logger))
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}
