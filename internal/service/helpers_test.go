package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"khata/internal/chart"
	"khata/internal/domain"
	"khata/internal/port"
	"khata/internal/repository/memory"
	"khata/internal/service"
)

// fixture wires every service against one in-memory store with a tenant
// already bootstrapped from the default chart.
type fixture struct {
	store  *memory.Store
	tenant uuid.UUID
	user   uuid.UUID
	today  domain.Date

	accounts  service.AccountService
	ledger    service.LedgerService
	invoices  service.InvoiceService
	schedules service.ScheduleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.New(),
		tenant: uuid.New(),
		user:   uuid.New(),
		today:  domain.MustParseDate("2025-03-15"),
	}
	clock := func() domain.Date { return f.today }

	tmpl, err := chart.Default()
	require.NoError(t, err)

	f.accounts = service.NewAccountService(f.store, f.store.Accounts(), f.store.Mappings(), tmpl)
	f.ledger = service.NewLedgerService(f.store, f.store.Accounts(), f.store.Mappings(),
		f.store.Sequences(), f.store.Transactions(), clock)
	f.invoices = service.NewInvoiceService(f.store, f.store.Invoices(), f.store.Sequences(), f.ledger, clock)
	f.schedules = service.NewScheduleService(f.store, f.store.Schedules(), f.store.Accounts(), f.ledger, f.invoices, clock, 100)

	_, err = f.accounts.BootstrapTenant(context.Background(), f.tenant)
	require.NoError(t, err)
	return f
}

func (f *fixture) bankService(storage port.ObjectStorage, cfg service.BankServiceConfig) service.BankService {
	return service.NewBankService(f.store, f.store.Bank(), f.store.Accounts(), f.store.Transactions(), storage, cfg)
}

// account returns the tenant's account with the given code.
func (f *fixture) account(t *testing.T, code string) *domain.Account {
	t.Helper()
	a, err := f.store.Accounts().GetByCode(context.Background(), f.tenant, code)
	require.NoError(t, err)
	return a
}

func (f *fixture) balance(t *testing.T, code string) decimal.Decimal {
	t.Helper()
	return f.account(t, code).CurrentBalance
}

// post creates a two-line journal moving amount from credit to debit.
func (f *fixture) post(t *testing.T, date, debitCode, creditCode, amount string) *domain.Transaction {
	t.Helper()
	txn, err := f.ledger.CreateTransaction(context.Background(), f.tenant, f.user, service.CreateTransactionInput{
		Date:        domain.MustParseDate(date),
		Description: "test entry",
		Lines: []service.LineInput{
			{AccountID: f.account(t, debitCode).ID, Debit: d(amount)},
			{AccountID: f.account(t, creditCode).ID, Credit: d(amount)},
		},
	})
	require.NoError(t, err)
	return txn
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }
