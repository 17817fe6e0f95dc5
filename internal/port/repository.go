package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/domain"
)

// TxManager runs fn inside one store transaction. Repositories called with the
// context passed to fn take part in that transaction. Nested calls join the
// outer transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountRepository defines the contract for chart-of-accounts persistence.
// All query methods include tenantID to enforce tenant isolation at the data layer.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, tenantID, accountID uuid.UUID) (*domain.Account, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*domain.Account, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Account, int, error)
	Update(ctx context.Context, account *domain.Account) error
	ApplyBalanceDelta(ctx context.Context, tenantID, accountID uuid.UUID, delta decimal.Decimal) error
	SetBalance(ctx context.Context, tenantID, accountID uuid.UUID, balance decimal.Decimal) error
}

// AccountMappingRepository stores the tenant's role → account bindings.
type AccountMappingRepository interface {
	Upsert(ctx context.Context, mapping *domain.AccountMapping) error
	Get(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole) (*domain.AccountMapping, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.AccountMapping, error)
}

// SequenceRepository hands out gap-free per-tenant counters. Next must be
// called inside the transaction that consumes the number.
type SequenceRepository interface {
	Next(ctx context.Context, tenantID uuid.UUID, scope string) (int64, error)
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	Type   *domain.TxnType
	Status *domain.TxnStatus
	From   *domain.Date
	To     *domain.Date
}

// TransactionRepository defines the contract for ledger transaction persistence.
type TransactionRepository interface {
	// Create inserts the transaction and all of its lines.
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.Transaction, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter, offset, limit int) ([]domain.Transaction, int, error)
	// MarkVoid flips a posted transaction to void. It returns
	// domain.ErrAlreadyVoid when the transaction is no longer posted.
	MarkVoid(ctx context.Context, txn *domain.Transaction) error
	SummarizeByType(ctx context.Context, tenantID uuid.UUID, on domain.Date) ([]domain.TxnTypeSummary, error)
	// SumPostedLines returns Σ(debit − credit) over lines of non-void
	// transactions, keyed by account id.
	SumPostedLines(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	// ListCandidates returns lines on accountID of posted transactions dated
	// within [from, to] that no bank row is linked to yet.
	ListCandidates(ctx context.Context, tenantID, accountID uuid.UUID, from, to domain.Date) ([]domain.LedgerCandidate, error)
	// IsInvoiceLinked reports whether an invoice is posted by txnID or a
	// recorded payment points at it.
	IsInvoiceLinked(ctx context.Context, tenantID, txnID uuid.UUID) (bool, error)
}

// InvoiceRepository defines the contract for invoice, bill and credit note persistence.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error)
	// GetByIDForUpdate reads the invoice and locks its row until the
	// surrounding transaction ends. Call it inside TxManager.WithTx.
	GetByIDForUpdate(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, kind *domain.DocumentKind, offset, limit int) ([]domain.Invoice, int, error)
	UpdatePayment(ctx context.Context, inv *domain.Invoice) error
	CreatePayment(ctx context.Context, p *domain.InvoicePayment) error
}

// ScheduleRepository defines the contract for recurring schedule persistence.
type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.RecurringSchedule) error
	GetByID(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, kind *domain.ScheduleKind, offset, limit int) ([]domain.RecurringSchedule, int, error)
	// ListDue returns active schedules of kind, across tenants, whose
	// next_run_date is on or before asOf, oldest first.
	ListDue(ctx context.Context, kind domain.ScheduleKind, asOf domain.Date, limit int) ([]domain.RecurringSchedule, error)
	// Claim bumps the version of an active schedule still at s.Version and
	// increments s.Version. It returns domain.ErrScheduleClaimed when another
	// writer got there first.
	Claim(ctx context.Context, s *domain.RecurringSchedule) error
	// Update persists the mutable fields guarded by s.Version and increments it.
	Update(ctx context.Context, s *domain.RecurringSchedule) error
	RecordFailure(ctx context.Context, tenantID, scheduleID uuid.UUID, reason string) error
	CreateOccurrence(ctx context.Context, occ *domain.ScheduleOccurrence) error
	ListOccurrences(ctx context.Context, tenantID, scheduleID uuid.UUID) ([]domain.ScheduleOccurrence, error)
}

// BankTransactionFilter narrows bank row listings.
type BankTransactionFilter struct {
	Reconciled *bool
	BatchID    *uuid.UUID
}

// BankRepository defines the contract for bank accounts and imported statement rows.
type BankRepository interface {
	CreateAccount(ctx context.Context, acct *domain.BankAccount) error
	GetAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*domain.BankAccount, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]domain.BankAccount, error)

	CreateTransactions(ctx context.Context, rows []domain.BankTransaction) error
	GetTransaction(ctx context.Context, tenantID, bankTxnID uuid.UUID) (*domain.BankTransaction, error)
	ListTransactions(ctx context.Context, tenantID, bankAccountID uuid.UUID, filter BankTransactionFilter, offset, limit int) ([]domain.BankTransaction, int, error)
	// ListUnreconciled returns every unreconciled row of the account in
	// date, then row order.
	ListUnreconciled(ctx context.Context, tenantID, bankAccountID uuid.UUID) ([]domain.BankTransaction, error)
	// MarkReconciled links an unreconciled row. It returns
	// domain.ErrAlreadyReconciled if the row is already linked.
	MarkReconciled(ctx context.Context, row *domain.BankTransaction) error
	ClearReconciliation(ctx context.Context, tenantID, bankTxnID uuid.UUID) error
	// GetByLedgerTransaction returns the row linked to txnID, or
	// domain.ErrBankTransactionNotFound when none is.
	GetByLedgerTransaction(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.BankTransaction, error)
}
