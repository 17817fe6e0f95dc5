package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/domain"
	"khata/internal/logging"
	"khata/internal/metrics"
	"khata/internal/port"
)

// Clock returns the current calendar day.
type Clock func() domain.Date

// SystemClock returns a Clock reading the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return func() domain.Date { return domain.Today(loc) }
}

// LineInput is one debit or credit line of a transaction.
type LineInput struct {
	AccountID   uuid.UUID       `json:"account_id" binding:"required"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// CreateTransactionInput is the DTO for posting a transaction. A zero Date
// means today; an empty Type means journal.
type CreateTransactionInput struct {
	Type        domain.TxnType  `json:"type"`
	Date        domain.Date     `json:"date"`
	Reference   *string         `json:"reference"`
	Description string          `json:"description"`
	TaxTotal    decimal.Decimal `json:"tax_total"`
	Lines       []LineInput     `json:"lines" binding:"required,min=2,dive"`
}

// QuickSaleInput is the DTO for a two-line sale. IncomeAccountID overrides
// the tenant's sales mapping.
type QuickSaleInput struct {
	Date            domain.Date        `json:"date"`
	Amount          decimal.Decimal    `json:"amount"`
	PaymentMode     domain.PaymentMode `json:"payment_mode" binding:"required"`
	IncomeAccountID *uuid.UUID         `json:"income_account_id"`
	Reference       *string            `json:"reference"`
	Description     string             `json:"description"`
}

// QuickExpenseInput is the DTO for a two-line expense. ExpenseAccountID
// overrides the tenant's expense mapping.
type QuickExpenseInput struct {
	Date             domain.Date        `json:"date"`
	Amount           decimal.Decimal    `json:"amount"`
	PaymentMode      domain.PaymentMode `json:"payment_mode" binding:"required"`
	ExpenseAccountID *uuid.UUID         `json:"expense_account_id"`
	Reference        *string            `json:"reference"`
	Description      string             `json:"description"`
}

// LedgerService posts and voids balanced double-entry transactions and keeps
// account balances in step with them.
type LedgerService interface {
	CreateTransaction(ctx context.Context, tenantID, userID uuid.UUID, input CreateTransactionInput) (*domain.Transaction, error)
	CreateQuickSale(ctx context.Context, tenantID, userID uuid.UUID, input QuickSaleInput) (*domain.Transaction, error)
	CreateQuickExpense(ctx context.Context, tenantID, userID uuid.UUID, input QuickExpenseInput) (*domain.Transaction, error)
	VoidTransaction(ctx context.Context, tenantID, userID, txnID uuid.UUID) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, tenantID uuid.UUID, filter port.TransactionFilter, offset, limit int) ([]domain.Transaction, int, error)
	GetDailySummary(ctx context.Context, tenantID uuid.UUID, on domain.Date) (*domain.DailySummary, error)
	RecalculateBalances(ctx context.Context, tenantID uuid.UUID) ([]domain.BalanceDrift, error)
	ResolveRole(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole) (*domain.Account, error)
}

type ledgerService struct {
	tx           port.TxManager
	accounts     port.AccountRepository
	mappings     port.AccountMappingRepository
	sequences    port.SequenceRepository
	transactions port.TransactionRepository
	today        Clock
}

// NewLedgerService creates a new LedgerService implementation.
func NewLedgerService(
	tx port.TxManager,
	accounts port.AccountRepository,
	mappings port.AccountMappingRepository,
	sequences port.SequenceRepository,
	transactions port.TransactionRepository,
	today Clock,
) LedgerService {
	return &ledgerService{
		tx:           tx,
		accounts:     accounts,
		mappings:     mappings,
		sequences:    sequences,
		transactions: transactions,
		today:        today,
	}
}

func (s *ledgerService) CreateTransaction(ctx context.Context, tenantID, userID uuid.UUID, input CreateTransactionInput) (*domain.Transaction, error) {
	if input.Type == "" {
		input.Type = domain.TxnTypeJournal
	}
	if _, ok := domain.TxnNumberPrefix[input.Type]; !ok {
		return nil, domain.ErrInvalidTxnType
	}
	total, err := validateLines(input.Lines)
	if err != nil {
		return nil, err
	}
	if input.TaxTotal.IsNegative() || input.TaxTotal.GreaterThan(total) || !isMoney(input.TaxTotal) {
		return nil, fmt.Errorf("%w: tax total", domain.ErrInvalidAmount)
	}
	if input.Date.IsZero() {
		input.Date = s.today()
	}

	txn := &domain.Transaction{
		TenantID:    tenantID,
		Type:        input.Type,
		Date:        input.Date,
		Reference:   input.Reference,
		Description: input.Description,
		Status:      domain.TxnStatusPosted,
		Subtotal:    total.Sub(input.TaxTotal),
		TaxTotal:    input.TaxTotal,
		Total:       total,
		CreatedBy:   userID,
		Lines:       make([]domain.TransactionLine, len(input.Lines)),
	}
	for i, l := range input.Lines {
		txn.Lines[i] = domain.TransactionLine{
			TenantID:    tenantID,
			AccountID:   l.AccountID,
			LineNo:      i + 1,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := checkLineAccounts(ctx, s.accounts, tenantID, input.Lines); err != nil {
			return err
		}

		seq, err := s.sequences.Next(ctx, tenantID, string(txn.Type))
		if err != nil {
			return err
		}
		txn.Number = fmt.Sprintf("%s-%05d", domain.TxnNumberPrefix[txn.Type], seq)

		if err := s.transactions.Create(ctx, txn); err != nil {
			return err
		}
		for _, l := range txn.Lines {
			if err := s.accounts.ApplyBalanceDelta(ctx, tenantID, l.AccountID, l.Delta()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionsPosted.WithLabelValues(string(txn.Type)).Inc()
	logging.FromContext(ctx).Debug("transaction posted",
		"tenant_id", tenantID, "number", txn.Number, "total", txn.Total.StringFixed(2))
	return txn, nil
}

// checkLineAccounts requires every line's account to belong to the tenant and be active.
func checkLineAccounts(ctx context.Context, accounts port.AccountRepository, tenantID uuid.UUID, lines []LineInput) error {
	for _, l := range lines {
		account, err := accounts.GetByID(ctx, tenantID, l.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return fmt.Errorf("%w: %s", domain.ErrAccountInactive, account.Code)
		}
	}
	return nil
}

func (s *ledgerService) CreateQuickSale(ctx context.Context, tenantID, userID uuid.UUID, input QuickSaleInput) (*domain.Transaction, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	var result *domain.Transaction
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		paySide, err := s.paymentSide(ctx, tenantID, input.PaymentMode, domain.RoleReceivable)
		if err != nil {
			return err
		}
		income, err := s.accountOrRole(ctx, tenantID, input.IncomeAccountID, domain.RoleSales)
		if err != nil {
			return err
		}
		result, err = s.CreateTransaction(ctx, tenantID, userID, CreateTransactionInput{
			Type:        domain.TxnTypeSale,
			Date:        input.Date,
			Reference:   input.Reference,
			Description: input.Description,
			Lines: []LineInput{
				{AccountID: paySide.ID, Description: input.Description, Debit: input.Amount},
				{AccountID: income.ID, Description: input.Description, Credit: input.Amount},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) CreateQuickExpense(ctx context.Context, tenantID, userID uuid.UUID, input QuickExpenseInput) (*domain.Transaction, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	var result *domain.Transaction
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		paySide, err := s.paymentSide(ctx, tenantID, input.PaymentMode, domain.RolePayable)
		if err != nil {
			return err
		}
		expense, err := s.accountOrRole(ctx, tenantID, input.ExpenseAccountID, domain.RoleExpense)
		if err != nil {
			return err
		}
		result, err = s.CreateTransaction(ctx, tenantID, userID, CreateTransactionInput{
			Type:        domain.TxnTypeExpense,
			Date:        input.Date,
			Reference:   input.Reference,
			Description: input.Description,
			Lines: []LineInput{
				{AccountID: expense.ID, Description: input.Description, Debit: input.Amount},
				{AccountID: paySide.ID, Description: input.Description, Credit: input.Amount},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// VoidTransaction flips a posted transaction to void and reverses every
// line's balance delta in the same unit.
func (s *ledgerService) VoidTransaction(ctx context.Context, tenantID, userID, txnID uuid.UUID) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		txn, err = s.transactions.GetByID(ctx, tenantID, txnID)
		if err != nil {
			return err
		}
		if txn.Status == domain.TxnStatusVoid {
			return domain.ErrAlreadyVoid
		}
		linked, err := s.transactions.IsInvoiceLinked(ctx, tenantID, txnID)
		if err != nil {
			return err
		}
		if linked {
			return domain.ErrTransactionLinked
		}
		txn.VoidedBy = &userID
		if err := s.transactions.MarkVoid(ctx, txn); err != nil {
			return err
		}
		for _, l := range txn.Lines {
			if err := s.accounts.ApplyBalanceDelta(ctx, tenantID, l.AccountID, l.Delta().Neg()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionsVoided.Inc()
	logging.FromContext(ctx).Info("transaction voided", "tenant_id", tenantID, "number", txn.Number)
	return txn, nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.Transaction, error) {
	return s.transactions.GetByID(ctx, tenantID, txnID)
}

func (s *ledgerService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter port.TransactionFilter, offset, limit int) ([]domain.Transaction, int, error) {
	return s.transactions.ListByTenant(ctx, tenantID, filter, offset, limit)
}

func (s *ledgerService) GetDailySummary(ctx context.Context, tenantID uuid.UUID, on domain.Date) (*domain.DailySummary, error) {
	if on.IsZero() {
		on = s.today()
	}
	byType, err := s.transactions.SummarizeByType(ctx, tenantID, on)
	if err != nil {
		return nil, err
	}
	summary := &domain.DailySummary{Date: on, Total: decimal.Zero, ByType: byType}
	for _, t := range byType {
		summary.TransactionCount += t.Count
		summary.Total = summary.Total.Add(t.Total)
	}
	if summary.ByType == nil {
		summary.ByType = []domain.TxnTypeSummary{}
	}
	return summary, nil
}

// RecalculateBalances recomputes every account as opening balance plus the
// net of its posted lines and overwrites the ones that drifted.
func (s *ledgerService) RecalculateBalances(ctx context.Context, tenantID uuid.UUID) ([]domain.BalanceDrift, error) {
	const pageSize = 500
	drifts := []domain.BalanceDrift{}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		drifts = drifts[:0]
		sums, err := s.transactions.SumPostedLines(ctx, tenantID)
		if err != nil {
			return err
		}
		for offset := 0; ; offset += pageSize {
			accounts, total, err := s.accounts.ListByTenant(ctx, tenantID, offset, pageSize)
			if err != nil {
				return err
			}
			for _, a := range accounts {
				want := a.OpeningBalance.Add(sums[a.ID])
				if want.Equal(a.CurrentBalance) {
					continue
				}
				if err := s.accounts.SetBalance(ctx, tenantID, a.ID, want); err != nil {
					return err
				}
				drifts = append(drifts, domain.BalanceDrift{
					AccountID:  a.ID,
					Code:       a.Code,
					Stored:     a.CurrentBalance,
					Recomputed: want,
				})
			}
			if offset+pageSize >= total {
				return nil
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if len(drifts) > 0 {
		logging.FromContext(ctx).Warn("account balances drifted", "tenant_id", tenantID, "accounts", len(drifts))
	}
	return drifts, nil
}

// ResolveRole returns the active account the tenant mapped to role.
func (s *ledgerService) ResolveRole(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole) (*domain.Account, error) {
	m, err := s.mappings.Get(ctx, tenantID, role)
	if err != nil {
		return nil, fmt.Errorf("no account mapped to role %s: %w", role, err)
	}
	account, err := s.accounts.GetByID(ctx, tenantID, m.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountInactive, account.Code)
	}
	return account, nil
}

func (s *ledgerService) paymentSide(ctx context.Context, tenantID uuid.UUID, mode domain.PaymentMode, creditRole domain.AccountRole) (*domain.Account, error) {
	switch mode {
	case domain.PaymentModeCash:
		return s.ResolveRole(ctx, tenantID, domain.RoleCash)
	case domain.PaymentModeBank:
		return s.ResolveRole(ctx, tenantID, domain.RoleBank)
	case domain.PaymentModeCredit:
		return s.ResolveRole(ctx, tenantID, creditRole)
	default:
		return nil, domain.ErrInvalidPaymentMode
	}
}

func (s *ledgerService) accountOrRole(ctx context.Context, tenantID uuid.UUID, id *uuid.UUID, role domain.AccountRole) (*domain.Account, error) {
	if id == nil {
		return s.ResolveRole(ctx, tenantID, role)
	}
	return s.accounts.GetByID(ctx, tenantID, *id)
}

// validateLines checks line shape and balance and returns the debit total.
func validateLines(lines []LineInput) (decimal.Decimal, error) {
	if len(lines) < 2 {
		return decimal.Zero, fmt.Errorf("%w: at least two lines are required", domain.ErrInvalidLine)
	}
	debits, credits := decimal.Zero, decimal.Zero
	for i, l := range lines {
		if l.AccountID == uuid.Nil {
			return decimal.Zero, fmt.Errorf("%w: line %d has no account", domain.ErrInvalidLine, i+1)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() || !isMoney(l.Debit) || !isMoney(l.Credit) {
			return decimal.Zero, fmt.Errorf("%w: line %d", domain.ErrInvalidAmount, i+1)
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: line %d", domain.ErrInvalidLine, i+1)
		}
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	if !debits.Equal(credits) {
		return decimal.Zero, fmt.Errorf("%w: debits %s, credits %s", domain.ErrUnbalanced, debits.StringFixed(2), credits.StringFixed(2))
	}
	return debits, nil
}

// isMoney reports whether d fits two decimal places without rounding.
func isMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
