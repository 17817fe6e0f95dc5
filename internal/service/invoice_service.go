package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/domain"
	"khata/internal/logging"
	"khata/internal/port"
	"khata/internal/totals"
	"khata/internal/validator"
)

// ComputeTotalsInput is the DTO for a totals preview.
type ComputeTotalsInput struct {
	Kind          domain.DocumentKind   `json:"kind"`
	Items         []domain.DocumentItem `json:"items" binding:"required,min=1"`
	DiscountMode  domain.DiscountMode   `json:"discount_mode"`
	DiscountValue decimal.Decimal       `json:"discount_value"`
	TDSRate       decimal.Decimal       `json:"tds_rate"`
	AmountPaid    decimal.Decimal       `json:"amount_paid"`
}

// CreateInvoiceInput is the DTO for issuing an invoice, bill or credit note.
type CreateInvoiceInput struct {
	Kind             domain.DocumentKind   `json:"kind" binding:"required"`
	CounterpartyName string                `json:"counterparty_name" binding:"required"`
	CounterpartyRef  *string               `json:"counterparty_ref"`
	IssueDate        domain.Date           `json:"issue_date"`
	DueDate          *domain.Date          `json:"due_date"`
	Items            []domain.DocumentItem `json:"items" binding:"required,min=1"`
	DiscountMode     domain.DiscountMode   `json:"discount_mode"`
	DiscountValue    decimal.Decimal       `json:"discount_value"`
	TDSRate          decimal.Decimal       `json:"tds_rate"`
	Notes            string                `json:"notes"`

	// ScheduleID is set when a recurring schedule generates the document.
	ScheduleID *uuid.UUID `json:"-"`
}

// RecordPaymentInput is the DTO for settling a document.
type RecordPaymentInput struct {
	Amount      decimal.Decimal    `json:"amount"`
	PaymentMode domain.PaymentMode `json:"payment_mode" binding:"required"`
	Date        domain.Date        `json:"date"`
	Reference   *string            `json:"reference"`
}

// InvoiceService issues GST documents and posts them to the ledger.
type InvoiceService interface {
	ComputeTotals(input ComputeTotalsInput) (*totals.Result, error)
	CreateInvoice(ctx context.Context, tenantID, userID uuid.UUID, input CreateInvoiceInput) (*domain.Invoice, error)
	RecordPayment(ctx context.Context, tenantID, userID, invoiceID uuid.UUID, input RecordPaymentInput) (*domain.Invoice, *domain.Transaction, error)
	GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, tenantID uuid.UUID, kind *domain.DocumentKind, offset, limit int) ([]domain.Invoice, int, error)
}

type invoiceService struct {
	tx        port.TxManager
	invoices  port.InvoiceRepository
	sequences port.SequenceRepository
	ledger    LedgerService
	today     Clock
}

// NewInvoiceService creates a new InvoiceService implementation.
func NewInvoiceService(
	tx port.TxManager,
	invoices port.InvoiceRepository,
	sequences port.SequenceRepository,
	ledger LedgerService,
	today Clock,
) InvoiceService {
	return &invoiceService{
		tx:        tx,
		invoices:  invoices,
		sequences: sequences,
		ledger:    ledger,
		today:     today,
	}
}

func (s *invoiceService) ComputeTotals(input ComputeTotalsInput) (*totals.Result, error) {
	if input.Kind == "" {
		input.Kind = domain.DocumentKindInvoice
	}
	res, err := totals.Compute(totals.Input{
		Kind:          input.Kind,
		Items:         input.Items,
		DiscountMode:  input.DiscountMode,
		DiscountValue: input.DiscountValue,
		TDSRate:       input.TDSRate,
		AmountPaid:    input.AmountPaid,
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, tenantID, userID uuid.UUID, input CreateInvoiceInput) (*domain.Invoice, error) {
	if err := validateDocument(input.Kind, input.CounterpartyName, input.Items); err != nil {
		return nil, err
	}
	res, err := totals.Compute(totals.Input{
		Kind:          input.Kind,
		Items:         input.Items,
		DiscountMode:  input.DiscountMode,
		DiscountValue: input.DiscountValue,
		TDSRate:       input.TDSRate,
	})
	if err != nil {
		return nil, err
	}
	if !res.GrandTotal.IsPositive() {
		return nil, fmt.Errorf("%w: grand total must be positive", domain.ErrInvalidAmount)
	}
	if input.IssueDate.IsZero() {
		input.IssueDate = s.today()
	}

	inv := &domain.Invoice{
		TenantID:         tenantID,
		Kind:             input.Kind,
		CounterpartyName: input.CounterpartyName,
		CounterpartyRef:  input.CounterpartyRef,
		IssueDate:        input.IssueDate,
		DueDate:          input.DueDate,
		Items:            append(domain.DocumentItems(nil), input.Items...),
		DiscountMode:     input.DiscountMode,
		DiscountValue:    input.DiscountValue,
		TDSRate:          input.TDSRate,
		Subtotal:         res.Subtotal,
		DiscountAmount:   res.Discount,
		TaxableAmount:    res.Taxable,
		CGSTTotal:        res.CGST,
		SGSTTotal:        res.SGST,
		IGSTTotal:        res.IGST,
		CessTotal:        res.Cess,
		TaxTotal:         res.TotalTax,
		TDSAmount:        res.TDS,
		GrandTotal:       res.GrandTotal,
		AmountPaid:       decimal.Zero,
		BalanceDue:       res.BalanceDue,
		Status:           domain.InvoiceStatusIssued,
		ScheduleID:       input.ScheduleID,
		Notes:            input.Notes,
		CreatedBy:        userID,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		seq, err := s.sequences.Next(ctx, tenantID, "doc:"+string(inv.Kind))
		if err != nil {
			return err
		}
		inv.Number = fmt.Sprintf("%s-%05d", domain.DocumentNumberPrefix[inv.Kind], seq)

		posting, err := s.documentPosting(ctx, tenantID, inv, res)
		if err != nil {
			return err
		}
		txn, err := s.ledger.CreateTransaction(ctx, tenantID, userID, posting)
		if err != nil {
			return err
		}
		inv.TransactionID = txn.ID
		return s.invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("document issued",
		"tenant_id", tenantID, "kind", inv.Kind, "number", inv.Number, "grand_total", inv.GrandTotal.StringFixed(2))
	return inv, nil
}

// documentPosting builds the ledger entry for a document. Zero amounts are
// left out so every line carries one positive side.
func (s *invoiceService) documentPosting(ctx context.Context, tenantID uuid.UUID, inv *domain.Invoice, res totals.Result) (CreateTransactionInput, error) {
	in := CreateTransactionInput{
		Date:        inv.IssueDate,
		Reference:   &inv.Number,
		Description: fmt.Sprintf("%s %s: %s", inv.Kind, inv.Number, inv.CounterpartyName),
		TaxTotal:    res.TotalTax,
	}
	var (
		debits  []posting
		credits []posting
	)
	switch inv.Kind {
	case domain.DocumentKindInvoice:
		in.Type = domain.TxnTypeSale
		debits = []posting{{domain.RoleReceivable, res.GrandTotal}}
		credits = append([]posting{{domain.RoleSales, res.Taxable}}, outputTax(res)...)
	case domain.DocumentKindCreditNote:
		in.Type = domain.TxnTypeJournal
		debits = append([]posting{{domain.RoleSales, res.Taxable}}, outputTax(res)...)
		credits = []posting{{domain.RoleReceivable, res.GrandTotal}}
	case domain.DocumentKindBill:
		in.Type = domain.TxnTypePurchase
		debits = []posting{
			{domain.RolePurchases, res.Taxable},
			{domain.RoleInputCGST, res.CGST},
			{domain.RoleInputSGST, res.SGST},
			{domain.RoleInputIGST, res.IGST},
			{domain.RoleInputCess, res.Cess},
		}
		credits = []posting{
			{domain.RolePayable, res.GrandTotal},
			{domain.RoleTDSPayable, res.TDS},
		}
	default:
		return in, domain.ErrInvalidDocumentKind
	}

	for _, p := range debits {
		if err := s.appendLine(ctx, tenantID, &in, p, true); err != nil {
			return in, err
		}
	}
	for _, p := range credits {
		if err := s.appendLine(ctx, tenantID, &in, p, false); err != nil {
			return in, err
		}
	}
	return in, nil
}

type posting struct {
	role   domain.AccountRole
	amount decimal.Decimal
}

func outputTax(res totals.Result) []posting {
	return []posting{
		{domain.RoleOutputCGST, res.CGST},
		{domain.RoleOutputSGST, res.SGST},
		{domain.RoleOutputIGST, res.IGST},
		{domain.RoleOutputCess, res.Cess},
	}
}

func (s *invoiceService) appendLine(ctx context.Context, tenantID uuid.UUID, in *CreateTransactionInput, p posting, debit bool) error {
	if !p.amount.IsPositive() {
		return nil
	}
	account, err := s.ledger.ResolveRole(ctx, tenantID, p.role)
	if err != nil {
		return err
	}
	line := LineInput{AccountID: account.ID}
	if debit {
		line.Debit = p.amount
	} else {
		line.Credit = p.amount
	}
	in.Lines = append(in.Lines, line)
	return nil
}

// RecordPayment posts a receipt (invoice) or payment (bill, credit note
// refund) against the document and updates its settlement status.
func (s *invoiceService) RecordPayment(ctx context.Context, tenantID, userID, invoiceID uuid.UUID, input RecordPaymentInput) (*domain.Invoice, *domain.Transaction, error) {
	if !input.Amount.IsPositive() || !isMoney(input.Amount) {
		return nil, nil, domain.ErrInvalidAmount
	}
	var cashRole domain.AccountRole
	switch input.PaymentMode {
	case domain.PaymentModeCash:
		cashRole = domain.RoleCash
	case domain.PaymentModeBank:
		cashRole = domain.RoleBank
	default:
		return nil, nil, domain.ErrInvalidPaymentMode
	}

	var (
		inv *domain.Invoice
		txn *domain.Transaction
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if input.Amount.GreaterThan(inv.BalanceDue) {
			return fmt.Errorf("%w: payment %s exceeds balance due %s",
				domain.ErrInvalidAmount, input.Amount.StringFixed(2), inv.BalanceDue.StringFixed(2))
		}

		cash, err := s.ledger.ResolveRole(ctx, tenantID, cashRole)
		if err != nil {
			return err
		}
		entry := CreateTransactionInput{
			Date:        input.Date,
			Reference:   input.Reference,
			Description: fmt.Sprintf("payment for %s %s", inv.Kind, inv.Number),
		}
		if entry.Reference == nil {
			entry.Reference = &inv.Number
		}
		switch inv.Kind {
		case domain.DocumentKindInvoice:
			receivable, err := s.ledger.ResolveRole(ctx, tenantID, domain.RoleReceivable)
			if err != nil {
				return err
			}
			entry.Type = domain.TxnTypeReceipt
			entry.Lines = []LineInput{
				{AccountID: cash.ID, Debit: input.Amount},
				{AccountID: receivable.ID, Credit: input.Amount},
			}
		case domain.DocumentKindBill, domain.DocumentKindCreditNote:
			role := domain.RolePayable
			if inv.Kind == domain.DocumentKindCreditNote {
				role = domain.RoleReceivable
			}
			counter, err := s.ledger.ResolveRole(ctx, tenantID, role)
			if err != nil {
				return err
			}
			entry.Type = domain.TxnTypePayment
			entry.Lines = []LineInput{
				{AccountID: counter.ID, Debit: input.Amount},
				{AccountID: cash.ID, Credit: input.Amount},
			}
		default:
			return domain.ErrInvalidDocumentKind
		}

		txn, err = s.ledger.CreateTransaction(ctx, tenantID, userID, entry)
		if err != nil {
			return err
		}

		if err := s.invoices.CreatePayment(ctx, &domain.InvoicePayment{
			TenantID:      tenantID,
			InvoiceID:     inv.ID,
			TransactionID: txn.ID,
			Amount:        input.Amount,
		}); err != nil {
			return err
		}

		inv.AmountPaid = inv.AmountPaid.Add(input.Amount)
		inv.BalanceDue = totals.BalanceDue(inv.GrandTotal, inv.AmountPaid)
		if inv.BalanceDue.IsZero() {
			inv.Status = domain.InvoiceStatusPaid
		} else {
			inv.Status = domain.InvoiceStatusPartiallyPaid
		}
		return s.invoices.UpdatePayment(ctx, inv)
	})
	if err != nil {
		return nil, nil, err
	}
	return inv, txn, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	return s.invoices.GetByID(ctx, tenantID, invoiceID)
}

func (s *invoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, kind *domain.DocumentKind, offset, limit int) ([]domain.Invoice, int, error) {
	return s.invoices.ListByTenant(ctx, tenantID, kind, offset, limit)
}

// validateDocument applies the checks the calculator leaves to its callers.
func validateDocument(kind domain.DocumentKind, counterparty string, items []domain.DocumentItem) error {
	if _, ok := domain.DocumentNumberPrefix[kind]; !ok {
		return domain.ErrInvalidDocumentKind
	}
	if counterparty == "" {
		return fmt.Errorf("%w: counterparty name is required", domain.ErrInvalidInput)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", domain.ErrInvalidInput)
	}
	for i, item := range items {
		if item.HasGSTConflict() {
			return fmt.Errorf("item %d: %w", i+1, domain.ErrGSTComponentConflict)
		}
		if err := validator.HSNCode(item.HSNCode); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return nil
}
