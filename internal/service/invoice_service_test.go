package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khata/internal/domain"
	"khata/internal/port"
	"khata/internal/service"
)

func intraStateItems() []domain.DocumentItem {
	return []domain.DocumentItem{
		{Description: "Consulting", HSNCode: "998311", Quantity: d("2"), Rate: d("500"), CGSTRate: d("9"), SGSTRate: d("9")},
	}
}

func TestInvoiceService_ComputeTotals(t *testing.T) {
	f := newFixture(t)

	res, err := f.invoices.ComputeTotals(service.ComputeTotalsInput{
		Items:         intraStateItems(),
		DiscountMode:  domain.DiscountModePercent,
		DiscountValue: d("10"),
	})
	require.NoError(t, err)
	assert.True(t, res.Subtotal.Equal(d("1000")))
	assert.True(t, res.Discount.Equal(d("100")))
	assert.True(t, res.Taxable.Equal(d("900")))
	assert.True(t, res.TotalTax.Equal(d("180")))
	assert.True(t, res.GrandTotal.Equal(d("1080")))
}

func TestInvoiceService_CreateInvoice_PostsLedgerEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.invoices.CreateInvoice(ctx, f.tenant, f.user, service.CreateInvoiceInput{
		Kind:             domain.DocumentKindInvoice,
		CounterpartyName: "Acme Traders",
		Items:            intraStateItems(),
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-00001", inv.Number)
	assert.Equal(t, domain.InvoiceStatusIssued, inv.Status)
	assert.Equal(t, f.today, inv.IssueDate)
	assert.True(t, inv.GrandTotal.Equal(d("1180")))
	assert.True(t, inv.BalanceDue.Equal(d("1180")))

	assert.True(t, f.balance(t, "1100").Equal(d("1180")))
	assert.True(t, f.balance(t, "4000").Equal(d("-1000")))
	assert.True(t, f.balance(t, "2100").Equal(d("-90")))
	assert.True(t, f.balance(t, "2101").Equal(d("-90")))

	txn, err := f.ledger.GetTransaction(ctx, f.tenant, inv.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxnTypeSale, txn.Type)
	assert.Equal(t, "SAL-00001", txn.Number)
	assert.True(t, txn.TaxTotal.Equal(d("180")))
	assert.Len(t, txn.Lines, 4)
}

func TestInvoiceService_CreateBill_WithTDS(t *testing.T) {
	f := newFixture(t)

	bill, err := f.invoices.CreateInvoice(context.Background(), f.tenant, f.user, service.CreateInvoiceInput{
		Kind:             domain.DocumentKindBill,
		CounterpartyName: "Landlord LLP",
		Items: []domain.DocumentItem{
			{Description: "Office fit-out", Quantity: d("1"), Rate: d("10000"), IGSTRate: d("18")},
		},
		TDSRate: d("2"),
	})
	require.NoError(t, err)

	assert.Equal(t, "BILL-00001", bill.Number)
	assert.True(t, bill.TDSAmount.Equal(d("200")))
	assert.True(t, bill.GrandTotal.Equal(d("11600")))

	assert.True(t, f.balance(t, "5000").Equal(d("10000")))
	assert.True(t, f.balance(t, "1202").Equal(d("1800")))
	assert.True(t, f.balance(t, "2000").Equal(d("-11600")))
	assert.True(t, f.balance(t, "2200").Equal(d("-200")))
}

func TestInvoiceService_CreateCreditNote_MirrorsInvoice(t *testing.T) {
	f := newFixture(t)

	cn, err := f.invoices.CreateInvoice(context.Background(), f.tenant, f.user, service.CreateInvoiceInput{
		Kind:             domain.DocumentKindCreditNote,
		CounterpartyName: "Acme Traders",
		Items:            intraStateItems(),
	})
	require.NoError(t, err)

	assert.Equal(t, "CN-00001", cn.Number)
	assert.True(t, f.balance(t, "1100").Equal(d("-1180")))
	assert.True(t, f.balance(t, "4000").Equal(d("1000")))
	assert.True(t, f.balance(t, "2100").Equal(d("90")))
}

func TestInvoiceService_CreateInvoice_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input service.CreateInvoiceInput
		want  error
	}{
		{
			name: "gst conflict",
			input: service.CreateInvoiceInput{
				Kind:             domain.DocumentKindInvoice,
				CounterpartyName: "X",
				Items: []domain.DocumentItem{
					{Quantity: d("1"), Rate: d("100"), CGSTRate: d("9"), IGSTRate: d("18")},
				},
			},
			want: domain.ErrGSTComponentConflict,
		},
		{
			name: "unknown kind",
			input: service.CreateInvoiceInput{
				Kind: "quote", CounterpartyName: "X", Items: intraStateItems(),
			},
			want: domain.ErrInvalidDocumentKind,
		},
		{
			name: "no items",
			input: service.CreateInvoiceInput{
				Kind: domain.DocumentKindInvoice, CounterpartyName: "X",
			},
			want: domain.ErrInvalidInput,
		},
		{
			name: "discount above subtotal",
			input: service.CreateInvoiceInput{
				Kind:             domain.DocumentKindInvoice,
				CounterpartyName: "X",
				Items:            intraStateItems(),
				DiscountMode:     domain.DiscountModeFixed,
				DiscountValue:    d("5000"),
			},
			want: domain.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.invoices.CreateInvoice(ctx, f.tenant, f.user, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, total, err := f.invoices.ListInvoices(ctx, f.tenant, nil, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.True(t, f.balance(t, "1100").IsZero())
}

func TestInvoiceService_RecordPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.invoices.CreateInvoice(ctx, f.tenant, f.user, service.CreateInvoiceInput{
		Kind:             domain.DocumentKindInvoice,
		CounterpartyName: "Acme Traders",
		Items:            intraStateItems(),
	})
	require.NoError(t, err)

	inv, txn, err := f.invoices.RecordPayment(ctx, f.tenant, f.user, inv.ID, service.RecordPaymentInput{
		Amount: d("500"), PaymentMode: domain.PaymentModeBank,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxnTypeReceipt, txn.Type)
	assert.Equal(t, domain.InvoiceStatusPartiallyPaid, inv.Status)
	assert.True(t, inv.BalanceDue.Equal(d("680")))

	_, _, err = f.invoices.RecordPayment(ctx, f.tenant, f.user, inv.ID, service.RecordPaymentInput{
		Amount: d("700"), PaymentMode: domain.PaymentModeBank,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	inv, _, err = f.invoices.RecordPayment(ctx, f.tenant, f.user, inv.ID, service.RecordPaymentInput{
		Amount: d("680"), PaymentMode: domain.PaymentModeCash,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.BalanceDue.IsZero())

	assert.True(t, f.balance(t, "1100").IsZero())
	assert.True(t, f.balance(t, "1010").Equal(d("500")))
	assert.True(t, f.balance(t, "1000").Equal(d("680")))

	stored, err := f.invoices.GetInvoice(ctx, f.tenant, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.Equal(d("1180")))
}

func TestInvoiceService_RecordPayment_Bill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill, err := f.invoices.CreateInvoice(ctx, f.tenant, f.user, service.CreateInvoiceInput{
		Kind:             domain.DocumentKindBill,
		CounterpartyName: "Supplier",
		Items:            []domain.DocumentItem{{Quantity: d("1"), Rate: d("1000")}},
	})
	require.NoError(t, err)

	_, txn, err := f.invoices.RecordPayment(ctx, f.tenant, f.user, bill.ID, service.RecordPaymentInput{
		Amount: d("1000"), PaymentMode: domain.PaymentModeBank,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxnTypePayment, txn.Type)
	assert.True(t, f.balance(t, "2000").IsZero())
	assert.True(t, f.balance(t, "1010").Equal(d("-1000")))
}

func TestInvoiceService_RecordPayment_RejectsCreditMode(t *testing.T) {
	f := newFixture(t)
	inv, err := f.invoices.CreateInvoice(context.Background(), f.tenant, f.user, service.CreateInvoiceInput{
		Kind: domain.DocumentKindInvoice, CounterpartyName: "X", Items: intraStateItems(),
	})
	require.NoError(t, err)

	_, _, err = f.invoices.RecordPayment(context.Background(), f.tenant, f.user, inv.ID, service.RecordPaymentInput{
		Amount: d("10"), PaymentMode: domain.PaymentModeCredit,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMode)
}

func TestInvoiceService_CreateInvoice_RejectsBadHSN(t *testing.T) {
	f := newFixture(t)
	items := intraStateItems()
	items[0].HSNCode = "99-83"

	_, err := f.invoices.CreateInvoice(context.Background(), f.tenant, f.user, service.CreateInvoiceInput{
		Kind: domain.DocumentKindInvoice, CounterpartyName: "X", Items: items,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// lockingInvoices records which invoices were read with a row lock.
type lockingInvoices struct {
	port.InvoiceRepository
	locked []uuid.UUID
	plain  []uuid.UUID
}

func (r *lockingInvoices) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	r.plain = append(r.plain, invoiceID)
	return r.InvoiceRepository.GetByID(ctx, tenantID, invoiceID)
}

func (r *lockingInvoices) GetByIDForUpdate(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	r.locked = append(r.locked, invoiceID)
	return r.InvoiceRepository.GetByIDForUpdate(ctx, tenantID, invoiceID)
}

func TestInvoiceService_RecordPayment_LocksInvoiceRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := &lockingInvoices{InvoiceRepository: f.store.Invoices()}
	invoices := service.NewInvoiceService(f.store, repo, f.store.Sequences(), f.ledger,
		func() domain.Date { return f.today })

	inv, err := invoices.CreateInvoice(ctx, f.tenant, f.user, service.CreateInvoiceInput{
		Kind: domain.DocumentKindInvoice, CounterpartyName: "Acme Traders", Items: intraStateItems(),
	})
	require.NoError(t, err)

	_, _, err = invoices.RecordPayment(ctx, f.tenant, f.user, inv.ID, service.RecordPaymentInput{
		Amount: d("600"), PaymentMode: domain.PaymentModeBank,
	})
	require.NoError(t, err)
	_, _, err = invoices.RecordPayment(ctx, f.tenant, f.user, inv.ID, service.RecordPaymentInput{
		Amount: d("600"), PaymentMode: domain.PaymentModeBank,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.Equal(t, []uuid.UUID{inv.ID, inv.ID}, repo.locked)
	assert.Empty(t, repo.plain)

	stored, err := invoices.GetInvoice(ctx, f.tenant, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.Equal(d("600")))
	assert.True(t, stored.BalanceDue.Equal(d("580")))
	assert.True(t, f.balance(t, "1100").Equal(d("580")))
}

func TestInvoiceService_LinkedTransactionsCannotBeVoided(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.invoices.CreateInvoice(ctx, f.tenant, f.user, service.CreateInvoiceInput{
		Kind: domain.DocumentKindInvoice, CounterpartyName: "Acme Traders", Items: intraStateItems(),
	})
	require.NoError(t, err)
	_, receipt, err := f.invoices.RecordPayment(ctx, f.tenant, f.user, inv.ID, service.RecordPaymentInput{
		Amount: d("180"), PaymentMode: domain.PaymentModeCash,
	})
	require.NoError(t, err)

	_, err = f.ledger.VoidTransaction(ctx, f.tenant, f.user, inv.TransactionID)
	assert.ErrorIs(t, err, domain.ErrTransactionLinked)
	_, err = f.ledger.VoidTransaction(ctx, f.tenant, f.user, receipt.ID)
	assert.ErrorIs(t, err, domain.ErrTransactionLinked)

	posted, err := f.ledger.GetTransaction(ctx, f.tenant, inv.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxnStatusPosted, posted.Status)
	assert.True(t, f.balance(t, "1100").Equal(d("1000")))
	assert.True(t, f.balance(t, "1000").Equal(d("180")))
}
