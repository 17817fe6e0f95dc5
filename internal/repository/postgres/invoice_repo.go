package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"khata/internal/domain"
	"khata/internal/port"
)

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	query := `INSERT INTO invoices (
		id, tenant_id, kind, number, counterparty_name, counterparty_ref, issue_date, due_date,
		items, discount_mode, discount_value, tds_rate,
		subtotal, discount_amount, taxable_amount, cgst_total, sgst_total, igst_total, cess_total,
		tax_total, tds_amount, grand_total, amount_paid, balance_due,
		status, transaction_id, schedule_id, notes, created_by, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8,
		$9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18, $19,
		$20, $21, $22, $23, $24,
		$25, $26, $27, $28, $29, $30, $31
	)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		inv.ID, inv.TenantID, inv.Kind, inv.Number, inv.CounterpartyName, inv.CounterpartyRef, inv.IssueDate, inv.DueDate,
		inv.Items, inv.DiscountMode, inv.DiscountValue, inv.TDSRate,
		inv.Subtotal, inv.DiscountAmount, inv.TaxableAmount, inv.CGSTTotal, inv.SGSTTotal, inv.IGSTTotal, inv.CessTotal,
		inv.TaxTotal, inv.TDSAmount, inv.GrandTotal, inv.AmountPaid, inv.BalanceDue,
		inv.Status, inv.TransactionID, inv.ScheduleID, inv.Notes, inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &inv,
		"SELECT * FROM invoices WHERE id = $1 AND tenant_id = $2", invoiceID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) GetByIDForUpdate(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &inv,
		"SELECT * FROM invoices WHERE id = $1 AND tenant_id = $2 FOR UPDATE", invoiceID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByIDForUpdate: %w", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, kind *domain.DocumentKind, offset, limit int) ([]domain.Invoice, int, error) {
	q := conn(ctx, r.db)
	cond := "tenant_id = $1"
	args := []any{tenantID}
	if kind != nil {
		cond += " AND kind = $2"
		args = append(args, *kind)
	}

	var total int
	if err := sqlx.GetContext(ctx, q, &total, "SELECT COUNT(*) FROM invoices WHERE "+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.ListByTenant count: %w", err)
	}

	query := fmt.Sprintf(`SELECT * FROM invoices WHERE %s
		ORDER BY issue_date DESC, number DESC LIMIT $%d OFFSET $%d`, cond, len(args)+1, len(args)+2)
	var invoices []domain.Invoice
	if err := sqlx.SelectContext(ctx, q, &invoices, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.ListByTenant: %w", err)
	}
	return invoices, total, nil
}

func (r *invoiceRepo) UpdatePayment(ctx context.Context, inv *domain.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE invoices SET amount_paid = $1, balance_due = $2, status = $3, updated_at = $4
		 WHERE id = $5 AND tenant_id = $6`,
		inv.AmountPaid, inv.BalanceDue, inv.Status, inv.UpdatedAt, inv.ID, inv.TenantID)
	if err != nil {
		return fmt.Errorf("invoiceRepo.UpdatePayment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepo) CreatePayment(ctx context.Context, p *domain.InvoicePayment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO invoice_payments (id, tenant_id, invoice_id, transaction_id, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.TenantID, p.InvoiceID, p.TransactionID, p.Amount, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("invoiceRepo.CreatePayment: %w", err)
	}
	return nil
}
