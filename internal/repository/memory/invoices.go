package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"khata/internal/domain"
)

type invoiceRepo struct{ s *Store }

func cloneInvoice(inv domain.Invoice) domain.Invoice {
	inv.Items = append(domain.DocumentItems(nil), inv.Items...)
	return inv
}

func (r invoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	defer r.s.lock(ctx)()
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	r.s.st.invoices[inv.ID] = cloneInvoice(*inv)
	return nil
}

func (r invoiceRepo) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	defer r.s.lock(ctx)()
	inv, ok := r.s.st.invoices[invoiceID]
	if !ok || inv.TenantID != tenantID {
		return nil, domain.ErrInvoiceNotFound
	}
	inv = cloneInvoice(inv)
	return &inv, nil
}

// GetByIDForUpdate needs no row lock: callers already hold the store inside WithTx.
func (r invoiceRepo) GetByIDForUpdate(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	return r.GetByID(ctx, tenantID, invoiceID)
}

func (r invoiceRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, kind *domain.DocumentKind, offset, limit int) ([]domain.Invoice, int, error) {
	defer r.s.lock(ctx)()
	var out []domain.Invoice
	for _, inv := range r.s.st.invoices {
		if inv.TenantID != tenantID || (kind != nil && inv.Kind != *kind) {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].IssueDate.Compare(out[j].IssueDate); c != 0 {
			return c > 0
		}
		return out[i].Number > out[j].Number
	})
	return page(out, offset, limit), len(out), nil
}

func (r invoiceRepo) UpdatePayment(ctx context.Context, inv *domain.Invoice) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.invoices[inv.ID]
	if !ok || cur.TenantID != inv.TenantID {
		return domain.ErrInvoiceNotFound
	}
	inv.UpdatedAt = time.Now().UTC()
	cur.AmountPaid = inv.AmountPaid
	cur.BalanceDue = inv.BalanceDue
	cur.Status = inv.Status
	cur.UpdatedAt = inv.UpdatedAt
	r.s.st.invoices[cur.ID] = cur
	return nil
}

func (r invoiceRepo) CreatePayment(ctx context.Context, p *domain.InvoicePayment) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.st.payments {
		if existing.TenantID == p.TenantID && existing.TransactionID == p.TransactionID {
			return fmt.Errorf("invoiceRepo.CreatePayment: transaction %s already recorded", p.TransactionID)
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	r.s.st.payments[p.ID] = *p
	return nil
}
