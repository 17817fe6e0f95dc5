package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/domain"
	"khata/internal/port"
)

type transactionRepo struct{ s *Store }

func cloneTxn(t domain.Transaction) domain.Transaction {
	t.Lines = append([]domain.TransactionLine(nil), t.Lines...)
	return t
}

func (r transactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	defer r.s.lock(ctx)()
	for _, t := range r.s.st.transactions {
		if t.TenantID == txn.TenantID && t.Number == txn.Number {
			return fmt.Errorf("transactionRepo.Create: number %s already used: %w", txn.Number, domain.ErrInvalidInput)
		}
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	for i := range txn.Lines {
		if txn.Lines[i].ID == uuid.Nil {
			txn.Lines[i].ID = uuid.New()
		}
		txn.Lines[i].TenantID = txn.TenantID
		txn.Lines[i].TransactionID = txn.ID
	}
	r.s.st.transactions[txn.ID] = cloneTxn(*txn)
	return nil
}

func (r transactionRepo) GetByID(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.Transaction, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.st.transactions[txnID]
	if !ok || t.TenantID != tenantID {
		return nil, domain.ErrTransactionNotFound
	}
	t = cloneTxn(t)
	return &t, nil
}

func (r transactionRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter port.TransactionFilter, offset, limit int) ([]domain.Transaction, int, error) {
	defer r.s.lock(ctx)()
	var out []domain.Transaction
	for _, t := range r.s.st.transactions {
		if t.TenantID != tenantID {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.From != nil && t.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.Date.After(*filter.To) {
			continue
		}
		t.Lines = nil
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c > 0
		}
		return out[i].Number > out[j].Number
	})
	return page(out, offset, limit), len(out), nil
}

func (r transactionRepo) MarkVoid(ctx context.Context, txn *domain.Transaction) error {
	defer r.s.lock(ctx)()
	t, ok := r.s.st.transactions[txn.ID]
	if !ok || t.TenantID != txn.TenantID {
		return domain.ErrTransactionNotFound
	}
	if t.Status != domain.TxnStatusPosted {
		return domain.ErrAlreadyVoid
	}
	now := time.Now().UTC()
	t.Status = domain.TxnStatusVoid
	t.VoidedAt = &now
	t.VoidedBy = txn.VoidedBy
	t.UpdatedAt = now
	r.s.st.transactions[t.ID] = t

	txn.Status = t.Status
	txn.VoidedAt = &now
	txn.UpdatedAt = now
	return nil
}

func (r transactionRepo) SummarizeByType(ctx context.Context, tenantID uuid.UUID, on domain.Date) ([]domain.TxnTypeSummary, error) {
	defer r.s.lock(ctx)()
	byType := map[domain.TxnType]*domain.TxnTypeSummary{}
	for _, t := range r.s.st.transactions {
		if t.TenantID != tenantID || t.Status != domain.TxnStatusPosted || !t.Date.Equal(on) {
			continue
		}
		s, ok := byType[t.Type]
		if !ok {
			s = &domain.TxnTypeSummary{Type: t.Type}
			byType[t.Type] = s
		}
		s.Count++
		s.Total = s.Total.Add(t.Total)
	}
	out := make([]domain.TxnTypeSummary, 0, len(byType))
	for _, s := range byType {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r transactionRepo) SumPostedLines(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	defer r.s.lock(ctx)()
	out := map[uuid.UUID]decimal.Decimal{}
	for _, t := range r.s.st.transactions {
		if t.TenantID != tenantID || t.Status != domain.TxnStatusPosted {
			continue
		}
		for _, l := range t.Lines {
			out[l.AccountID] = out[l.AccountID].Add(l.Delta())
		}
	}
	return out, nil
}

func (r transactionRepo) ListCandidates(ctx context.Context, tenantID, accountID uuid.UUID, from, to domain.Date) ([]domain.LedgerCandidate, error) {
	defer r.s.lock(ctx)()
	linked := map[uuid.UUID]bool{}
	for _, b := range r.s.st.bankTxns {
		if b.TenantID == tenantID && b.TransactionID != nil {
			linked[*b.TransactionID] = true
		}
	}

	var out []domain.LedgerCandidate
	for _, t := range r.s.st.transactions {
		if t.TenantID != tenantID || t.Status != domain.TxnStatusPosted || linked[t.ID] {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		for _, l := range t.Lines {
			if l.AccountID != accountID {
				continue
			}
			out = append(out, domain.LedgerCandidate{
				TransactionID: t.ID,
				Number:        t.Number,
				Date:          t.Date,
				Description:   t.Description,
				Reference:     t.Reference,
				Debit:         l.Debit,
				Credit:        l.Credit,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].TransactionID[:], out[j].TransactionID[:]) < 0
	})
	return out, nil
}

func (r transactionRepo) IsInvoiceLinked(ctx context.Context, tenantID, txnID uuid.UUID) (bool, error) {
	defer r.s.lock(ctx)()
	for _, inv := range r.s.st.invoices {
		if inv.TenantID == tenantID && inv.TransactionID == txnID {
			return true, nil
		}
	}
	for _, p := range r.s.st.payments {
		if p.TenantID == tenantID && p.TransactionID == txnID {
			return true, nil
		}
	}
	return false, nil
}
