package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"khata/internal/domain"
	"khata/internal/port"
)

type bankRepo struct{ s *Store }

func (r bankRepo) CreateAccount(ctx context.Context, acct *domain.BankAccount) error {
	defer r.s.lock(ctx)()
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	r.s.st.bankAccounts[acct.ID] = *acct
	return nil
}

func (r bankRepo) GetAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*domain.BankAccount, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.st.bankAccounts[bankAccountID]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrBankAccountNotFound
	}
	return &a, nil
}

func (r bankRepo) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]domain.BankAccount, error) {
	defer r.s.lock(ctx)()
	var out []domain.BankAccount
	for _, a := range r.s.st.bankAccounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r bankRepo) CreateTransactions(ctx context.Context, rows []domain.BankTransaction) error {
	defer r.s.lock(ctx)()
	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		rows[i].CreatedAt = now
		r.s.st.bankTxns[rows[i].ID] = rows[i]
	}
	return nil
}

func (r bankRepo) GetTransaction(ctx context.Context, tenantID, bankTxnID uuid.UUID) (*domain.BankTransaction, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.bankTxns[bankTxnID]
	if !ok || b.TenantID != tenantID {
		return nil, domain.ErrBankTransactionNotFound
	}
	return &b, nil
}

func (r bankRepo) ListTransactions(ctx context.Context, tenantID, bankAccountID uuid.UUID, filter port.BankTransactionFilter, offset, limit int) ([]domain.BankTransaction, int, error) {
	defer r.s.lock(ctx)()
	var out []domain.BankTransaction
	for _, b := range r.s.st.bankTxns {
		if b.TenantID != tenantID || b.BankAccountID != bankAccountID {
			continue
		}
		if filter.Reconciled != nil && b.IsReconciled != *filter.Reconciled {
			continue
		}
		if filter.BatchID != nil && b.ImportBatchID != *filter.BatchID {
			continue
		}
		out = append(out, b)
	}
	sortRows(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return page(out, offset, limit), len(out), nil
}

func (r bankRepo) ListUnreconciled(ctx context.Context, tenantID, bankAccountID uuid.UUID) ([]domain.BankTransaction, error) {
	defer r.s.lock(ctx)()
	var out []domain.BankTransaction
	for _, b := range r.s.st.bankTxns {
		if b.TenantID == tenantID && b.BankAccountID == bankAccountID && !b.IsReconciled {
			out = append(out, b)
		}
	}
	sortRows(out)
	return out, nil
}

func (r bankRepo) MarkReconciled(ctx context.Context, row *domain.BankTransaction) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.bankTxns[row.ID]
	if !ok || cur.TenantID != row.TenantID {
		return domain.ErrBankTransactionNotFound
	}
	if cur.IsReconciled {
		return domain.ErrAlreadyReconciled
	}
	if row.TransactionID != nil {
		for _, other := range r.s.st.bankTxns {
			if other.TenantID == cur.TenantID && other.TransactionID != nil && *other.TransactionID == *row.TransactionID {
				return domain.ErrTransactionMatched
			}
		}
	}
	now := time.Now().UTC()
	cur.IsReconciled = true
	cur.TransactionID = row.TransactionID
	cur.ReconciledAt = &now
	cur.ReconciledBy = row.ReconciledBy
	r.s.st.bankTxns[cur.ID] = cur

	row.IsReconciled = true
	row.ReconciledAt = &now
	return nil
}

func (r bankRepo) ClearReconciliation(ctx context.Context, tenantID, bankTxnID uuid.UUID) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.bankTxns[bankTxnID]
	if !ok || cur.TenantID != tenantID {
		return nil
	}
	cur.IsReconciled = false
	cur.TransactionID = nil
	cur.ReconciledAt = nil
	cur.ReconciledBy = nil
	r.s.st.bankTxns[cur.ID] = cur
	return nil
}

func (r bankRepo) GetByLedgerTransaction(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.BankTransaction, error) {
	defer r.s.lock(ctx)()
	for _, row := range r.s.st.bankTxns {
		if row.TenantID == tenantID && row.TransactionID != nil && *row.TransactionID == txnID {
			return &row, nil
		}
	}
	return nil, domain.ErrBankTransactionNotFound
}

// sortRows orders by date, then import batch, then row number.
func sortRows(rows []domain.BankTransaction) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := a.TxnDate.Compare(b.TxnDate); c != 0 {
			return c < 0
		}
		if c := bytes.Compare(a.ImportBatchID[:], b.ImportBatchID[:]); c != 0 {
			return c < 0
		}
		return a.RowNumber < b.RowNumber
	})
}
