package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"khata/internal/domain"
	"khata/internal/port"
)

type transactionRepo struct {
	db *sqlx.DB
}

// NewTransactionRepo creates a new PostgreSQL-backed TransactionRepository.
func NewTransactionRepo(db *sqlx.DB) port.TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, `INSERT INTO transactions (
		id, tenant_id, number, type, txn_date, reference, description, status,
		subtotal, tax_total, total, created_by, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		txn.ID, txn.TenantID, txn.Number, txn.Type, txn.Date, txn.Reference, txn.Description, txn.Status,
		txn.Subtotal, txn.TaxTotal, txn.Total, txn.CreatedBy, txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		if isDuplicate(err, "transactions_tenant_number_key") {
			return fmt.Errorf("transactionRepo.Create: number %s already used: %w", txn.Number, domain.ErrInvalidInput)
		}
		return fmt.Errorf("transactionRepo.Create: %w", err)
	}

	for i := range txn.Lines {
		line := &txn.Lines[i]
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		line.TenantID = txn.TenantID
		line.TransactionID = txn.ID
		_, err := q.ExecContext(ctx, `INSERT INTO transaction_lines (
			id, tenant_id, transaction_id, account_id, line_no, description, debit, credit
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			line.ID, line.TenantID, line.TransactionID, line.AccountID, line.LineNo, line.Description,
			line.Debit, line.Credit)
		if err != nil {
			return fmt.Errorf("transactionRepo.Create line %d: %w", line.LineNo, err)
		}
	}
	return nil
}

func (r *transactionRepo) GetByID(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.Transaction, error) {
	q := conn(ctx, r.db)

	var txn domain.Transaction
	err := sqlx.GetContext(ctx, q, &txn,
		"SELECT * FROM transactions WHERE id = $1 AND tenant_id = $2", txnID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("transactionRepo.GetByID: %w", err)
	}

	err = sqlx.SelectContext(ctx, q, &txn.Lines,
		"SELECT * FROM transaction_lines WHERE transaction_id = $1 AND tenant_id = $2 ORDER BY line_no",
		txnID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("transactionRepo.GetByID lines: %w", err)
	}
	return &txn, nil
}

func (r *transactionRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter port.TransactionFilter, offset, limit int) ([]domain.Transaction, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Type != nil {
		add("type = $%d", *filter.Type)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.From != nil {
		add("txn_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("txn_date <= $%d", *filter.To)
	}
	cond := strings.Join(where, " AND ")
	q := conn(ctx, r.db)

	var total int
	if err := sqlx.GetContext(ctx, q, &total, "SELECT COUNT(*) FROM transactions WHERE "+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("transactionRepo.ListByTenant count: %w", err)
	}

	listArgs := append(args, limit, offset)
	query := fmt.Sprintf(`SELECT * FROM transactions WHERE %s
		ORDER BY txn_date DESC, number DESC LIMIT $%d OFFSET $%d`, cond, len(args)+1, len(args)+2)
	var txns []domain.Transaction
	if err := sqlx.SelectContext(ctx, q, &txns, query, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("transactionRepo.ListByTenant: %w", err)
	}
	return txns, total, nil
}

func (r *transactionRepo) MarkVoid(ctx context.Context, txn *domain.Transaction) error {
	now := time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE transactions SET status = $1, voided_at = $2, voided_by = $3, updated_at = $2
		 WHERE id = $4 AND tenant_id = $5 AND status = $6`,
		domain.TxnStatusVoid, now, txn.VoidedBy, txn.ID, txn.TenantID, domain.TxnStatusPosted)
	if err != nil {
		return fmt.Errorf("transactionRepo.MarkVoid: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrAlreadyVoid
	}
	txn.Status = domain.TxnStatusVoid
	txn.VoidedAt = &now
	txn.UpdatedAt = now
	return nil
}

func (r *transactionRepo) SummarizeByType(ctx context.Context, tenantID uuid.UUID, on domain.Date) ([]domain.TxnTypeSummary, error) {
	var rows []domain.TxnTypeSummary
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows,
		`SELECT type, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total
		 FROM transactions
		 WHERE tenant_id = $1 AND txn_date = $2 AND status = $3
		 GROUP BY type ORDER BY type`,
		tenantID, on, domain.TxnStatusPosted)
	if err != nil {
		return nil, fmt.Errorf("transactionRepo.SummarizeByType: %w", err)
	}
	return rows, nil
}

func (r *transactionRepo) SumPostedLines(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []struct {
		AccountID uuid.UUID       `db:"account_id"`
		Net       decimal.Decimal `db:"net"`
	}
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows,
		`SELECT l.account_id, COALESCE(SUM(l.debit - l.credit), 0) AS net
		 FROM transaction_lines l
		 JOIN transactions t ON t.id = l.transaction_id
		 WHERE l.tenant_id = $1 AND t.status = $2
		 GROUP BY l.account_id`,
		tenantID, domain.TxnStatusPosted)
	if err != nil {
		return nil, fmt.Errorf("transactionRepo.SumPostedLines: %w", err)
	}
	out := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.AccountID] = row.Net
	}
	return out, nil
}

func (r *transactionRepo) ListCandidates(ctx context.Context, tenantID, accountID uuid.UUID, from, to domain.Date) ([]domain.LedgerCandidate, error) {
	var out []domain.LedgerCandidate
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &out,
		`SELECT t.id AS transaction_id, t.number, t.txn_date, t.description, t.reference, l.debit, l.credit
		 FROM transaction_lines l
		 JOIN transactions t ON t.id = l.transaction_id
		 WHERE l.tenant_id = $1 AND l.account_id = $2
		   AND t.status = $3 AND t.txn_date BETWEEN $4 AND $5
		   AND NOT EXISTS (
		       SELECT 1 FROM bank_transactions b
		       WHERE b.tenant_id = t.tenant_id AND b.transaction_id = t.id
		   )
		 ORDER BY t.txn_date, t.id, l.line_no`,
		tenantID, accountID, domain.TxnStatusPosted, from, to)
	if err != nil {
		return nil, fmt.Errorf("transactionRepo.ListCandidates: %w", err)
	}
	return out, nil
}

func (r *transactionRepo) IsInvoiceLinked(ctx context.Context, tenantID, txnID uuid.UUID) (bool, error) {
	var linked bool
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &linked,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE tenant_id = $1 AND transaction_id = $2)
		     OR EXISTS (SELECT 1 FROM invoice_payments WHERE tenant_id = $1 AND transaction_id = $2)`,
		tenantID, txnID)
	if err != nil {
		return false, fmt.Errorf("transactionRepo.IsInvoiceLinked: %w", err)
	}
	return linked, nil
}
