package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"khata/internal/domain"
	"khata/internal/port"
)

type bankRepo struct {
	db *sqlx.DB
}

// NewBankRepo creates a new PostgreSQL-backed BankRepository.
func NewBankRepo(db *sqlx.DB) port.BankRepository {
	return &bankRepo{db: db}
}

func (r *bankRepo) CreateAccount(ctx context.Context, acct *domain.BankAccount) error {
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO bank_accounts (
			id, tenant_id, name, bank_name, account_number, currency, ledger_account_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		acct.ID, acct.TenantID, acct.Name, acct.BankName, acct.AccountNumber, acct.Currency,
		acct.LedgerAccountID, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return fmt.Errorf("bankRepo.CreateAccount: %w", err)
	}
	return nil
}

func (r *bankRepo) GetAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*domain.BankAccount, error) {
	var acct domain.BankAccount
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &acct,
		"SELECT * FROM bank_accounts WHERE id = $1 AND tenant_id = $2", bankAccountID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("bankRepo.GetAccount: %w", err)
	}
	return &acct, nil
}

func (r *bankRepo) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]domain.BankAccount, error) {
	var out []domain.BankAccount
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &out,
		"SELECT * FROM bank_accounts WHERE tenant_id = $1 ORDER BY name", tenantID)
	if err != nil {
		return nil, fmt.Errorf("bankRepo.ListAccounts: %w", err)
	}
	return out, nil
}

// CreateTransactions inserts rows with one multi-row statement per chunk.
func (r *bankRepo) CreateTransactions(ctx context.Context, rows []domain.BankTransaction) error {
	const chunk = 500
	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		rows[i].CreatedAt = now
	}

	q := conn(ctx, r.db)
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		query := `INSERT INTO bank_transactions (
			id, tenant_id, bank_account_id, import_batch_id, row_number, txn_date, description,
			reference, debit, credit, balance, is_reconciled, created_at
		) VALUES ` + valuesList(end-start, bankRowColumns)
		if _, err := q.ExecContext(ctx, query, flattenBankRows(rows[start:end])...); err != nil {
			return fmt.Errorf("bankRepo.CreateTransactions: %w", err)
		}
	}
	return nil
}

func (r *bankRepo) GetTransaction(ctx context.Context, tenantID, bankTxnID uuid.UUID) (*domain.BankTransaction, error) {
	var row domain.BankTransaction
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &row,
		"SELECT * FROM bank_transactions WHERE id = $1 AND tenant_id = $2", bankTxnID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBankTransactionNotFound
		}
		return nil, fmt.Errorf("bankRepo.GetTransaction: %w", err)
	}
	return &row, nil
}

func (r *bankRepo) ListTransactions(ctx context.Context, tenantID, bankAccountID uuid.UUID, filter port.BankTransactionFilter, offset, limit int) ([]domain.BankTransaction, int, error) {
	q := conn(ctx, r.db)
	cond := "tenant_id = $1 AND bank_account_id = $2"
	args := []any{tenantID, bankAccountID}
	if filter.Reconciled != nil {
		args = append(args, *filter.Reconciled)
		cond += fmt.Sprintf(" AND is_reconciled = $%d", len(args))
	}
	if filter.BatchID != nil {
		args = append(args, *filter.BatchID)
		cond += fmt.Sprintf(" AND import_batch_id = $%d", len(args))
	}

	var total int
	if err := sqlx.GetContext(ctx, q, &total, "SELECT COUNT(*) FROM bank_transactions WHERE "+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("bankRepo.ListTransactions count: %w", err)
	}

	query := fmt.Sprintf(`SELECT * FROM bank_transactions WHERE %s
		ORDER BY txn_date DESC, row_number DESC LIMIT $%d OFFSET $%d`, cond, len(args)+1, len(args)+2)
	var out []domain.BankTransaction
	if err := sqlx.SelectContext(ctx, q, &out, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("bankRepo.ListTransactions: %w", err)
	}
	return out, total, nil
}

func (r *bankRepo) ListUnreconciled(ctx context.Context, tenantID, bankAccountID uuid.UUID) ([]domain.BankTransaction, error) {
	var out []domain.BankTransaction
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &out,
		`SELECT * FROM bank_transactions
		 WHERE tenant_id = $1 AND bank_account_id = $2 AND is_reconciled = FALSE
		 ORDER BY txn_date, import_batch_id, row_number`,
		tenantID, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("bankRepo.ListUnreconciled: %w", err)
	}
	return out, nil
}

func (r *bankRepo) MarkReconciled(ctx context.Context, row *domain.BankTransaction) error {
	now := time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE bank_transactions SET is_reconciled = TRUE, transaction_id = $1, reconciled_at = $2, reconciled_by = $3
		 WHERE id = $4 AND tenant_id = $5 AND is_reconciled = FALSE`,
		row.TransactionID, now, row.ReconciledBy, row.ID, row.TenantID)
	if err != nil {
		if isDuplicate(err, "bank_transactions_tenant_txn_key") {
			return domain.ErrTransactionMatched
		}
		return fmt.Errorf("bankRepo.MarkReconciled: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrAlreadyReconciled
	}
	row.IsReconciled = true
	row.ReconciledAt = &now
	return nil
}

func (r *bankRepo) ClearReconciliation(ctx context.Context, tenantID, bankTxnID uuid.UUID) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE bank_transactions SET is_reconciled = FALSE, transaction_id = NULL, reconciled_at = NULL, reconciled_by = NULL
		 WHERE id = $1 AND tenant_id = $2`,
		bankTxnID, tenantID)
	if err != nil {
		return fmt.Errorf("bankRepo.ClearReconciliation: %w", err)
	}
	return nil
}

func (r *bankRepo) GetByLedgerTransaction(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.BankTransaction, error) {
	var row domain.BankTransaction
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &row,
		"SELECT * FROM bank_transactions WHERE tenant_id = $1 AND transaction_id = $2", tenantID, txnID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBankTransactionNotFound
		}
		return nil, fmt.Errorf("bankRepo.GetByLedgerTransaction: %w", err)
	}
	return &row, nil
}

const bankRowColumns = 13

// valuesList renders "($1,$2,..),($n+1,..)" for a multi-row insert.
func valuesList(rows, cols int) string {
	var b strings.Builder
	n := 1
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString("$" + strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func flattenBankRows(rows []domain.BankTransaction) []any {
	args := make([]any, 0, len(rows)*bankRowColumns)
	for _, r := range rows {
		args = append(args,
			r.ID, r.TenantID, r.BankAccountID, r.ImportBatchID, r.RowNumber, r.TxnDate, r.Description,
			r.Reference, r.Debit, r.Credit, r.Balance, r.IsReconciled, r.CreatedAt)
	}
	return args
}
