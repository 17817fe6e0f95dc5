package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"khata/internal/domain"
	"khata/internal/logging"
	"khata/internal/metrics"
	"khata/internal/port"
	"khata/internal/reconcile"
	"khata/internal/statement"
	"khata/internal/validator"
)

// CreateBankAccountInput is the DTO for registering a bank account.
type CreateBankAccountInput struct {
	Name            string     `json:"name" binding:"required,max=200"`
	BankName        string     `json:"bank_name"`
	AccountNumber   string     `json:"account_number"`
	Currency        string     `json:"currency" binding:"omitempty,len=3"`
	LedgerAccountID *uuid.UUID `json:"ledger_account_id"`
}

// ImportStatementInput carries an uploaded statement file.
type ImportStatementInput struct {
	Filename string
	Body     io.Reader
	Size     int64
}

// ImportSummary reports the outcome of a statement import.
type ImportSummary struct {
	BatchID      uuid.UUID `json:"batch_id"`
	TotalRows    int       `json:"total_rows"`
	ImportedRows int       `json:"imported_rows"`
	SkippedRows  int       `json:"skipped_rows"`
	ErrorRows    int       `json:"error_rows"`
	Errors       []string  `json:"errors"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
}

// AutoMatch is one link made by AutoReconcile.
type AutoMatch struct {
	BankTransactionID uuid.UUID `json:"bank_transaction_id"`
	TransactionID     uuid.UUID `json:"transaction_id"`
}

// AutoReconcileResult reports the outcome of an AutoReconcile pass.
type AutoReconcileResult struct {
	Examined  int         `json:"examined"`
	Matched   int         `json:"matched"`
	Unmatched int         `json:"unmatched"`
	Matches   []AutoMatch `json:"matches"`
}

// BankServiceConfig tunes statement import and matching.
type BankServiceConfig struct {
	MaxFileSize    int64
	MaxErrors      int
	HeaderScanRows int
	SuggestLimit   int
	ArchiveBucket  string
	ArchivePrefix  string
}

// BankService imports bank statements and reconciles them with the ledger.
type BankService interface {
	CreateBankAccount(ctx context.Context, tenantID uuid.UUID, input CreateBankAccountInput) (*domain.BankAccount, error)
	GetBankAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*domain.BankAccount, error)
	ListBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]domain.BankAccount, error)
	ListBankTransactions(ctx context.Context, tenantID, bankAccountID uuid.UUID, filter port.BankTransactionFilter, offset, limit int) ([]domain.BankTransaction, int, error)

	ImportBankStatement(ctx context.Context, tenantID, userID, bankAccountID uuid.UUID, input ImportStatementInput) (*ImportSummary, error)
	ReconcileTransaction(ctx context.Context, tenantID, userID, bankTxnID, txnID uuid.UUID) (*domain.BankTransaction, error)
	UnreconcileTransaction(ctx context.Context, tenantID, bankTxnID uuid.UUID) (*domain.BankTransaction, error)
	AutoReconcile(ctx context.Context, tenantID, userID, bankAccountID uuid.UUID) (*AutoReconcileResult, error)
	SuggestMatches(ctx context.Context, tenantID, bankTxnID uuid.UUID) ([]reconcile.Suggestion, error)
}

type bankService struct {
	tx           port.TxManager
	bank         port.BankRepository
	accounts     port.AccountRepository
	transactions port.TransactionRepository
	storage      port.ObjectStorage
	cfg          BankServiceConfig
}

// NewBankService creates a new BankService. storage may be nil, in which case
// raw statements are not archived.
func NewBankService(
	tx port.TxManager,
	bank port.BankRepository,
	accounts port.AccountRepository,
	transactions port.TransactionRepository,
	storage port.ObjectStorage,
	cfg BankServiceConfig,
) BankService {
	if cfg.SuggestLimit <= 0 {
		cfg.SuggestLimit = 5
	}
	return &bankService{
		tx:           tx,
		bank:         bank,
		accounts:     accounts,
		transactions: transactions,
		storage:      storage,
		cfg:          cfg,
	}
}

func (s *bankService) CreateBankAccount(ctx context.Context, tenantID uuid.UUID, input CreateBankAccountInput) (*domain.BankAccount, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if err := validator.BankAccountNumber(input.AccountNumber); err != nil {
		return nil, err
	}
	input.AccountNumber = validator.NormalizeAccountNumber(input.AccountNumber)
	if input.Currency == "" {
		input.Currency = "INR"
	}
	if input.LedgerAccountID != nil {
		account, err := s.accounts.GetByID(ctx, tenantID, *input.LedgerAccountID)
		if err != nil {
			return nil, err
		}
		if !account.IsActive {
			return nil, domain.ErrAccountInactive
		}
	}

	acct := &domain.BankAccount{
		TenantID:        tenantID,
		Name:            input.Name,
		BankName:        input.BankName,
		AccountNumber:   input.AccountNumber,
		Currency:        input.Currency,
		LedgerAccountID: input.LedgerAccountID,
	}
	if err := s.bank.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *bankService) GetBankAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*domain.BankAccount, error) {
	return s.bank.GetAccount(ctx, tenantID, bankAccountID)
}

func (s *bankService) ListBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]domain.BankAccount, error) {
	return s.bank.ListAccounts(ctx, tenantID)
}

func (s *bankService) ListBankTransactions(ctx context.Context, tenantID, bankAccountID uuid.UUID, filter port.BankTransactionFilter, offset, limit int) ([]domain.BankTransaction, int, error) {
	if _, err := s.bank.GetAccount(ctx, tenantID, bankAccountID); err != nil {
		return nil, 0, err
	}
	return s.bank.ListTransactions(ctx, tenantID, bankAccountID, filter, offset, limit)
}

// ImportBankStatement parses a CSV or XLSX statement and stores every valid
// row under one batch id in a single unit of work. Malformed rows are counted
// and sampled, never fatal.
func (s *bankService) ImportBankStatement(ctx context.Context, tenantID, userID, bankAccountID uuid.UUID, input ImportStatementInput) (*ImportSummary, error) {
	logger := logging.FromContext(ctx)

	if _, err := s.bank.GetAccount(ctx, tenantID, bankAccountID); err != nil {
		return nil, err
	}
	if s.cfg.MaxFileSize > 0 && input.Size > s.cfg.MaxFileSize {
		return nil, domain.ErrFileTooLarge
	}

	body := input.Body
	if s.cfg.MaxFileSize > 0 {
		body = io.LimitReader(body, s.cfg.MaxFileSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return nil, domain.ErrFileTooLarge
	}

	format := statement.DetectFormat(input.Filename)
	sheet, err := statement.Read(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	parsed, err := statement.Parse(sheet, statement.Options{
		HeaderScanRows: s.cfg.HeaderScanRows,
		MaxErrors:      s.cfg.MaxErrors,
	})
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{
		BatchID:      uuid.New(),
		TotalRows:    parsed.Total,
		ImportedRows: len(parsed.Rows),
		SkippedRows:  parsed.Skipped,
		ErrorRows:    parsed.ErrorRows,
		Errors:       parsed.Errors,
	}
	if summary.Errors == nil {
		summary.Errors = []string{}
	}

	rows := make([]domain.BankTransaction, len(parsed.Rows))
	for i, r := range parsed.Rows {
		rows[i] = domain.BankTransaction{
			TenantID:      tenantID,
			BankAccountID: bankAccountID,
			ImportBatchID: summary.BatchID,
			RowNumber:     r.Line,
			TxnDate:       r.Date,
			Description:   r.Description,
			Debit:         r.Debit,
			Credit:        r.Credit,
			Balance:       r.Balance,
		}
		if r.Reference != "" {
			ref := r.Reference
			rows[i].Reference = &ref
		}
	}
	if len(rows) > 0 {
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			return s.bank.CreateTransactions(ctx, rows)
		})
		if err != nil {
			return nil, err
		}
	}

	metrics.StatementRows.WithLabelValues("imported").Add(float64(summary.ImportedRows))
	metrics.StatementRows.WithLabelValues("skipped").Add(float64(summary.SkippedRows - summary.ErrorRows))
	metrics.StatementRows.WithLabelValues("error").Add(float64(summary.ErrorRows))

	if s.storage != nil && s.cfg.ArchiveBucket != "" {
		key := path.Join(s.cfg.ArchivePrefix, tenantID.String(), bankAccountID.String(),
			summary.BatchID.String()+"_"+filepath.Base(input.Filename))
		_, err := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.cfg.ArchiveBucket,
			Key:         key,
			Body:        bytes.NewReader(data),
			ContentType: contentType(format),
			Size:        int64(len(data)),
		})
		if err != nil {
			logger.Warn("statement archive failed",
				"tenant_id", tenantID, "batch_id", summary.BatchID, "error", err)
		} else {
			summary.ArchiveKey = key
		}
	}

	logger.Info("bank statement imported",
		"tenant_id", tenantID,
		"bank_account_id", bankAccountID,
		"user_id", userID,
		"batch_id", summary.BatchID,
		"total", summary.TotalRows,
		"imported", summary.ImportedRows,
		"skipped", summary.SkippedRows,
		"errors", summary.ErrorRows,
	)
	return summary, nil
}

func contentType(f statement.Format) string {
	if f == statement.FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func (s *bankService) ReconcileTransaction(ctx context.Context, tenantID, userID, bankTxnID, txnID uuid.UUID) (*domain.BankTransaction, error) {
	var row *domain.BankTransaction
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		row, err = s.bank.GetTransaction(ctx, tenantID, bankTxnID)
		if err != nil {
			return err
		}
		if row.IsReconciled {
			return domain.ErrAlreadyReconciled
		}
		txn, err := s.transactions.GetByID(ctx, tenantID, txnID)
		if err != nil {
			return err
		}
		if txn.Status == domain.TxnStatusVoid {
			return domain.ErrTransactionVoid
		}
		if _, err := s.bank.GetByLedgerTransaction(ctx, tenantID, txn.ID); err == nil {
			return domain.ErrTransactionMatched
		} else if !errors.Is(err, domain.ErrBankTransactionNotFound) {
			return err
		}
		acct, err := s.bank.GetAccount(ctx, tenantID, row.BankAccountID)
		if err != nil {
			return err
		}
		if acct.LedgerAccountID != nil && !touchesAccount(txn, *acct.LedgerAccountID) {
			return domain.ErrReconcileAccountMismatch
		}
		row.TransactionID = &txn.ID
		row.ReconciledBy = &userID
		return s.bank.MarkReconciled(ctx, row)
	})
	if err != nil {
		return nil, err
	}
	metrics.Reconciliations.WithLabelValues("manual").Inc()
	return row, nil
}

func touchesAccount(txn *domain.Transaction, accountID uuid.UUID) bool {
	for _, l := range txn.Lines {
		if l.AccountID == accountID {
			return true
		}
	}
	return false
}

// UnreconcileTransaction clears a row's link. A row that is not reconciled is
// returned unchanged.
func (s *bankService) UnreconcileTransaction(ctx context.Context, tenantID, bankTxnID uuid.UUID) (*domain.BankTransaction, error) {
	row, err := s.bank.GetTransaction(ctx, tenantID, bankTxnID)
	if err != nil {
		return nil, err
	}
	if !row.IsReconciled {
		return row, nil
	}
	if err := s.bank.ClearReconciliation(ctx, tenantID, bankTxnID); err != nil {
		return nil, err
	}
	row.IsReconciled = false
	row.TransactionID = nil
	row.ReconciledAt = nil
	row.ReconciledBy = nil
	return row, nil
}

// AutoReconcile links every unreconciled row to a posted transaction on the
// same date whose line on the linked ledger account has the same signed
// amount. Each link commits on its own; ctx is checked between rows.
func (s *bankService) AutoReconcile(ctx context.Context, tenantID, userID, bankAccountID uuid.UUID) (*AutoReconcileResult, error) {
	acct, err := s.bank.GetAccount(ctx, tenantID, bankAccountID)
	if err != nil {
		return nil, err
	}
	if acct.LedgerAccountID == nil {
		return nil, domain.ErrBankAccountNotLinked
	}
	rows, err := s.bank.ListUnreconciled(ctx, tenantID, bankAccountID)
	if err != nil {
		return nil, err
	}

	result := &AutoReconcileResult{Matches: []AutoMatch{}}
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		row := &rows[i]
		result.Examined++

		matched := false
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			candidates, err := s.transactions.ListCandidates(ctx, tenantID, *acct.LedgerAccountID, row.TxnDate, row.TxnDate)
			if err != nil {
				return err
			}
			c, ok := reconcile.ExactMatch(*row, candidates)
			if !ok {
				return nil
			}
			row.TransactionID = &c.TransactionID
			row.ReconciledBy = &userID
			if err := s.bank.MarkReconciled(ctx, row); err != nil {
				return err
			}
			matched = true
			return nil
		})
		switch {
		case errors.Is(err, domain.ErrAlreadyReconciled), errors.Is(err, domain.ErrTransactionMatched):
			// Row or candidate linked by a concurrent pass since the listing.
		case err != nil:
			return result, err
		case matched:
			result.Matched++
			result.Matches = append(result.Matches, AutoMatch{BankTransactionID: row.ID, TransactionID: *row.TransactionID})
			metrics.Reconciliations.WithLabelValues("auto").Inc()
		}
	}
	result.Unmatched = result.Examined - result.Matched

	logging.FromContext(ctx).Info("auto reconcile finished",
		"tenant_id", tenantID, "bank_account_id", bankAccountID,
		"examined", result.Examined, "matched", result.Matched)
	return result, nil
}

// SuggestMatches ranks posted transactions within a few days of the row.
func (s *bankService) SuggestMatches(ctx context.Context, tenantID, bankTxnID uuid.UUID) ([]reconcile.Suggestion, error) {
	row, err := s.bank.GetTransaction(ctx, tenantID, bankTxnID)
	if err != nil {
		return nil, err
	}
	if row.IsReconciled {
		return nil, domain.ErrAlreadyReconciled
	}
	acct, err := s.bank.GetAccount(ctx, tenantID, row.BankAccountID)
	if err != nil {
		return nil, err
	}
	if acct.LedgerAccountID == nil {
		return nil, domain.ErrBankAccountNotLinked
	}
	candidates, err := s.transactions.ListCandidates(ctx, tenantID, *acct.LedgerAccountID,
		row.TxnDate.AddDays(-reconcile.SuggestWindowDays), row.TxnDate.AddDays(reconcile.SuggestWindowDays))
	if err != nil {
		return nil, err
	}
	return reconcile.Suggest(*row, candidates, s.cfg.SuggestLimit), nil
}
