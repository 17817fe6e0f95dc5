package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"khata/internal/domain"
	"khata/internal/port"
	"khata/internal/service"
	"khata/mocks"
)

func testBankConfig() service.BankServiceConfig {
	return service.BankServiceConfig{
		MaxFileSize:    1 << 20,
		MaxErrors:      20,
		HeaderScanRows: 10,
		SuggestLimit:   5,
		ArchiveBucket:  "statements-test",
		ArchivePrefix:  "statements",
	}
}

func (f *fixture) linkedBankAccount(t *testing.T, bank service.BankService) *domain.BankAccount {
	t.Helper()
	ledger := f.account(t, "1010").ID
	acct, err := bank.CreateBankAccount(context.Background(), f.tenant, service.CreateBankAccountInput{
		Name: "HDFC Current", BankName: "HDFC", AccountNumber: "50200012345678", LedgerAccountID: &ledger,
	})
	require.NoError(t, err)
	return acct
}

func importCSV(t *testing.T, f *fixture, bank service.BankService, acct *domain.BankAccount, content string) *service.ImportSummary {
	t.Helper()
	summary, err := bank.ImportBankStatement(context.Background(), f.tenant, f.user, acct.ID, service.ImportStatementInput{
		Filename: "statement.csv",
		Body:     strings.NewReader(content),
		Size:     int64(len(content)),
	})
	require.NoError(t, err)
	return summary
}

func TestBankService_ImportBankStatement(t *testing.T) {
	f := newFixture(t)
	storage := new(mocks.MockObjectStorage)
	bank := f.bankService(storage, testBankConfig())
	acct := f.linkedBankAccount(t, bank)

	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "statements-test" && strings.HasPrefix(in.Key, "statements/"+f.tenant.String()) && in.ContentType == "text/csv"
	})).Return(&port.UploadOutput{Location: "s3://statements-test/x"}, nil)

	summary := importCSV(t, f, bank, acct, "Date,Description,Debit,Credit\nnot-a-date,Coffee,50,\n2025-03-01,Salary,,5000\n")

	assert.Equal(t, 2, summary.TotalRows)
	assert.Equal(t, 1, summary.ImportedRows)
	assert.Equal(t, 1, summary.SkippedRows)
	assert.Equal(t, 1, summary.ErrorRows)
	assert.Len(t, summary.Errors, 1)
	assert.NotEmpty(t, summary.ArchiveKey)

	rows, total, err := bank.ListBankTransactions(context.Background(), f.tenant, acct.ID, port.BankTransactionFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, summary.BatchID, rows[0].ImportBatchID)
	assert.True(t, rows[0].Credit.Equal(d("5000")))
	assert.False(t, rows[0].IsReconciled)
	storage.AssertExpectations(t)
}

func TestBankService_ImportBankStatement_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	storage := new(mocks.MockObjectStorage)
	bank := f.bankService(storage, testBankConfig())
	acct := f.linkedBankAccount(t, bank)

	storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).Return(nil, errors.New("s3 down"))

	summary := importCSV(t, f, bank, acct, "Date,Description,Debit,Credit\n2025-03-01,Salary,,5000\n")
	assert.Equal(t, 1, summary.ImportedRows)
	assert.Empty(t, summary.ArchiveKey)
}

func TestBankService_ImportBankStatement_Errors(t *testing.T) {
	f := newFixture(t)
	cfg := testBankConfig()
	cfg.MaxFileSize = 64
	bank := f.bankService(nil, cfg)
	acct := f.linkedBankAccount(t, bank)
	ctx := context.Background()

	big := strings.Repeat("x", 100)
	_, err := bank.ImportBankStatement(ctx, f.tenant, f.user, acct.ID, service.ImportStatementInput{
		Filename: "big.csv", Body: strings.NewReader(big), Size: int64(len(big)),
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	// Size unknown up front: the reader limit still applies.
	_, err = bank.ImportBankStatement(ctx, f.tenant, f.user, acct.ID, service.ImportStatementInput{
		Filename: "big.csv", Body: strings.NewReader(big),
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	noHeader := "Posted,Amount\n2025-01-01,10\n"
	_, err = bank.ImportBankStatement(ctx, f.tenant, f.user, acct.ID, service.ImportStatementInput{
		Filename: "x.csv", Body: strings.NewReader(noHeader), Size: int64(len(noHeader)),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = bank.ImportBankStatement(ctx, f.tenant, f.user, uuid.New(), service.ImportStatementInput{
		Filename: "x.csv", Body: strings.NewReader(noHeader),
	})
	assert.ErrorIs(t, err, domain.ErrBankAccountNotFound)
}

func TestBankService_AutoReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.bankService(nil, testBankConfig())
	acct := f.linkedBankAccount(t, bank)

	ledgerTxn := f.post(t, "2025-03-01", "5200", "1010", "5000")
	f.post(t, "2025-03-02", "5200", "1010", "5000")
	importCSV(t, f, bank, acct, "Date,Description,Debit,Credit\n2025-03-01,NEFT,,5000\n2025-03-05,Unknown,,42\n")

	res, err := bank.AutoReconcile(ctx, f.tenant, f.user, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Examined)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Unmatched)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, ledgerTxn.ID, res.Matches[0].TransactionID)

	reconciled := true
	rows, _, err := bank.ListBankTransactions(ctx, f.tenant, acct.ID, port.BankTransactionFilter{Reconciled: &reconciled}, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ledgerTxn.ID, *rows[0].TransactionID)
	assert.Equal(t, f.user, *rows[0].ReconciledBy)

	again, err := bank.AutoReconcile(ctx, f.tenant, f.user, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Examined)
	assert.Zero(t, again.Matched)
}

func TestBankService_AutoReconcile_TieBreakAndVoid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.bankService(nil, testBankConfig())
	acct := f.linkedBankAccount(t, bank)

	a := f.post(t, "2025-03-01", "5200", "1010", "700")
	b := f.post(t, "2025-03-01", "5300", "1010", "700")
	voided := f.post(t, "2025-03-01", "5400", "1010", "700")
	_, err := f.ledger.VoidTransaction(ctx, f.tenant, f.user, voided.ID)
	require.NoError(t, err)

	importCSV(t, f, bank, acct, "Date,Description,Debit,Credit\n2025-03-01,first,,700\n2025-03-01,second,,700\n2025-03-01,third,,700\n")

	res, err := bank.AutoReconcile(ctx, f.tenant, f.user, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matched)

	lowFirst := []uuid.UUID{a.ID, b.ID}
	if strings.Compare(a.ID.String(), b.ID.String()) > 0 {
		lowFirst = []uuid.UUID{b.ID, a.ID}
	}
	require.Len(t, res.Matches, 2)
	assert.Equal(t, lowFirst[0], res.Matches[0].TransactionID)
	assert.Equal(t, lowFirst[1], res.Matches[1].TransactionID)
	for _, m := range res.Matches {
		assert.NotEqual(t, voided.ID, m.TransactionID)
	}
}

func TestBankService_AutoReconcile_Errors(t *testing.T) {
	f := newFixture(t)
	bank := f.bankService(nil, testBankConfig())

	unlinked, err := bank.CreateBankAccount(context.Background(), f.tenant, service.CreateBankAccountInput{Name: "Cash box"})
	require.NoError(t, err)
	assert.Equal(t, "INR", unlinked.Currency)

	_, err = bank.AutoReconcile(context.Background(), f.tenant, f.user, unlinked.ID)
	assert.ErrorIs(t, err, domain.ErrBankAccountNotLinked)

	linked := f.linkedBankAccount(t, bank)
	importCSV(t, f, bank, linked, "Date,Description,Debit,Credit\n2025-03-01,NEFT,,5000\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := bank.AutoReconcile(ctx, f.tenant, f.user, linked.ID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Examined)
}

func TestBankService_ManualReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.bankService(nil, testBankConfig())
	acct := f.linkedBankAccount(t, bank)

	txn := f.post(t, "2025-03-01", "5200", "1010", "5000")
	voided := f.post(t, "2025-03-01", "5200", "1010", "10")
	_, err := f.ledger.VoidTransaction(ctx, f.tenant, f.user, voided.ID)
	require.NoError(t, err)
	importCSV(t, f, bank, acct, "Date,Description,Debit,Credit\n2025-03-01,NEFT,,5000\n")
	rows, _, err := bank.ListBankTransactions(ctx, f.tenant, acct.ID, port.BankTransactionFilter{}, 0, 10)
	require.NoError(t, err)
	row := rows[0]

	_, err = bank.ReconcileTransaction(ctx, f.tenant, f.user, row.ID, voided.ID)
	assert.ErrorIs(t, err, domain.ErrTransactionVoid)

	linked, err := bank.ReconcileTransaction(ctx, f.tenant, f.user, row.ID, txn.ID)
	require.NoError(t, err)
	assert.True(t, linked.IsReconciled)
	assert.NotNil(t, linked.ReconciledAt)

	_, err = bank.ReconcileTransaction(ctx, f.tenant, f.user, row.ID, txn.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyReconciled)

	cleared, err := bank.UnreconcileTransaction(ctx, f.tenant, row.ID)
	require.NoError(t, err)
	assert.False(t, cleared.IsReconciled)
	assert.Nil(t, cleared.TransactionID)

	again, err := bank.UnreconcileTransaction(ctx, f.tenant, row.ID)
	require.NoError(t, err)
	assert.False(t, again.IsReconciled)

	_, err = bank.ReconcileTransaction(ctx, f.tenant, f.user, row.ID, txn.ID)
	assert.NoError(t, err)
}

func TestBankService_SuggestMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.bankService(nil, testBankConfig())
	acct := f.linkedBankAccount(t, bank)

	sameDay := f.post(t, "2025-03-10", "5200", "1010", "5000")
	twoDays := f.post(t, "2025-03-12", "5300", "1010", "5000")
	f.post(t, "2025-03-13", "5400", "1010", "1234")
	f.post(t, "2025-03-20", "5400", "1010", "5000")
	importCSV(t, f, bank, acct, "Date,Description,Debit,Credit\n2025-03-10,NEFT ACME,,5000\n")

	rows, _, err := bank.ListBankTransactions(ctx, f.tenant, acct.ID, port.BankTransactionFilter{}, 0, 10)
	require.NoError(t, err)

	got, err := bank.SuggestMatches(ctx, f.tenant, rows[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sameDay.ID, got[0].Candidate.TransactionID)
	assert.Equal(t, twoDays.ID, got[1].Candidate.TransactionID)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].Score, got[i].Score)
	}
}

func TestBankService_ManualReconcile_OneRowPerTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.bankService(nil, testBankConfig())
	acct := f.linkedBankAccount(t, bank)

	txn := f.post(t, "2025-03-01", "5200", "1010", "5000")
	cashOnly := f.post(t, "2025-03-01", "5200", "1000", "5000")
	importCSV(t, f, bank, acct, "Date,Description,Debit,Credit\n2025-03-01,NEFT rent,5000,\n2025-03-01,NEFT rent again,5000,\n")
	rows, _, err := bank.ListBankTransactions(ctx, f.tenant, acct.ID, port.BankTransactionFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	_, err = bank.ReconcileTransaction(ctx, f.tenant, f.user, rows[0].ID, cashOnly.ID)
	assert.ErrorIs(t, err, domain.ErrReconcileAccountMismatch)

	_, err = bank.ReconcileTransaction(ctx, f.tenant, f.user, rows[0].ID, txn.ID)
	require.NoError(t, err)

	_, err = bank.ReconcileTransaction(ctx, f.tenant, f.user, rows[1].ID, txn.ID)
	assert.ErrorIs(t, err, domain.ErrTransactionMatched)

	_, err = bank.UnreconcileTransaction(ctx, f.tenant, rows[0].ID)
	require.NoError(t, err)
	moved, err := bank.ReconcileTransaction(ctx, f.tenant, f.user, rows[1].ID, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, *moved.TransactionID)
}
