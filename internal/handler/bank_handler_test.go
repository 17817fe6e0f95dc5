package handler_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"khata/internal/domain"
	"khata/internal/handler"
	"khata/internal/middleware"
	"khata/internal/port"
	"khata/internal/reconcile"
	"khata/internal/service"
	"khata/mocks"
)

func newBankHandler() (*handler.BankHandler, *mocks.MockBankService) {
	mockSvc := new(mocks.MockBankService)
	return handler.NewBankHandler(mockSvc), mockSvc
}

func multipartContext(t *testing.T, bankAccountID uuid.UUID, filename, content string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/bank-accounts/"+bankAccountID.String()+"/statements", &buf)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())
	c.Params = gin.Params{idParam(bankAccountID)}
	c.Set(middleware.ContextKeyTenantID, testTenant)
	c.Set(middleware.ContextKeyUserID, testUser)
	return c, w
}

func TestBankHandler_ImportStatement(t *testing.T) {
	h, mockSvc := newBankHandler()
	bankAccountID := uuid.New()
	csv := "Date,Description,Debit,Credit\n2025-03-01,NEFT ACME,,5000\n"

	mockSvc.On("ImportBankStatement", mock.Anything, testTenant, testUser, bankAccountID,
		mock.MatchedBy(func(in service.ImportStatementInput) bool {
			body, _ := io.ReadAll(in.Body)
			return in.Filename == "march.csv" && string(body) == csv && in.Size == int64(len(csv))
		})).Return(&service.ImportSummary{TotalRows: 1, ImportedRows: 1}, nil)

	c, w := multipartContext(t, bankAccountID, "march.csv", csv)
	h.ImportStatement(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestBankHandler_ImportStatement_MissingFile(t *testing.T) {
	h, _ := newBankHandler()
	id := uuid.New()

	c, w := newContext(http.MethodPost, "/api/v1/bank-accounts/"+id.String()+"/statements", nil, idParam(id))
	h.ImportStatement(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", decode(t, w).Error.Code)
}

func TestBankHandler_ImportStatement_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{domain.ErrInvalidFormat, http.StatusUnprocessableEntity},
		{domain.ErrBankAccountNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h, mockSvc := newBankHandler()
			id := uuid.New()
			mockSvc.On("ImportBankStatement", mock.Anything, testTenant, testUser, id, mock.Anything).Return(nil, tt.err)

			c, w := multipartContext(t, id, "s.csv", "x")
			h.ImportStatement(c)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestBankHandler_ListTransactions_Filter(t *testing.T) {
	h, mockSvc := newBankHandler()
	id := uuid.New()
	mockSvc.On("ListBankTransactions", mock.Anything, testTenant, id,
		mock.MatchedBy(func(f port.BankTransactionFilter) bool {
			return f.Reconciled != nil && !*f.Reconciled && f.BatchID == nil
		}), 0, 20).Return([]domain.BankTransaction{}, 0, nil)

	c, w := newContext(http.MethodGet, "/api/v1/bank-accounts/"+id.String()+"/transactions?reconciled=false", nil, idParam(id))
	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestBankHandler_ListTransactions_BadReconciled(t *testing.T) {
	h, _ := newBankHandler()
	id := uuid.New()

	c, w := newContext(http.MethodGet, "/api/v1/bank-accounts/"+id.String()+"/transactions?reconciled=maybe", nil, idParam(id))
	h.ListTransactions(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBankHandler_AutoReconcile_NotLinked(t *testing.T) {
	h, mockSvc := newBankHandler()
	id := uuid.New()
	mockSvc.On("AutoReconcile", mock.Anything, testTenant, testUser, id).Return(nil, domain.ErrBankAccountNotLinked)

	c, w := newContext(http.MethodPost, "/api/v1/bank-accounts/"+id.String()+"/auto-reconcile", nil, idParam(id))
	h.AutoReconcile(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBankHandler_Reconcile(t *testing.T) {
	h, mockSvc := newBankHandler()
	rowID, txnID := uuid.New(), uuid.New()
	mockSvc.On("ReconcileTransaction", mock.Anything, testTenant, testUser, rowID, txnID).
		Return(&domain.BankTransaction{ID: rowID, IsReconciled: true}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/bank-transactions/"+rowID.String()+"/reconcile",
		map[string]any{"transaction_id": txnID}, idParam(rowID))
	h.Reconcile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestBankHandler_Reconcile_AlreadyReconciled(t *testing.T) {
	h, mockSvc := newBankHandler()
	rowID, txnID := uuid.New(), uuid.New()
	mockSvc.On("ReconcileTransaction", mock.Anything, testTenant, testUser, rowID, txnID).
		Return(nil, domain.ErrAlreadyReconciled)

	c, w := newContext(http.MethodPost, "/api/v1/bank-transactions/"+rowID.String()+"/reconcile",
		map[string]any{"transaction_id": txnID}, idParam(rowID))
	h.Reconcile(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBankHandler_Suggestions(t *testing.T) {
	h, mockSvc := newBankHandler()
	rowID := uuid.New()
	mockSvc.On("SuggestMatches", mock.Anything, testTenant, rowID).
		Return([]reconcile.Suggestion{{Score: 100}, {Score: 80}}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/bank-transactions/"+rowID.String()+"/suggestions", nil, idParam(rowID))
	h.Suggestions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).Data, 2)
}
