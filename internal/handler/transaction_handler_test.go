package handler_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"khata/internal/domain"
	"khata/internal/handler"
	"khata/internal/port"
	"khata/internal/service"
	"khata/mocks"
)

var handlerToday = domain.MustParseDate("2025-03-15")

func newTransactionHandler() (*handler.TransactionHandler, *mocks.MockLedgerService) {
	mockSvc := new(mocks.MockLedgerService)
	return handler.NewTransactionHandler(mockSvc, func() domain.Date { return handlerToday }), mockSvc
}

func TestTransactionHandler_Create_Success(t *testing.T) {
	h, mockSvc := newTransactionHandler()
	cash, sales := uuid.New(), uuid.New()

	expected := &domain.Transaction{ID: uuid.New(), Number: "JV-00001", Type: domain.TxnTypeJournal}
	mockSvc.On("CreateTransaction", mock.Anything, testTenant, testUser,
		mock.MatchedBy(func(in service.CreateTransactionInput) bool {
			return len(in.Lines) == 2 && in.Lines[0].Debit.Equal(d("100")) && in.Lines[1].AccountID == sales
		})).Return(expected, nil)

	c, w := newContext(http.MethodPost, "/api/v1/transactions", map[string]any{
		"description": "cash sale",
		"lines": []map[string]any{
			{"account_id": cash, "debit": "100"},
			{"account_id": sales, "credit": "100"},
		},
	})
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
	mockSvc.AssertExpectations(t)
}

func TestTransactionHandler_Create_SingleLineRejectedByBinding(t *testing.T) {
	h, mockSvc := newTransactionHandler()

	c, w := newContext(http.MethodPost, "/api/v1/transactions", map[string]any{
		"lines": []map[string]any{{"account_id": uuid.New(), "debit": "100"}},
	})
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransactionHandler_Create_Unbalanced(t *testing.T) {
	h, mockSvc := newTransactionHandler()
	mockSvc.On("CreateTransaction", mock.Anything, testTenant, testUser, mock.Anything).
		Return(nil, domain.ErrUnbalanced)

	c, w := newContext(http.MethodPost, "/api/v1/transactions", map[string]any{
		"lines": []map[string]any{
			{"account_id": uuid.New(), "debit": "100"},
			{"account_id": uuid.New(), "credit": "90"},
		},
	})
	h.Create(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "UNBALANCED", resp.Error.Code)
}

func TestTransactionHandler_Void_AlreadyVoid(t *testing.T) {
	h, mockSvc := newTransactionHandler()
	txnID := uuid.New()
	mockSvc.On("VoidTransaction", mock.Anything, testTenant, testUser, txnID).Return(nil, domain.ErrAlreadyVoid)

	c, w := newContext(http.MethodPost, "/api/v1/transactions/"+txnID.String()+"/void", nil, idParam(txnID))
	h.Void(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTransactionHandler_GetByID_InvalidID(t *testing.T) {
	h, _ := newTransactionHandler()

	c, w := newContext(http.MethodGet, "/api/v1/transactions/abc", nil)
	c.Params = append(c.Params, idParamRaw("abc"))
	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactionHandler_List_Filters(t *testing.T) {
	h, mockSvc := newTransactionHandler()

	mockSvc.On("ListTransactions", mock.Anything, testTenant,
		mock.MatchedBy(func(f port.TransactionFilter) bool {
			return f.Type != nil && *f.Type == domain.TxnTypeSale &&
				f.From != nil && f.From.String() == "2025-03-01" && f.To == nil
		}), 0, 50).Return([]domain.Transaction{{Number: "SAL-00001"}}, 1, nil)

	c, w := newContext(http.MethodGet, "/api/v1/transactions?type=sale&from=2025-03-01&limit=50", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 1, resp.Meta.Total)
	assert.Equal(t, 50, resp.Meta.Limit)
	mockSvc.AssertExpectations(t)
}

func TestTransactionHandler_List_BadQuery(t *testing.T) {
	h, _ := newTransactionHandler()

	for _, target := range []string{
		"/api/v1/transactions?type=gift",
		"/api/v1/transactions?from=15-03-2025",
	} {
		c, w := newContext(http.MethodGet, target, nil)
		h.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestTransactionHandler_DailySummary_DefaultsToToday(t *testing.T) {
	h, mockSvc := newTransactionHandler()
	mockSvc.On("GetDailySummary", mock.Anything, testTenant, handlerToday).
		Return(&domain.DailySummary{Date: handlerToday}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/reports/daily-summary", nil)
	h.DailySummary(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestTransactionHandler_Rebalance(t *testing.T) {
	h, mockSvc := newTransactionHandler()
	mockSvc.On("RecalculateBalances", mock.Anything, testTenant).
		Return([]domain.BalanceDrift{{AccountID: uuid.New()}}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/accounts/rebalance", nil)
	h.Rebalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	assert.EqualValues(t, 1, data["corrected"])
}

func TestTransactionHandler_MissingTenantContext(t *testing.T) {
	h, _ := newTransactionHandler()

	c, w := newContext(http.MethodGet, "/api/v1/transactions", nil)
	c.Keys = nil
	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTransactionHandler_Export_PagesThroughAll(t *testing.T) {
	h, mockSvc := newTransactionHandler()

	first := make([]domain.Transaction, 100)
	for i := range first {
		first[i] = domain.Transaction{Number: "JV", Type: domain.TxnTypeJournal, Status: domain.TxnStatusPosted}
	}
	second := []domain.Transaction{{Number: "SAL-00101", Type: domain.TxnTypeSale, Status: domain.TxnStatusPosted}}

	mockSvc.On("ListTransactions", mock.Anything, testTenant, mock.Anything, 0, 100).Return(first, 101, nil).Once()
	mockSvc.On("ListTransactions", mock.Anything, testTenant, mock.Anything, 100, 100).Return(second, 101, nil).Once()

	c, w := newContext(http.MethodGet, "/api/v1/transactions/export", nil)
	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "daybook_2025-03-15.csv")

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"))
	assert.Equal(t, 102, strings.Count(body, "\n"))
	assert.Contains(t, body, "SAL-00101")
	mockSvc.AssertExpectations(t)
}

func TestTransactionHandler_Export_ErrorBeforeHeaders(t *testing.T) {
	h, mockSvc := newTransactionHandler()
	mockSvc.On("ListTransactions", mock.Anything, testTenant, mock.Anything, 0, 100).
		Return(nil, 0, errors.New("db down"))

	c, w := newContext(http.MethodGet, "/api/v1/transactions/export", nil)
	h.Export(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, decode(t, w).Success)
}
