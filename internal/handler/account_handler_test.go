package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"khata/internal/domain"
	"khata/internal/handler"
	"khata/internal/service"
	"khata/mocks"
)

func newAccountHandler() (*handler.AccountHandler, *mocks.MockAccountService) {
	mockSvc := new(mocks.MockAccountService)
	return handler.NewAccountHandler(mockSvc), mockSvc
}

func TestAccountHandler_Create(t *testing.T) {
	h, mockSvc := newAccountHandler()
	mockSvc.On("CreateAccount", mock.Anything, testTenant,
		mock.MatchedBy(func(in service.CreateAccountInput) bool {
			return in.Code == "1020" && in.Type == domain.AccountTypeAsset && in.OpeningBalance.Equal(d("250"))
		})).Return(&domain.Account{ID: uuid.New(), Code: "1020"}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/accounts", map[string]any{
		"code": "1020", "name": "Petty Cash", "type": "asset", "opening_balance": "250",
	})
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAccountHandler_Create_Duplicate(t *testing.T) {
	h, mockSvc := newAccountHandler()
	mockSvc.On("CreateAccount", mock.Anything, testTenant, mock.Anything).Return(nil, domain.ErrDuplicateAccountCode)

	c, w := newContext(http.MethodPost, "/api/v1/accounts", map[string]any{
		"code": "1000", "name": "Cash again", "type": "asset",
	})
	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAccountHandler_Deactivate_SystemAccount(t *testing.T) {
	h, mockSvc := newAccountHandler()
	id := uuid.New()
	mockSvc.On("DeactivateAccount", mock.Anything, testTenant, id).Return(domain.ErrSystemAccountImmutable)

	c, w := newContext(http.MethodDelete, "/api/v1/accounts/"+id.String(), nil, idParam(id))
	h.Deactivate(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAccountHandler_SetMapping(t *testing.T) {
	h, mockSvc := newAccountHandler()
	acctID := uuid.New()
	mockSvc.On("SetMapping", mock.Anything, testTenant, domain.RoleBank, acctID).
		Return(&domain.AccountMapping{Role: domain.RoleBank, AccountID: acctID}, nil)

	c, w := newContext(http.MethodPut, "/api/v1/account-mappings/bank", map[string]any{"account_id": acctID})
	c.Params = append(c.Params, ginParam("role", "bank"))
	h.SetMapping(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAccountHandler_Bootstrap(t *testing.T) {
	h, mockSvc := newAccountHandler()
	mockSvc.On("BootstrapTenant", mock.Anything, testTenant).
		Return(&service.BootstrapResult{AccountsCreated: 30}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/accounts/bootstrap", nil)
	h.Bootstrap(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler_Readiness(t *testing.T) {
	c, w := newContext(http.MethodGet, "/readyz", nil)
	handler.NewHealthHandler(fakePinger{}).Readiness(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodGet, "/readyz", nil)
	handler.NewHealthHandler(fakePinger{err: errors.New("down")}).Readiness(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newContext(http.MethodGet, "/readyz", nil)
	handler.NewHealthHandler(nil).Readiness(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
