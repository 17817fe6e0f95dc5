package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"khata/internal/domain"
	"khata/internal/port"
	"khata/internal/reconcile"
	"khata/internal/service"
)

// MockBankService is a mock implementation of service.BankService.
type MockBankService struct {
	mock.Mock
}

func (m *MockBankService) CreateBankAccount(ctx context.Context, tenantID uuid.UUID, input service.CreateBankAccountInput) (*domain.BankAccount, error) {
	args := m.Called(ctx, tenantID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockBankService) GetBankAccount(ctx context.Context, tenantID, bankAccountID uuid.UUID) (*domain.BankAccount, error) {
	args := m.Called(ctx, tenantID, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}

func (m *MockBankService) ListBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]domain.BankAccount, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BankAccount), args.Error(1)
}

func (m *MockBankService) ListBankTransactions(ctx context.Context, tenantID, bankAccountID uuid.UUID, filter port.BankTransactionFilter, offset, limit int) ([]domain.BankTransaction, int, error) {
	args := m.Called(ctx, tenantID, bankAccountID, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.BankTransaction), args.Int(1), args.Error(2)
}

func (m *MockBankService) ImportBankStatement(ctx context.Context, tenantID, userID, bankAccountID uuid.UUID, input service.ImportStatementInput) (*service.ImportSummary, error) {
	args := m.Called(ctx, tenantID, userID, bankAccountID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportSummary), args.Error(1)
}

func (m *MockBankService) ReconcileTransaction(ctx context.Context, tenantID, userID, bankTxnID, txnID uuid.UUID) (*domain.BankTransaction, error) {
	args := m.Called(ctx, tenantID, userID, bankTxnID, txnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankTransaction), args.Error(1)
}

func (m *MockBankService) UnreconcileTransaction(ctx context.Context, tenantID, bankTxnID uuid.UUID) (*domain.BankTransaction, error) {
	args := m.Called(ctx, tenantID, bankTxnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankTransaction), args.Error(1)
}

func (m *MockBankService) AutoReconcile(ctx context.Context, tenantID, userID, bankAccountID uuid.UUID) (*service.AutoReconcileResult, error) {
	args := m.Called(ctx, tenantID, userID, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AutoReconcileResult), args.Error(1)
}

func (m *MockBankService) SuggestMatches(ctx context.Context, tenantID, bankTxnID uuid.UUID) ([]reconcile.Suggestion, error) {
	args := m.Called(ctx, tenantID, bankTxnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconcile.Suggestion), args.Error(1)
}
