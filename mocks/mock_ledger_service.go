package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"khata/internal/domain"
	"khata/internal/port"
	"khata/internal/service"
)

// MockLedgerService is a mock implementation of service.LedgerService.
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) txn(args mock.Arguments) (*domain.Transaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerService) CreateTransaction(ctx context.Context, tenantID, userID uuid.UUID, input service.CreateTransactionInput) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, tenantID, userID, input))
}

func (m *MockLedgerService) CreateQuickSale(ctx context.Context, tenantID, userID uuid.UUID, input service.QuickSaleInput) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, tenantID, userID, input))
}

func (m *MockLedgerService) CreateQuickExpense(ctx context.Context, tenantID, userID uuid.UUID, input service.QuickExpenseInput) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, tenantID, userID, input))
}

func (m *MockLedgerService) VoidTransaction(ctx context.Context, tenantID, userID, txnID uuid.UUID) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, tenantID, userID, txnID))
}

func (m *MockLedgerService) GetTransaction(ctx context.Context, tenantID, txnID uuid.UUID) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, tenantID, txnID))
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter port.TransactionFilter, offset, limit int) ([]domain.Transaction, int, error) {
	args := m.Called(ctx, tenantID, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), args.Int(1), args.Error(2)
}

func (m *MockLedgerService) GetDailySummary(ctx context.Context, tenantID uuid.UUID, on domain.Date) (*domain.DailySummary, error) {
	args := m.Called(ctx, tenantID, on)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailySummary), args.Error(1)
}

func (m *MockLedgerService) RecalculateBalances(ctx context.Context, tenantID uuid.UUID) ([]domain.BalanceDrift, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BalanceDrift), args.Error(1)
}

func (m *MockLedgerService) ResolveRole(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole) (*domain.Account, error) {
	args := m.Called(ctx, tenantID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
