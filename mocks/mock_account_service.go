package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"khata/internal/domain"
	"khata/internal/service"
)

// MockAccountService is a mock implementation of service.AccountService.
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, tenantID uuid.UUID, input service.CreateAccountInput) (*domain.Account, error) {
	args := m.Called(ctx, tenantID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Account, int, error) {
	args := m.Called(ctx, tenantID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Account), args.Int(1), args.Error(2)
}

func (m *MockAccountService) UpdateAccount(ctx context.Context, tenantID, accountID uuid.UUID, input service.UpdateAccountInput) (*domain.Account, error) {
	args := m.Called(ctx, tenantID, accountID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) DeactivateAccount(ctx context.Context, tenantID, accountID uuid.UUID) error {
	args := m.Called(ctx, tenantID, accountID)
	return args.Error(0)
}

func (m *MockAccountService) BootstrapTenant(ctx context.Context, tenantID uuid.UUID) (*service.BootstrapResult, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BootstrapResult), args.Error(1)
}

func (m *MockAccountService) SetMapping(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole, accountID uuid.UUID) (*domain.AccountMapping, error) {
	args := m.Called(ctx, tenantID, role, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountMapping), args.Error(1)
}

func (m *MockAccountService) ListMappings(ctx context.Context, tenantID uuid.UUID) ([]domain.AccountMapping, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountMapping), args.Error(1)
}
