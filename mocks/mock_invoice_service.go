package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"khata/internal/domain"
	"khata/internal/service"
	"khata/internal/totals"
)

// MockInvoiceService is a mock implementation of service.InvoiceService.
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) ComputeTotals(input service.ComputeTotalsInput) (*totals.Result, error) {
	args := m.Called(input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*totals.Result), args.Error(1)
}

func (m *MockInvoiceService) CreateInvoice(ctx context.Context, tenantID, userID uuid.UUID, input service.CreateInvoiceInput) (*domain.Invoice, error) {
	args := m.Called(ctx, tenantID, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) RecordPayment(ctx context.Context, tenantID, userID, invoiceID uuid.UUID, input service.RecordPaymentInput) (*domain.Invoice, *domain.Transaction, error) {
	args := m.Called(ctx, tenantID, userID, invoiceID, input)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Invoice), args.Get(1).(*domain.Transaction), args.Error(2)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, kind *domain.DocumentKind, offset, limit int) ([]domain.Invoice, int, error) {
	args := m.Called(ctx, tenantID, kind, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Invoice), args.Int(1), args.Error(2)
}
