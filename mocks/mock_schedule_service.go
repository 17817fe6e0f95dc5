package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"khata/internal/domain"
	"khata/internal/service"
)

// MockScheduleService is a mock implementation of service.ScheduleService.
type MockScheduleService struct {
	mock.Mock
}

func (m *MockScheduleService) schedule(args mock.Arguments) (*domain.RecurringSchedule, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecurringSchedule), args.Error(1)
}

func (m *MockScheduleService) batch(args mock.Arguments) (*service.BatchResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockScheduleService) occurrence(args mock.Arguments) (*domain.ScheduleOccurrence, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleOccurrence), args.Error(1)
}

func (m *MockScheduleService) CreateJournalSchedule(ctx context.Context, tenantID, userID uuid.UUID, input service.CreateJournalScheduleInput) (*domain.RecurringSchedule, error) {
	return m.schedule(m.Called(ctx, tenantID, userID, input))
}

func (m *MockScheduleService) CreateInvoiceSchedule(ctx context.Context, tenantID, userID uuid.UUID, input service.CreateInvoiceScheduleInput) (*domain.RecurringSchedule, error) {
	return m.schedule(m.Called(ctx, tenantID, userID, input))
}

func (m *MockScheduleService) GetSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	return m.schedule(m.Called(ctx, tenantID, scheduleID))
}

func (m *MockScheduleService) ListSchedules(ctx context.Context, tenantID uuid.UUID, kind *domain.ScheduleKind, offset, limit int) ([]domain.RecurringSchedule, int, error) {
	args := m.Called(ctx, tenantID, kind, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.RecurringSchedule), args.Int(1), args.Error(2)
}

func (m *MockScheduleService) UpdateSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID, input service.UpdateScheduleInput) (*domain.RecurringSchedule, error) {
	return m.schedule(m.Called(ctx, tenantID, scheduleID, input))
}

func (m *MockScheduleService) PauseSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	return m.schedule(m.Called(ctx, tenantID, scheduleID))
}

func (m *MockScheduleService) ResumeSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	return m.schedule(m.Called(ctx, tenantID, scheduleID))
}

func (m *MockScheduleService) CancelSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	return m.schedule(m.Called(ctx, tenantID, scheduleID))
}

func (m *MockScheduleService) ListOccurrences(ctx context.Context, tenantID, scheduleID uuid.UUID) ([]domain.ScheduleOccurrence, error) {
	args := m.Called(ctx, tenantID, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScheduleOccurrence), args.Error(1)
}

func (m *MockScheduleService) GenerateDueJournals(ctx context.Context, asOf domain.Date) (*service.BatchResult, error) {
	return m.batch(m.Called(ctx, asOf))
}

func (m *MockScheduleService) GenerateDueInvoices(ctx context.Context, asOf domain.Date) (*service.BatchResult, error) {
	return m.batch(m.Called(ctx, asOf))
}

func (m *MockScheduleService) GenerateJournalNow(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.ScheduleOccurrence, error) {
	return m.occurrence(m.Called(ctx, tenantID, scheduleID))
}

func (m *MockScheduleService) GenerateInvoiceNow(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.ScheduleOccurrence, error) {
	return m.occurrence(m.Called(ctx, tenantID, scheduleID))
}
