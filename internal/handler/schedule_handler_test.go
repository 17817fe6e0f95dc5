package handler_test

import (
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

func newScheduleHandler() (*handler.ScheduleHandler, *mocks.MockScheduleService) {
	mockSvc := new(mocks.MockScheduleService)
	return handler.NewScheduleHandler(mockSvc), mockSvc
}

func TestScheduleHandler_CreateJournal(t *testing.T) {
	h, mockSvc := newScheduleHandler()
	rent, bank := uuid.New(), uuid.New()

	mockSvc.On("CreateJournalSchedule", mock.Anything, testTenant, testUser,
		mock.MatchedBy(func(in service.CreateJournalScheduleInput) bool {
			return in.Frequency == domain.FrequencyMonthly &&
				in.StartDate.String() == "2025-01-31" && len(in.Lines) == 2
		})).Return(&domain.RecurringSchedule{ID: uuid.New()}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/schedules/journals", map[string]any{
		"name":       "Office rent",
		"frequency":  "monthly",
		"start_date": "2025-01-31",
		"lines": []map[string]any{
			{"account_id": rent, "debit": "25000"},
			{"account_id": bank, "credit": "25000"},
		},
	})
	h.CreateJournal(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestScheduleHandler_CreateJournal_InvalidFrequency(t *testing.T) {
	h, mockSvc := newScheduleHandler()
	mockSvc.On("CreateJournalSchedule", mock.Anything, testTenant, testUser, mock.Anything).
		Return(nil, domain.ErrInvalidFrequency)

	c, w := newContext(http.MethodPost, "/api/v1/schedules/journals", map[string]any{
		"name":       "Rent",
		"frequency":  "fortnightly",
		"start_date": "2025-01-01",
		"lines": []map[string]any{
			{"account_id": uuid.New(), "debit": "1"},
			{"account_id": uuid.New(), "credit": "1"},
		},
	})
	h.CreateJournal(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FREQUENCY", decode(t, w).Error.Code)
}

func TestScheduleHandler_Pause_InvalidTransition(t *testing.T) {
	h, mockSvc := newScheduleHandler()
	id := uuid.New()
	mockSvc.On("PauseSchedule", mock.Anything, testTenant, id).Return(nil, domain.ErrInvalidScheduleTransition)

	c, w := newContext(http.MethodPost, "/api/v1/schedules/"+id.String()+"/pause", nil, idParam(id))
	h.Pause(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScheduleHandler_Resume(t *testing.T) {
	h, mockSvc := newScheduleHandler()
	id := uuid.New()
	mockSvc.On("ResumeSchedule", mock.Anything, testTenant, id).
		Return(&domain.RecurringSchedule{ID: id, Status: domain.ScheduleStatusActive}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/schedules/"+id.String()+"/resume", nil, idParam(id))
	h.Resume(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestScheduleHandler_GenerateNow_DispatchesByKind(t *testing.T) {
	tests := []struct {
		kind   domain.ScheduleKind
		method string
	}{
		{domain.ScheduleKindJournal, "GenerateJournalNow"},
		{domain.ScheduleKindInvoice, "GenerateInvoiceNow"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			h, mockSvc := newScheduleHandler()
			id := uuid.New()
			mockSvc.On("GetSchedule", mock.Anything, testTenant, id).
				Return(&domain.RecurringSchedule{ID: id, Kind: tt.kind}, nil)
			mockSvc.On(tt.method, mock.Anything, testTenant, id).
				Return(&domain.ScheduleOccurrence{ScheduleID: id}, nil)

			c, w := newContext(http.MethodPost, "/api/v1/schedules/"+id.String()+"/generate", nil, idParam(id))
			h.GenerateNow(c)

			assert.Equal(t, http.StatusCreated, w.Code)
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestScheduleHandler_GenerateNow_NotActive(t *testing.T) {
	h, mockSvc := newScheduleHandler()
	id := uuid.New()
	mockSvc.On("GetSchedule", mock.Anything, testTenant, id).
		Return(&domain.RecurringSchedule{ID: id, Kind: domain.ScheduleKindJournal}, nil)
	mockSvc.On("GenerateJournalNow", mock.Anything, testTenant, id).Return(nil, domain.ErrScheduleNotActive)

	c, w := newContext(http.MethodPost, "/api/v1/schedules/"+id.String()+"/generate", nil, idParam(id))
	h.GenerateNow(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScheduleHandler_List_InvalidKind(t *testing.T) {
	h, _ := newScheduleHandler()

	c, w := newContext(http.MethodGet, "/api/v1/schedules?kind=weekly", nil)
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandler_GetByID_NotFound(t *testing.T) {
	h, mockSvc := newScheduleHandler()
	id := uuid.New()
	mockSvc.On("GetSchedule", mock.Anything, testTenant, id).Return(nil, domain.ErrScheduleNotFound)

	c, w := newContext(http.MethodGet, "/api/v1/schedules/"+id.String(), nil, idParam(id))
	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
