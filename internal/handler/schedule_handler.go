package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"khata/internal/domain"
	"khata/internal/service"
)

// ScheduleHandler handles recurring journal and invoice schedules.
type ScheduleHandler struct {
	scheduleService service.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// CreateJournal handles POST /api/v1/schedules/journals
func (h *ScheduleHandler) CreateJournal(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.CreateJournalScheduleInput
	if !bindJSON(c, &req) {
		return
	}

	sched, err := h.scheduleService.CreateJournalSchedule(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, sched)
}

// CreateInvoice handles POST /api/v1/schedules/invoices
func (h *ScheduleHandler) CreateInvoice(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.CreateInvoiceScheduleInput
	if !bindJSON(c, &req) {
		return
	}

	sched, err := h.scheduleService.CreateInvoiceSchedule(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, sched)
}

// List handles GET /api/v1/schedules?kind=
func (h *ScheduleHandler) List(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}

	var kind *domain.ScheduleKind
	switch k := domain.ScheduleKind(c.Query("kind")); k {
	case "":
	case domain.ScheduleKindJournal, domain.ScheduleKindInvoice:
		kind = &k
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_SCHEDULE_KIND", "kind must be journal or invoice")
		return
	}
	offset, limit := parsePagination(c)

	schedules, total, err := h.scheduleService.ListSchedules(c.Request.Context(), tenantID, kind, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, schedules, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/schedules/:id
func (h *ScheduleHandler) GetByID(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id", "schedule")
	if !ok {
		return
	}

	sched, err := h.scheduleService.GetSchedule(c.Request.Context(), tenantID, scheduleID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sched)
}

// Update handles PATCH /api/v1/schedules/:id
func (h *ScheduleHandler) Update(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id", "schedule")
	if !ok {
		return
	}
	var req service.UpdateScheduleInput
	if !bindJSON(c, &req) {
		return
	}

	sched, err := h.scheduleService.UpdateSchedule(c.Request.Context(), tenantID, scheduleID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sched)
}

// Pause handles POST /api/v1/schedules/:id/pause
func (h *ScheduleHandler) Pause(c *gin.Context) {
	h.transition(c, h.scheduleService.PauseSchedule)
}

// Resume handles POST /api/v1/schedules/:id/resume
func (h *ScheduleHandler) Resume(c *gin.Context) {
	h.transition(c, h.scheduleService.ResumeSchedule)
}

// Cancel handles POST /api/v1/schedules/:id/cancel
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	h.transition(c, h.scheduleService.CancelSchedule)
}

func (h *ScheduleHandler) transition(
	c *gin.Context,
	fn func(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error),
) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id", "schedule")
	if !ok {
		return
	}

	sched, err := fn(c.Request.Context(), tenantID, scheduleID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sched)
}

// ListOccurrences handles GET /api/v1/schedules/:id/occurrences
func (h *ScheduleHandler) ListOccurrences(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id", "schedule")
	if !ok {
		return
	}

	occurrences, err := h.scheduleService.ListOccurrences(c.Request.Context(), tenantID, scheduleID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, occurrences)
}

// GenerateNow handles POST /api/v1/schedules/:id/generate
func (h *ScheduleHandler) GenerateNow(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	scheduleID, ok := parseIDParam(c, "id", "schedule")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	sched, err := h.scheduleService.GetSchedule(ctx, tenantID, scheduleID)
	if err != nil {
		HandleError(c, err)
		return
	}

	var occ *domain.ScheduleOccurrence
	if sched.Kind == domain.ScheduleKindInvoice {
		occ, err = h.scheduleService.GenerateInvoiceNow(ctx, tenantID, scheduleID)
	} else {
		occ, err = h.scheduleService.GenerateJournalNow(ctx, tenantID, scheduleID)
	}
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, occ)
}
