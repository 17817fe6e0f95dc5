package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"khata/internal/domain"
	"khata/internal/logging"
	"khata/internal/metrics"
	"khata/internal/port"
	"khata/internal/recurrence"
	"khata/internal/totals"
)

// Run outcomes, also used as metric labels.
const (
	OutcomeGenerated = "generated"
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// ScheduleTiming is shared by both schedule kinds.
type ScheduleTiming struct {
	Name           string           `json:"name" binding:"required,max=200"`
	Frequency      domain.Frequency `json:"frequency" binding:"required"`
	IntervalCount  int              `json:"interval_count"`
	StartDate      domain.Date      `json:"start_date"`
	EndDate        *domain.Date     `json:"end_date"`
	MaxOccurrences *int             `json:"max_occurrences"`
}

// CreateJournalScheduleInput is the DTO for a recurring journal.
type CreateJournalScheduleInput struct {
	ScheduleTiming
	TxnType     domain.TxnType `json:"txn_type"`
	Description string         `json:"description"`
	Reference   *string        `json:"reference"`
	Lines       []LineInput    `json:"lines" binding:"required,min=2,dive"`
}

// CreateInvoiceScheduleInput is the DTO for a recurring invoice, bill or credit note.
type CreateInvoiceScheduleInput struct {
	ScheduleTiming
	Template domain.InvoiceTemplate `json:"template" binding:"required"`
}

// UpdateScheduleInput changes the mutable fields of a schedule. The template
// never changes after creation.
type UpdateScheduleInput struct {
	Name           *string      `json:"name"`
	EndDate        *domain.Date `json:"end_date"`
	MaxOccurrences *int         `json:"max_occurrences"`
}

// BatchFailure describes one schedule that could not be generated.
type BatchFailure struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Reason     string    `json:"reason"`
}

// BatchResult summarizes one GenerateDue run.
type BatchResult struct {
	Kind      domain.ScheduleKind `json:"kind"`
	AsOf      domain.Date         `json:"as_of"`
	Processed int                 `json:"processed"`
	Generated int                 `json:"generated"`
	Completed int                 `json:"completed"`
	Skipped   int                 `json:"skipped"`
	Failures  []BatchFailure      `json:"failures"`
}

// ScheduleService manages recurring schedules and materializes their
// occurrences into journals and documents.
type ScheduleService interface {
	CreateJournalSchedule(ctx context.Context, tenantID, userID uuid.UUID, input CreateJournalScheduleInput) (*domain.RecurringSchedule, error)
	CreateInvoiceSchedule(ctx context.Context, tenantID, userID uuid.UUID, input CreateInvoiceScheduleInput) (*domain.RecurringSchedule, error)
	GetSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error)
	ListSchedules(ctx context.Context, tenantID uuid.UUID, kind *domain.ScheduleKind, offset, limit int) ([]domain.RecurringSchedule, int, error)
	UpdateSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID, input UpdateScheduleInput) (*domain.RecurringSchedule, error)
	PauseSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error)
	ResumeSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error)
	CancelSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error)
	ListOccurrences(ctx context.Context, tenantID, scheduleID uuid.UUID) ([]domain.ScheduleOccurrence, error)

	GenerateDueJournals(ctx context.Context, asOf domain.Date) (*BatchResult, error)
	GenerateDueInvoices(ctx context.Context, asOf domain.Date) (*BatchResult, error)
	GenerateJournalNow(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.ScheduleOccurrence, error)
	GenerateInvoiceNow(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.ScheduleOccurrence, error)
}

type scheduleService struct {
	tx        port.TxManager
	schedules port.ScheduleRepository
	accounts  port.AccountRepository
	ledger    LedgerService
	invoices  InvoiceService
	today     Clock
	batchSize int
}

// NewScheduleService creates a new ScheduleService. batchSize caps how many
// due schedules one GenerateDue call picks up.
func NewScheduleService(
	tx port.TxManager,
	schedules port.ScheduleRepository,
	accounts port.AccountRepository,
	ledger LedgerService,
	invoices InvoiceService,
	today Clock,
	batchSize int,
) ScheduleService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &scheduleService{
		tx:        tx,
		schedules: schedules,
		accounts:  accounts,
		ledger:    ledger,
		invoices:  invoices,
		today:     today,
		batchSize: batchSize,
	}
}

func (s *scheduleService) CreateJournalSchedule(ctx context.Context, tenantID, userID uuid.UUID, input CreateJournalScheduleInput) (*domain.RecurringSchedule, error) {
	if input.TxnType == "" {
		input.TxnType = domain.TxnTypeJournal
	}
	if _, ok := domain.TxnNumberPrefix[input.TxnType]; !ok {
		return nil, domain.ErrInvalidTxnType
	}
	if _, err := validateLines(input.Lines); err != nil {
		return nil, err
	}
	if err := checkLineAccounts(ctx, s.accounts, tenantID, input.Lines); err != nil {
		return nil, err
	}

	tmpl := domain.ScheduleTemplate{
		TxnType:     input.TxnType,
		Description: input.Description,
		Reference:   input.Reference,
		Lines:       make([]domain.TemplateLine, len(input.Lines)),
	}
	for i, l := range input.Lines {
		tmpl.Lines[i] = domain.TemplateLine{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}
	return s.create(ctx, tenantID, userID, domain.ScheduleKindJournal, input.ScheduleTiming, tmpl)
}

func (s *scheduleService) CreateInvoiceSchedule(ctx context.Context, tenantID, userID uuid.UUID, input CreateInvoiceScheduleInput) (*domain.RecurringSchedule, error) {
	t := input.Template
	if err := validateDocument(t.Kind, t.CounterpartyName, t.Items); err != nil {
		return nil, err
	}
	if t.DueInDays < 0 {
		return nil, fmt.Errorf("%w: due_in_days cannot be negative", domain.ErrInvalidSchedule)
	}
	res, err := totals.Compute(totals.Input{
		Kind:          t.Kind,
		Items:         t.Items,
		DiscountMode:  t.DiscountMode,
		DiscountValue: t.DiscountValue,
		TDSRate:       t.TDSRate,
	})
	if err != nil {
		return nil, err
	}
	if !res.GrandTotal.IsPositive() {
		return nil, fmt.Errorf("%w: grand total must be positive", domain.ErrInvalidAmount)
	}

	tmpl := domain.ScheduleTemplate{Invoice: &t}
	return s.create(ctx, tenantID, userID, domain.ScheduleKindInvoice, input.ScheduleTiming, tmpl.Clone())
}

func (s *scheduleService) create(ctx context.Context, tenantID, userID uuid.UUID, kind domain.ScheduleKind, timing ScheduleTiming, tmpl domain.ScheduleTemplate) (*domain.RecurringSchedule, error) {
	if timing.IntervalCount == 0 {
		timing.IntervalCount = 1
	}
	if timing.StartDate.IsZero() {
		timing.StartDate = s.today()
	}
	if err := validateTiming(timing); err != nil {
		return nil, err
	}

	sched := &domain.RecurringSchedule{
		TenantID:       tenantID,
		Kind:           kind,
		Name:           timing.Name,
		Frequency:      timing.Frequency,
		IntervalCount:  timing.IntervalCount,
		StartDate:      timing.StartDate,
		EndDate:        timing.EndDate,
		MaxOccurrences: timing.MaxOccurrences,
		NextRunDate:    timing.StartDate,
		Status:         domain.ScheduleStatusActive,
		Template:       tmpl,
		CreatedBy:      userID,
	}
	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("schedule created",
		"tenant_id", tenantID, "schedule_id", sched.ID, "kind", kind, "frequency", sched.Frequency)
	return sched, nil
}

func validateTiming(t ScheduleTiming) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidSchedule)
	}
	if !recurrence.ValidFrequency(t.Frequency) {
		return domain.ErrInvalidFrequency
	}
	if t.IntervalCount < 1 {
		return fmt.Errorf("%w: interval_count must be at least 1", domain.ErrInvalidSchedule)
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", domain.ErrInvalidSchedule)
	}
	if t.MaxOccurrences != nil && *t.MaxOccurrences < 1 {
		return fmt.Errorf("%w: max_occurrences must be at least 1", domain.ErrInvalidSchedule)
	}
	return nil
}

func (s *scheduleService) GetSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	return s.schedules.GetByID(ctx, tenantID, scheduleID)
}

func (s *scheduleService) ListSchedules(ctx context.Context, tenantID uuid.UUID, kind *domain.ScheduleKind, offset, limit int) ([]domain.RecurringSchedule, int, error) {
	return s.schedules.ListByTenant(ctx, tenantID, kind, offset, limit)
}

func (s *scheduleService) UpdateSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID, input UpdateScheduleInput) (*domain.RecurringSchedule, error) {
	sched, err := s.schedules.GetByID(ctx, tenantID, scheduleID)
	if err != nil {
		return nil, err
	}
	if sched.Status.IsTerminal() {
		return nil, domain.ErrInvalidScheduleTransition
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidSchedule)
		}
		sched.Name = *input.Name
	}
	if input.EndDate != nil {
		if input.EndDate.Before(sched.StartDate) {
			return nil, fmt.Errorf("%w: end_date is before start_date", domain.ErrInvalidSchedule)
		}
		sched.EndDate = input.EndDate
	}
	if input.MaxOccurrences != nil {
		if *input.MaxOccurrences < 1 {
			return nil, fmt.Errorf("%w: max_occurrences must be at least 1", domain.ErrInvalidSchedule)
		}
		sched.MaxOccurrences = input.MaxOccurrences
	}
	if exhausted(sched) {
		sched.Status = domain.ScheduleStatusCompleted
	}

	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *scheduleService) PauseSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	return s.transition(ctx, tenantID, scheduleID, func(sched *domain.RecurringSchedule) error {
		if sched.Status != domain.ScheduleStatusActive {
			return domain.ErrInvalidScheduleTransition
		}
		sched.Status = domain.ScheduleStatusPaused
		return nil
	})
}

// ResumeSchedule reactivates a paused schedule. Runs missed while paused are
// not backfilled: the next run moves to the first occurrence on or after today.
func (s *scheduleService) ResumeSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	return s.transition(ctx, tenantID, scheduleID, func(sched *domain.RecurringSchedule) error {
		if sched.Status != domain.ScheduleStatusPaused {
			return domain.ErrInvalidScheduleTransition
		}
		if today := s.today(); sched.NextRunDate.Before(today) {
			next, err := recurrence.NextOnOrAfter(sched.StartDate, sched.Frequency, sched.IntervalCount, today)
			if err != nil {
				return err
			}
			sched.NextRunDate = next
		}
		sched.Status = domain.ScheduleStatusActive
		if exhausted(sched) {
			sched.Status = domain.ScheduleStatusCompleted
		}
		return nil
	})
}

func (s *scheduleService) CancelSchedule(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	return s.transition(ctx, tenantID, scheduleID, func(sched *domain.RecurringSchedule) error {
		if sched.Status.IsTerminal() {
			return domain.ErrInvalidScheduleTransition
		}
		sched.Status = domain.ScheduleStatusCancelled
		return nil
	})
}

func (s *scheduleService) transition(ctx context.Context, tenantID, scheduleID uuid.UUID, apply func(*domain.RecurringSchedule) error) (*domain.RecurringSchedule, error) {
	sched, err := s.schedules.GetByID(ctx, tenantID, scheduleID)
	if err != nil {
		return nil, err
	}
	from := sched.Status
	if err := apply(sched); err != nil {
		return nil, err
	}
	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("schedule status changed",
		"tenant_id", tenantID, "schedule_id", scheduleID, "from", from, "to", sched.Status)
	return sched, nil
}

func (s *scheduleService) ListOccurrences(ctx context.Context, tenantID, scheduleID uuid.UUID) ([]domain.ScheduleOccurrence, error) {
	if _, err := s.schedules.GetByID(ctx, tenantID, scheduleID); err != nil {
		return nil, err
	}
	return s.schedules.ListOccurrences(ctx, tenantID, scheduleID)
}

func (s *scheduleService) GenerateDueJournals(ctx context.Context, asOf domain.Date) (*BatchResult, error) {
	return s.generateDue(ctx, domain.ScheduleKindJournal, asOf)
}

func (s *scheduleService) GenerateDueInvoices(ctx context.Context, asOf domain.Date) (*BatchResult, error) {
	return s.generateDue(ctx, domain.ScheduleKindInvoice, asOf)
}

// generateDue runs every due schedule of kind in its own unit of work. One
// failing schedule never affects the others.
func (s *scheduleService) generateDue(ctx context.Context, kind domain.ScheduleKind, asOf domain.Date) (*BatchResult, error) {
	start := time.Now()
	defer func() {
		metrics.ScheduleBatchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	if asOf.IsZero() {
		asOf = s.today()
	}
	due, err := s.schedules.ListDue(ctx, kind, asOf, s.batchSize)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	result := &BatchResult{Kind: kind, AsOf: asOf, Failures: []BatchFailure{}}
	for i := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		sched := &due[i]
		result.Processed++

		outcome, _, err := s.runOnce(ctx, sched, sched.NextRunDate)
		metrics.ScheduleRuns.WithLabelValues(string(kind), outcome).Inc()
		switch outcome {
		case OutcomeGenerated:
			result.Generated++
			if sched.Status == domain.ScheduleStatusCompleted {
				result.Completed++
			}
		case OutcomeCompleted:
			result.Completed++
		case OutcomeSkipped:
			result.Skipped++
		case OutcomeFailed:
			result.Failures = append(result.Failures, BatchFailure{
				ScheduleID: sched.ID,
				TenantID:   sched.TenantID,
				Reason:     err.Error(),
			})
			logger.Warn("schedule generation failed",
				"tenant_id", sched.TenantID, "schedule_id", sched.ID, "kind", kind, "error", err)
		}
	}

	logger.Info("due schedules processed",
		"kind", kind,
		"as_of", asOf.String(),
		"processed", result.Processed,
		"generated", result.Generated,
		"completed", result.Completed,
		"skipped", result.Skipped,
		"failed", len(result.Failures),
	)
	return result, nil
}

func (s *scheduleService) GenerateJournalNow(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.ScheduleOccurrence, error) {
	return s.generateNow(ctx, domain.ScheduleKindJournal, tenantID, scheduleID)
}

func (s *scheduleService) GenerateInvoiceNow(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.ScheduleOccurrence, error) {
	return s.generateNow(ctx, domain.ScheduleKindInvoice, tenantID, scheduleID)
}

// generateNow materializes the next occurrence immediately, dated today. The
// schedule then advances exactly as if the run had happened on its due date.
func (s *scheduleService) generateNow(ctx context.Context, kind domain.ScheduleKind, tenantID, scheduleID uuid.UUID) (*domain.ScheduleOccurrence, error) {
	sched, err := s.schedules.GetByID(ctx, tenantID, scheduleID)
	if err != nil {
		return nil, err
	}
	if sched.Kind != kind {
		return nil, fmt.Errorf("%w: schedule is a %s schedule", domain.ErrInvalidSchedule, sched.Kind)
	}
	if sched.Status != domain.ScheduleStatusActive {
		return nil, domain.ErrScheduleNotActive
	}

	outcome, occ, err := s.runOnce(ctx, sched, s.today())
	metrics.ScheduleRuns.WithLabelValues(string(kind), outcome).Inc()
	switch outcome {
	case OutcomeGenerated:
		return occ, nil
	case OutcomeCompleted:
		return nil, fmt.Errorf("%w: schedule has ended", domain.ErrScheduleNotActive)
	case OutcomeSkipped:
		return nil, domain.ErrScheduleClaimed
	default:
		return nil, err
	}
}

// runOnce claims sched and materializes one occurrence dated runDate in a
// single unit of work. On failure the unit rolls back and the reason is
// recorded on the schedule separately.
func (s *scheduleService) runOnce(ctx context.Context, sched *domain.RecurringSchedule, runDate domain.Date) (string, *domain.ScheduleOccurrence, error) {
	outcome := OutcomeGenerated
	var occ *domain.ScheduleOccurrence

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.schedules.Claim(ctx, sched); err != nil {
			return err
		}

		if exhausted(sched) {
			outcome = OutcomeCompleted
			sched.Status = domain.ScheduleStatusCompleted
			return s.schedules.Update(ctx, sched)
		}

		tmpl := sched.Template.Clone()
		occ = &domain.ScheduleOccurrence{
			TenantID:         sched.TenantID,
			ScheduleID:       sched.ID,
			OccurrenceNumber: sched.OccurrenceCount + 1,
			RunDate:          runDate,
		}
		switch sched.Kind {
		case domain.ScheduleKindJournal:
			txn, err := s.ledger.CreateTransaction(ctx, sched.TenantID, sched.CreatedBy, journalFromTemplate(tmpl, runDate))
			if err != nil {
				return err
			}
			occ.TransactionID = txn.ID
		case domain.ScheduleKindInvoice:
			if tmpl.Invoice == nil {
				return fmt.Errorf("%w: invoice template missing", domain.ErrInvalidSchedule)
			}
			inv, err := s.invoices.CreateInvoice(ctx, sched.TenantID, sched.CreatedBy, invoiceFromTemplate(*tmpl.Invoice, runDate, sched.ID))
			if err != nil {
				return err
			}
			occ.TransactionID = inv.TransactionID
			occ.InvoiceID = &inv.ID
		default:
			return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidSchedule, sched.Kind)
		}
		if err := s.schedules.CreateOccurrence(ctx, occ); err != nil {
			return err
		}

		next, err := recurrence.NextAfter(sched.StartDate, sched.Frequency, sched.IntervalCount, sched.NextRunDate)
		if err != nil {
			return err
		}
		sched.OccurrenceCount++
		sched.LastRunDate = &runDate
		sched.NextRunDate = next
		sched.LastError = nil
		if exhausted(sched) {
			sched.Status = domain.ScheduleStatusCompleted
		}
		return s.schedules.Update(ctx, sched)
	})

	switch {
	case err == nil:
		return outcome, occ, nil
	case errors.Is(err, domain.ErrScheduleClaimed):
		return OutcomeSkipped, nil, err
	default:
		if recErr := s.schedules.RecordFailure(ctx, sched.TenantID, sched.ID, err.Error()); recErr != nil {
			logging.FromContext(ctx).Error("failed to record schedule failure",
				"schedule_id", sched.ID, "error", recErr)
		}
		return OutcomeFailed, nil, err
	}
}

// exhausted reports whether the schedule must not run again.
func exhausted(sched *domain.RecurringSchedule) bool {
	if sched.MaxOccurrences != nil && sched.OccurrenceCount >= *sched.MaxOccurrences {
		return true
	}
	return sched.EndDate != nil && sched.NextRunDate.After(*sched.EndDate)
}

func journalFromTemplate(tmpl domain.ScheduleTemplate, runDate domain.Date) CreateTransactionInput {
	in := CreateTransactionInput{
		Type:        tmpl.TxnType,
		Date:        runDate,
		Reference:   tmpl.Reference,
		Description: tmpl.Description,
		Lines:       make([]LineInput, len(tmpl.Lines)),
	}
	for i, l := range tmpl.Lines {
		in.Lines[i] = LineInput{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}
	return in
}

func invoiceFromTemplate(t domain.InvoiceTemplate, runDate domain.Date, scheduleID uuid.UUID) CreateInvoiceInput {
	in := CreateInvoiceInput{
		Kind:             t.Kind,
		CounterpartyName: t.CounterpartyName,
		CounterpartyRef:  t.CounterpartyRef,
		IssueDate:        runDate,
		Items:            t.Items,
		DiscountMode:     t.DiscountMode,
		DiscountValue:    t.DiscountValue,
		TDSRate:          t.TDSRate,
		Notes:            t.Notes,
		ScheduleID:       &scheduleID,
	}
	if t.DueInDays > 0 {
		due := runDate.AddDays(t.DueInDays)
		in.DueDate = &due
	}
	return in
}
