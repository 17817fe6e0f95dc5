package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"khata/internal/domain"
	"khata/internal/port"
)

type scheduleRepo struct {
	db *sqlx.DB
}

// NewScheduleRepo creates a new PostgreSQL-backed ScheduleRepository.
func NewScheduleRepo(db *sqlx.DB) port.ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Create(ctx context.Context, s *domain.RecurringSchedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `INSERT INTO recurring_schedules (
		id, tenant_id, kind, name, frequency, interval_count, start_date, end_date,
		max_occurrences, occurrence_count, next_run_date, last_run_date, status,
		template, version, last_error, created_by, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.TenantID, s.Kind, s.Name, s.Frequency, s.IntervalCount, s.StartDate, s.EndDate,
		s.MaxOccurrences, s.OccurrenceCount, s.NextRunDate, s.LastRunDate, s.Status,
		s.Template, s.Version, s.LastError, s.CreatedBy, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("scheduleRepo.Create: %w", err)
	}
	return nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	var s domain.RecurringSchedule
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &s,
		"SELECT * FROM recurring_schedules WHERE id = $1 AND tenant_id = $2", scheduleID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("scheduleRepo.GetByID: %w", err)
	}
	return &s, nil
}

func (r *scheduleRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, kind *domain.ScheduleKind, offset, limit int) ([]domain.RecurringSchedule, int, error) {
	q := conn(ctx, r.db)
	cond := "tenant_id = $1"
	args := []any{tenantID}
	if kind != nil {
		cond += " AND kind = $2"
		args = append(args, *kind)
	}

	var total int
	if err := sqlx.GetContext(ctx, q, &total, "SELECT COUNT(*) FROM recurring_schedules WHERE "+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("scheduleRepo.ListByTenant count: %w", err)
	}

	query := fmt.Sprintf(`SELECT * FROM recurring_schedules WHERE %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, cond, len(args)+1, len(args)+2)
	var out []domain.RecurringSchedule
	if err := sqlx.SelectContext(ctx, q, &out, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("scheduleRepo.ListByTenant: %w", err)
	}
	return out, total, nil
}

func (r *scheduleRepo) ListDue(ctx context.Context, kind domain.ScheduleKind, asOf domain.Date, limit int) ([]domain.RecurringSchedule, error) {
	var out []domain.RecurringSchedule
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &out,
		`SELECT * FROM recurring_schedules
		 WHERE kind = $1 AND status = $2 AND next_run_date <= $3
		 ORDER BY next_run_date, id LIMIT $4`,
		kind, domain.ScheduleStatusActive, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("scheduleRepo.ListDue: %w", err)
	}
	return out, nil
}

func (r *scheduleRepo) Claim(ctx context.Context, s *domain.RecurringSchedule) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE recurring_schedules SET version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND version = $3 AND status = $4`,
		s.ID, s.TenantID, s.Version, domain.ScheduleStatusActive)
	if err != nil {
		return fmt.Errorf("scheduleRepo.Claim: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrScheduleClaimed
	}
	s.Version++
	return nil
}

func (r *scheduleRepo) Update(ctx context.Context, s *domain.RecurringSchedule) error {
	s.UpdatedAt = time.Now().UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE recurring_schedules SET
			name = $1, end_date = $2, max_occurrences = $3, occurrence_count = $4,
			next_run_date = $5, last_run_date = $6, status = $7, last_error = $8,
			version = version + 1, updated_at = $9
		 WHERE id = $10 AND tenant_id = $11 AND version = $12`,
		s.Name, s.EndDate, s.MaxOccurrences, s.OccurrenceCount,
		s.NextRunDate, s.LastRunDate, s.Status, s.LastError,
		s.UpdatedAt, s.ID, s.TenantID, s.Version)
	if err != nil {
		return fmt.Errorf("scheduleRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrScheduleClaimed
	}
	s.Version++
	return nil
}

func (r *scheduleRepo) RecordFailure(ctx context.Context, tenantID, scheduleID uuid.UUID, reason string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE recurring_schedules SET last_error = $1, updated_at = NOW() WHERE id = $2 AND tenant_id = $3",
		reason, scheduleID, tenantID)
	if err != nil {
		return fmt.Errorf("scheduleRepo.RecordFailure: %w", err)
	}
	return nil
}

func (r *scheduleRepo) CreateOccurrence(ctx context.Context, occ *domain.ScheduleOccurrence) error {
	if occ.ID == uuid.Nil {
		occ.ID = uuid.New()
	}
	occ.GeneratedAt = time.Now().UTC()
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO schedule_occurrences (
			id, tenant_id, schedule_id, occurrence_number, run_date, transaction_id, invoice_id, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		occ.ID, occ.TenantID, occ.ScheduleID, occ.OccurrenceNumber, occ.RunDate, occ.TransactionID,
		occ.InvoiceID, occ.GeneratedAt)
	if err != nil {
		if isDuplicate(err, "schedule_occurrences_number_key") {
			return domain.ErrScheduleClaimed
		}
		return fmt.Errorf("scheduleRepo.CreateOccurrence: %w", err)
	}
	return nil
}

func (r *scheduleRepo) ListOccurrences(ctx context.Context, tenantID, scheduleID uuid.UUID) ([]domain.ScheduleOccurrence, error) {
	var out []domain.ScheduleOccurrence
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &out,
		`SELECT * FROM schedule_occurrences WHERE schedule_id = $1 AND tenant_id = $2
		 ORDER BY occurrence_number`,
		scheduleID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("scheduleRepo.ListOccurrences: %w", err)
	}
	return out, nil
}
