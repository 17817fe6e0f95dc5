package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"khata/internal/domain"
)

type scheduleRepo struct{ s *Store }

func cloneSchedule(s domain.RecurringSchedule) domain.RecurringSchedule {
	s.Template = s.Template.Clone()
	return s
}

func (r scheduleRepo) Create(ctx context.Context, s *domain.RecurringSchedule) error {
	defer r.s.lock(ctx)()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.s.st.schedules[s.ID] = cloneSchedule(*s)
	return nil
}

func (r scheduleRepo) GetByID(ctx context.Context, tenantID, scheduleID uuid.UUID) (*domain.RecurringSchedule, error) {
	defer r.s.lock(ctx)()
	s, ok := r.s.st.schedules[scheduleID]
	if !ok || s.TenantID != tenantID {
		return nil, domain.ErrScheduleNotFound
	}
	s = cloneSchedule(s)
	return &s, nil
}

func (r scheduleRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, kind *domain.ScheduleKind, offset, limit int) ([]domain.RecurringSchedule, int, error) {
	defer r.s.lock(ctx)()
	var out []domain.RecurringSchedule
	for _, s := range r.s.st.schedules {
		if s.TenantID != tenantID || (kind != nil && s.Kind != *kind) {
			continue
		}
		out = append(out, cloneSchedule(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, offset, limit), len(out), nil
}

func (r scheduleRepo) ListDue(ctx context.Context, kind domain.ScheduleKind, asOf domain.Date, limit int) ([]domain.RecurringSchedule, error) {
	defer r.s.lock(ctx)()
	var out []domain.RecurringSchedule
	for _, s := range r.s.st.schedules {
		if s.Kind == kind && s.Status == domain.ScheduleStatusActive && !s.NextRunDate.After(asOf) {
			out = append(out, cloneSchedule(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].NextRunDate.Compare(out[j].NextRunDate); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r scheduleRepo) Claim(ctx context.Context, s *domain.RecurringSchedule) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.schedules[s.ID]
	if !ok || cur.TenantID != s.TenantID || cur.Version != s.Version || cur.Status != domain.ScheduleStatusActive {
		return domain.ErrScheduleClaimed
	}
	cur.Version++
	cur.UpdatedAt = time.Now().UTC()
	r.s.st.schedules[cur.ID] = cur
	s.Version = cur.Version
	return nil
}

func (r scheduleRepo) Update(ctx context.Context, s *domain.RecurringSchedule) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.schedules[s.ID]
	if !ok || cur.TenantID != s.TenantID || cur.Version != s.Version {
		return domain.ErrScheduleClaimed
	}
	s.UpdatedAt = time.Now().UTC()
	cur.Name = s.Name
	cur.EndDate = s.EndDate
	cur.MaxOccurrences = s.MaxOccurrences
	cur.OccurrenceCount = s.OccurrenceCount
	cur.NextRunDate = s.NextRunDate
	cur.LastRunDate = s.LastRunDate
	cur.Status = s.Status
	cur.LastError = s.LastError
	cur.Version++
	cur.UpdatedAt = s.UpdatedAt
	r.s.st.schedules[cur.ID] = cur
	s.Version = cur.Version
	return nil
}

func (r scheduleRepo) RecordFailure(ctx context.Context, tenantID, scheduleID uuid.UUID, reason string) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.schedules[scheduleID]
	if !ok || cur.TenantID != tenantID {
		return nil
	}
	cur.LastError = &reason
	cur.UpdatedAt = time.Now().UTC()
	r.s.st.schedules[cur.ID] = cur
	return nil
}

func (r scheduleRepo) CreateOccurrence(ctx context.Context, occ *domain.ScheduleOccurrence) error {
	defer r.s.lock(ctx)()
	for _, o := range r.s.st.occurrences {
		if o.ScheduleID == occ.ScheduleID && o.OccurrenceNumber == occ.OccurrenceNumber {
			return domain.ErrScheduleClaimed
		}
	}
	if occ.ID == uuid.Nil {
		occ.ID = uuid.New()
	}
	occ.GeneratedAt = time.Now().UTC()
	r.s.st.occurrences[occ.ID] = *occ
	return nil
}

func (r scheduleRepo) ListOccurrences(ctx context.Context, tenantID, scheduleID uuid.UUID) ([]domain.ScheduleOccurrence, error) {
	defer r.s.lock(ctx)()
	var out []domain.ScheduleOccurrence
	for _, o := range r.s.st.occurrences {
		if o.TenantID == tenantID && o.ScheduleID == scheduleID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurrenceNumber < out[j].OccurrenceNumber })
	return out, nil
}
