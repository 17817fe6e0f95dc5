package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/domain"
)

type accountRepo struct{ s *Store }

func (r accountRepo) Create(ctx context.Context, account *domain.Account) error {
	defer r.s.lock(ctx)()
	for _, a := range r.s.st.accounts {
		if a.TenantID == account.TenantID && a.Code == account.Code {
			return domain.ErrDuplicateAccountCode
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.s.st.accounts[account.ID] = *account
	return nil
}

func (r accountRepo) GetByID(ctx context.Context, tenantID, accountID uuid.UUID) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.st.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (r accountRepo) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	for _, a := range r.s.st.accounts {
		if a.TenantID == tenantID && a.Code == code {
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r accountRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Account, int, error) {
	defer r.s.lock(ctx)()
	var out []domain.Account
	for _, a := range r.s.st.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, offset, limit), len(out), nil
}

func (r accountRepo) Update(ctx context.Context, account *domain.Account) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.st.accounts[account.ID]
	if !ok || cur.TenantID != account.TenantID {
		return domain.ErrAccountNotFound
	}
	for _, a := range r.s.st.accounts {
		if a.ID != account.ID && a.TenantID == account.TenantID && a.Code == account.Code {
			return domain.ErrDuplicateAccountCode
		}
	}
	account.UpdatedAt = time.Now().UTC()
	cur.Code = account.Code
	cur.Name = account.Name
	cur.SubType = account.SubType
	cur.ParentID = account.ParentID
	cur.IsActive = account.IsActive
	cur.UpdatedAt = account.UpdatedAt
	r.s.st.accounts[cur.ID] = cur
	return nil
}

func (r accountRepo) ApplyBalanceDelta(ctx context.Context, tenantID, accountID uuid.UUID, delta decimal.Decimal) error {
	defer r.s.lock(ctx)()
	a, ok := r.s.st.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return domain.ErrAccountNotFound
	}
	a.CurrentBalance = a.CurrentBalance.Add(delta)
	a.UpdatedAt = time.Now().UTC()
	r.s.st.accounts[accountID] = a
	return nil
}

func (r accountRepo) SetBalance(ctx context.Context, tenantID, accountID uuid.UUID, balance decimal.Decimal) error {
	defer r.s.lock(ctx)()
	a, ok := r.s.st.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return domain.ErrAccountNotFound
	}
	a.CurrentBalance = balance
	a.UpdatedAt = time.Now().UTC()
	r.s.st.accounts[accountID] = a
	return nil
}

type mappingRepo struct{ s *Store }

func (r mappingRepo) Upsert(ctx context.Context, mapping *domain.AccountMapping) error {
	defer r.s.lock(ctx)()
	mapping.UpdatedAt = time.Now().UTC()
	r.s.st.mappings[mappingKey{mapping.TenantID, mapping.Role}] = *mapping
	return nil
}

func (r mappingRepo) Get(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole) (*domain.AccountMapping, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.st.mappings[mappingKey{tenantID, role}]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &m, nil
}

func (r mappingRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.AccountMapping, error) {
	defer r.s.lock(ctx)()
	var out []domain.AccountMapping
	for k, m := range r.s.st.mappings {
		if k.tenant == tenantID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

type sequenceRepo struct{ s *Store }

func (r sequenceRepo) Next(ctx context.Context, tenantID uuid.UUID, scope string) (int64, error) {
	defer r.s.lock(ctx)()
	k := sequenceKey{tenantID, scope}
	r.s.st.sequences[k]++
	return r.s.st.sequences[k], nil
}
