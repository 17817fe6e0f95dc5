package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"khata/internal/domain"
	"khata/internal/port"
)

type accountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo creates a new PostgreSQL-backed AccountRepository.
func NewAccountRepo(db *sqlx.DB) port.AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `INSERT INTO accounts (
		id, tenant_id, code, name, type, sub_type, parent_id,
		opening_balance, current_balance, is_system, is_active, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		account.ID, account.TenantID, account.Code, account.Name, account.Type, account.SubType, account.ParentID,
		account.OpeningBalance, account.CurrentBalance, account.IsSystem, account.IsActive,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if isDuplicate(err, "accounts_tenant_code_key") {
			return domain.ErrDuplicateAccountCode
		}
		return fmt.Errorf("accountRepo.Create: %w", err)
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, tenantID, accountID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &account,
		"SELECT * FROM accounts WHERE id = $1 AND tenant_id = $2", accountID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("accountRepo.GetByID: %w", err)
	}
	return &account, nil
}

func (r *accountRepo) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*domain.Account, error) {
	var account domain.Account
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &account,
		"SELECT * FROM accounts WHERE tenant_id = $1 AND code = $2", tenantID, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("accountRepo.GetByCode: %w", err)
	}
	return &account, nil
}

func (r *accountRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Account, int, error) {
	q := conn(ctx, r.db)

	var total int
	err := sqlx.GetContext(ctx, q, &total, "SELECT COUNT(*) FROM accounts WHERE tenant_id = $1", tenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("accountRepo.ListByTenant count: %w", err)
	}

	var accounts []domain.Account
	err = sqlx.SelectContext(ctx, q, &accounts,
		"SELECT * FROM accounts WHERE tenant_id = $1 ORDER BY code LIMIT $2 OFFSET $3",
		tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("accountRepo.ListByTenant: %w", err)
	}
	return accounts, total, nil
}

func (r *accountRepo) Update(ctx context.Context, account *domain.Account) error {
	account.UpdatedAt = time.Now().UTC()
	query := `UPDATE accounts SET code = $1, name = $2, sub_type = $3, parent_id = $4,
		is_active = $5, updated_at = $6
		WHERE id = $7 AND tenant_id = $8`
	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		account.Code, account.Name, account.SubType, account.ParentID,
		account.IsActive, account.UpdatedAt, account.ID, account.TenantID)
	if err != nil {
		if isDuplicate(err, "accounts_tenant_code_key") {
			return domain.ErrDuplicateAccountCode
		}
		return fmt.Errorf("accountRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepo) ApplyBalanceDelta(ctx context.Context, tenantID, accountID uuid.UUID, delta decimal.Decimal) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE accounts SET current_balance = current_balance + $1, updated_at = NOW()
		 WHERE id = $2 AND tenant_id = $3`,
		delta, accountID, tenantID)
	if err != nil {
		return fmt.Errorf("accountRepo.ApplyBalanceDelta: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepo) SetBalance(ctx context.Context, tenantID, accountID uuid.UUID, balance decimal.Decimal) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE accounts SET current_balance = $1, updated_at = NOW() WHERE id = $2 AND tenant_id = $3",
		balance, accountID, tenantID)
	if err != nil {
		return fmt.Errorf("accountRepo.SetBalance: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

type accountMappingRepo struct {
	db *sqlx.DB
}

// NewAccountMappingRepo creates a new PostgreSQL-backed AccountMappingRepository.
func NewAccountMappingRepo(db *sqlx.DB) port.AccountMappingRepository {
	return &accountMappingRepo{db: db}
}

func (r *accountMappingRepo) Upsert(ctx context.Context, mapping *domain.AccountMapping) error {
	mapping.UpdatedAt = time.Now().UTC()
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO account_mappings (tenant_id, role, account_id, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, role) DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = EXCLUDED.updated_at`,
		mapping.TenantID, mapping.Role, mapping.AccountID, mapping.UpdatedAt)
	if err != nil {
		return fmt.Errorf("accountMappingRepo.Upsert: %w", err)
	}
	return nil
}

func (r *accountMappingRepo) Get(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole) (*domain.AccountMapping, error) {
	var m domain.AccountMapping
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &m,
		"SELECT * FROM account_mappings WHERE tenant_id = $1 AND role = $2", tenantID, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("accountMappingRepo.Get: %w", err)
	}
	return &m, nil
}

func (r *accountMappingRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.AccountMapping, error) {
	var mappings []domain.AccountMapping
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &mappings,
		"SELECT * FROM account_mappings WHERE tenant_id = $1 ORDER BY role", tenantID)
	if err != nil {
		return nil, fmt.Errorf("accountMappingRepo.ListByTenant: %w", err)
	}
	return mappings, nil
}

type sequenceRepo struct {
	db *sqlx.DB
}

// NewSequenceRepo creates a new PostgreSQL-backed SequenceRepository.
func NewSequenceRepo(db *sqlx.DB) port.SequenceRepository {
	return &sequenceRepo{db: db}
}

func (r *sequenceRepo) Next(ctx context.Context, tenantID uuid.UUID, scope string) (int64, error) {
	var next int64
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &next,
		`INSERT INTO sequence_counters (tenant_id, scope, last_value) VALUES ($1, $2, 1)
		 ON CONFLICT (tenant_id, scope) DO UPDATE SET last_value = sequence_counters.last_value + 1
		 RETURNING last_value`,
		tenantID, scope)
	if err != nil {
		return 0, fmt.Errorf("sequenceRepo.Next: %w", err)
	}
	return next, nil
}
