package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/chart"
	"khata/internal/domain"
	"khata/internal/logging"
	"khata/internal/port"
)

// CreateAccountInput is the DTO for creating an account.
type CreateAccountInput struct {
	Code           string             `json:"code" binding:"required,max=20"`
	Name           string             `json:"name" binding:"required,max=200"`
	Type           domain.AccountType `json:"type" binding:"required"`
	SubType        *string            `json:"sub_type"`
	ParentID       *uuid.UUID         `json:"parent_id"`
	OpeningBalance decimal.Decimal    `json:"opening_balance"`
}

// UpdateAccountInput is the DTO for updating an account.
type UpdateAccountInput struct {
	Code     *string    `json:"code"`
	Name     *string    `json:"name"`
	SubType  *string    `json:"sub_type"`
	ParentID *uuid.UUID `json:"parent_id"`
	IsActive *bool      `json:"is_active"`
}

// BootstrapResult reports what BootstrapTenant created.
type BootstrapResult struct {
	AccountsCreated int                     `json:"accounts_created"`
	AccountsExisted int                     `json:"accounts_existed"`
	Mappings        []domain.AccountMapping `json:"mappings"`
}

// AccountService defines the chart-of-accounts contract.
type AccountService interface {
	CreateAccount(ctx context.Context, tenantID uuid.UUID, input CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Account, int, error)
	UpdateAccount(ctx context.Context, tenantID, accountID uuid.UUID, input UpdateAccountInput) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, tenantID, accountID uuid.UUID) error
	BootstrapTenant(ctx context.Context, tenantID uuid.UUID) (*BootstrapResult, error)
	SetMapping(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole, accountID uuid.UUID) (*domain.AccountMapping, error)
	ListMappings(ctx context.Context, tenantID uuid.UUID) ([]domain.AccountMapping, error)
}

type accountService struct {
	tx       port.TxManager
	accounts port.AccountRepository
	mappings port.AccountMappingRepository
	template *chart.Template
}

// NewAccountService creates a new AccountService. template is the chart used
// by BootstrapTenant.
func NewAccountService(
	tx port.TxManager,
	accounts port.AccountRepository,
	mappings port.AccountMappingRepository,
	template *chart.Template,
) AccountService {
	return &accountService{tx: tx, accounts: accounts, mappings: mappings, template: template}
}

func (s *accountService) CreateAccount(ctx context.Context, tenantID uuid.UUID, input CreateAccountInput) (*domain.Account, error) {
	if !domain.ValidAccountTypes[input.Type] {
		return nil, domain.ErrInvalidAccountType
	}
	if input.Code == "" || input.Name == "" {
		return nil, fmt.Errorf("%w: code and name are required", domain.ErrInvalidInput)
	}
	if input.ParentID != nil {
		if _, err := s.accounts.GetByID(ctx, tenantID, *input.ParentID); err != nil {
			return nil, err
		}
	}

	account := &domain.Account{
		TenantID:       tenantID,
		Code:           input.Code,
		Name:           input.Name,
		Type:           input.Type,
		SubType:        input.SubType,
		ParentID:       input.ParentID,
		OpeningBalance: input.OpeningBalance,
		CurrentBalance: input.OpeningBalance,
		IsActive:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetAccount(ctx context.Context, tenantID, accountID uuid.UUID) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, tenantID, accountID)
}

func (s *accountService) ListAccounts(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Account, int, error) {
	return s.accounts.ListByTenant(ctx, tenantID, offset, limit)
}

func (s *accountService) UpdateAccount(ctx context.Context, tenantID, accountID uuid.UUID, input UpdateAccountInput) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsSystem {
		return nil, domain.ErrSystemAccountImmutable
	}

	if input.Code != nil {
		account.Code = *input.Code
	}
	if input.Name != nil {
		account.Name = *input.Name
	}
	if input.SubType != nil {
		account.SubType = input.SubType
	}
	if input.ParentID != nil {
		if *input.ParentID == account.ID {
			return nil, fmt.Errorf("%w: account cannot be its own parent", domain.ErrInvalidInput)
		}
		if _, err := s.accounts.GetByID(ctx, tenantID, *input.ParentID); err != nil {
			return nil, err
		}
		account.ParentID = input.ParentID
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) DeactivateAccount(ctx context.Context, tenantID, accountID uuid.UUID) error {
	account, err := s.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return domain.ErrSystemAccountImmutable
	}
	account.IsActive = false
	return s.accounts.Update(ctx, account)
}

// BootstrapTenant creates the template's accounts that do not exist yet and
// points every template role at its account. Re-running it changes nothing.
func (s *accountService) BootstrapTenant(ctx context.Context, tenantID uuid.UUID) (*BootstrapResult, error) {
	if s.template == nil {
		return nil, fmt.Errorf("%w: no chart template configured", domain.ErrInvalidInput)
	}
	result := &BootstrapResult{}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		*result = BootstrapResult{}
		for _, entry := range s.template.Accounts {
			account, err := s.accounts.GetByCode(ctx, tenantID, entry.Code)
			switch {
			case err == nil:
				result.AccountsExisted++
			case errors.Is(err, domain.ErrAccountNotFound):
				account = &domain.Account{
					TenantID: tenantID,
					Code:     entry.Code,
					Name:     entry.Name,
					Type:     domain.AccountType(entry.Type),
					IsSystem: true,
					IsActive: true,
				}
				if entry.SubType != "" {
					sub := entry.SubType
					account.SubType = &sub
				}
				if err := s.accounts.Create(ctx, account); err != nil {
					return err
				}
				result.AccountsCreated++
			default:
				return err
			}

			if entry.Role == "" {
				continue
			}
			mapping := &domain.AccountMapping{
				TenantID:  tenantID,
				Role:      domain.AccountRole(entry.Role),
				AccountID: account.ID,
			}
			if existing, err := s.mappings.Get(ctx, tenantID, mapping.Role); err == nil {
				// Keep a mapping the tenant has already pointed elsewhere.
				result.Mappings = append(result.Mappings, *existing)
				continue
			}
			if err := s.mappings.Upsert(ctx, mapping); err != nil {
				return err
			}
			result.Mappings = append(result.Mappings, *mapping)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("tenant bootstrapped",
		"tenant_id", tenantID,
		"template", s.template.Name,
		"accounts_created", result.AccountsCreated,
		"accounts_existed", result.AccountsExisted,
	)
	return result, nil
}

func (s *accountService) SetMapping(ctx context.Context, tenantID uuid.UUID, role domain.AccountRole, accountID uuid.UUID) (*domain.AccountMapping, error) {
	if !domain.ValidAccountRoles[role] {
		return nil, domain.ErrInvalidAccountRole
	}
	account, err := s.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, domain.ErrAccountInactive
	}
	mapping := &domain.AccountMapping{TenantID: tenantID, Role: role, AccountID: accountID}
	if err := s.mappings.Upsert(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

func (s *accountService) ListMappings(ctx context.Context, tenantID uuid.UUID) ([]domain.AccountMapping, error) {
	return s.mappings.ListByTenant(ctx, tenantID)
}
