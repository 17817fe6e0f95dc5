package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"khata/internal/domain"
	"khata/internal/service"
)

// AccountHandler handles chart-of-accounts endpoints.
type AccountHandler struct {
	accountService service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// Create handles POST /api/v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.CreateAccountInput
	if !bindJSON(c, &req) {
		return
	}

	acct, err := h.accountService.CreateAccount(c.Request.Context(), tenantID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, acct)
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	accounts, total, err := h.accountService.ListAccounts(c.Request.Context(), tenantID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, accounts, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetByID(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c, "id", "account")
	if !ok {
		return
	}

	acct, err := h.accountService.GetAccount(c.Request.Context(), tenantID, accountID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, acct)
}

// Update handles PUT /api/v1/accounts/:id
func (h *AccountHandler) Update(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c, "id", "account")
	if !ok {
		return
	}
	var req service.UpdateAccountInput
	if !bindJSON(c, &req) {
		return
	}

	acct, err := h.accountService.UpdateAccount(c.Request.Context(), tenantID, accountID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, acct)
}

// Deactivate handles DELETE /api/v1/accounts/:id
func (h *AccountHandler) Deactivate(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	accountID, ok := parseIDParam(c, "id", "account")
	if !ok {
		return
	}

	if err := h.accountService.DeactivateAccount(c.Request.Context(), tenantID, accountID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "account deactivated"})
}

// Bootstrap handles POST /api/v1/accounts/bootstrap
func (h *AccountHandler) Bootstrap(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}

	result, err := h.accountService.BootstrapTenant(c.Request.Context(), tenantID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// ListMappings handles GET /api/v1/account-mappings
func (h *AccountHandler) ListMappings(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}

	mappings, err := h.accountService.ListMappings(c.Request.Context(), tenantID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, mappings)
}

// SetMapping handles PUT /api/v1/account-mappings/:role
func (h *AccountHandler) SetMapping(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	var req struct {
		AccountID uuid.UUID `json:"account_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	m, err := h.accountService.SetMapping(c.Request.Context(), tenantID, domain.AccountRole(c.Param("role")), req.AccountID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, m)
}
