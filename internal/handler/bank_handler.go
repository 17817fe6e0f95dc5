package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"khata/internal/port"
	"khata/internal/service"
)

// BankHandler handles bank accounts, statement imports and reconciliation.
type BankHandler struct {
	bankService service.BankService
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(bankService service.BankService) *BankHandler {
	return &BankHandler{bankService: bankService}
}

// CreateAccount handles POST /api/v1/bank-accounts
func (h *BankHandler) CreateAccount(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.CreateBankAccountInput
	if !bindJSON(c, &req) {
		return
	}

	acct, err := h.bankService.CreateBankAccount(c.Request.Context(), tenantID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, acct)
}

// ListAccounts handles GET /api/v1/bank-accounts
func (h *BankHandler) ListAccounts(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}

	accounts, err := h.bankService.ListBankAccounts(c.Request.Context(), tenantID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, accounts)
}

// GetAccount handles GET /api/v1/bank-accounts/:id
func (h *BankHandler) GetAccount(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	bankAccountID, ok := parseIDParam(c, "id", "bank account")
	if !ok {
		return
	}

	acct, err := h.bankService.GetBankAccount(c.Request.Context(), tenantID, bankAccountID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, acct)
}

// ImportStatement handles POST /api/v1/bank-accounts/:id/statements (multipart, field "file").
func (h *BankHandler) ImportStatement(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	bankAccountID, ok := parseIDParam(c, "id", "bank account")
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "could not read uploaded file")
		return
	}
	defer f.Close()

	summary, err := h.bankService.ImportBankStatement(c.Request.Context(), tenantID, userID, bankAccountID, service.ImportStatementInput{
		Filename: fh.Filename,
		Body:     f,
		Size:     fh.Size,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, summary)
}

// ListTransactions handles GET /api/v1/bank-accounts/:id/transactions?reconciled=&batch_id=
func (h *BankHandler) ListTransactions(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	bankAccountID, ok := parseIDParam(c, "id", "bank account")
	if !ok {
		return
	}

	var filter port.BankTransactionFilter
	if v := c.Query("reconciled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "reconciled must be true or false")
			return
		}
		filter.Reconciled = &b
	}
	if v := c.Query("batch_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid batch ID")
			return
		}
		filter.BatchID = &id
	}
	offset, limit := parsePagination(c)

	rows, total, err := h.bankService.ListBankTransactions(c.Request.Context(), tenantID, bankAccountID, filter, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, rows, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// AutoReconcile handles POST /api/v1/bank-accounts/:id/auto-reconcile
func (h *BankHandler) AutoReconcile(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	bankAccountID, ok := parseIDParam(c, "id", "bank account")
	if !ok {
		return
	}

	result, err := h.bankService.AutoReconcile(c.Request.Context(), tenantID, userID, bankAccountID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Reconcile handles POST /api/v1/bank-transactions/:id/reconcile
func (h *BankHandler) Reconcile(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	bankTxnID, ok := parseIDParam(c, "id", "bank transaction")
	if !ok {
		return
	}
	var req struct {
		TransactionID uuid.UUID `json:"transaction_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	row, err := h.bankService.ReconcileTransaction(c.Request.Context(), tenantID, userID, bankTxnID, req.TransactionID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, row)
}

// Unreconcile handles DELETE /api/v1/bank-transactions/:id/reconcile
func (h *BankHandler) Unreconcile(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	bankTxnID, ok := parseIDParam(c, "id", "bank transaction")
	if !ok {
		return
	}

	row, err := h.bankService.UnreconcileTransaction(c.Request.Context(), tenantID, bankTxnID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, row)
}

// Suggestions handles GET /api/v1/bank-transactions/:id/suggestions
func (h *BankHandler) Suggestions(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	bankTxnID, ok := parseIDParam(c, "id", "bank transaction")
	if !ok {
		return
	}

	suggestions, err := h.bankService.SuggestMatches(c.Request.Context(), tenantID, bankTxnID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, suggestions)
}
