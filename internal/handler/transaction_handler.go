package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"khata/internal/csvexport"
	"khata/internal/domain"
	"khata/internal/logging"
	"khata/internal/port"
	"khata/internal/service"
)

// TransactionHandler handles ledger posting endpoints.
type TransactionHandler struct {
	ledgerService service.LedgerService
	today         service.Clock
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerService service.LedgerService, today service.Clock) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService, today: today}
}

// Create handles POST /api/v1/transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.CreateTransactionInput
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.ledgerService.CreateTransaction(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, txn)
}

// QuickSale handles POST /api/v1/transactions/quick-sale
func (h *TransactionHandler) QuickSale(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.QuickSaleInput
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.ledgerService.CreateQuickSale(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, txn)
}

// QuickExpense handles POST /api/v1/transactions/quick-expense
func (h *TransactionHandler) QuickExpense(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.QuickExpenseInput
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.ledgerService.CreateQuickExpense(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, txn)
}

// Void handles POST /api/v1/transactions/:id/void
func (h *TransactionHandler) Void(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	txnID, ok := parseIDParam(c, "id", "transaction")
	if !ok {
		return
	}

	txn, err := h.ledgerService.VoidTransaction(c.Request.Context(), tenantID, userID, txnID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, txn)
}

// GetByID handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetByID(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	txnID, ok := parseIDParam(c, "id", "transaction")
	if !ok {
		return
	}

	txn, err := h.ledgerService.GetTransaction(c.Request.Context(), tenantID, txnID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, txn)
}

// List handles GET /api/v1/transactions?type=&status=&from=&to=
func (h *TransactionHandler) List(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	filter, ok := parseTransactionFilter(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	txns, total, err := h.ledgerService.ListTransactions(c.Request.Context(), tenantID, filter, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, txns, PagMeta{Total: total, Offset: offset, Limit: limit})
}

const exportPageSize = 100

// Export handles GET /api/v1/transactions/export, streaming the filtered day
// book as CSV.
func (h *TransactionHandler) Export(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	filter, ok := parseTransactionFilter(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// Fetch the first page before writing headers so errors still get a JSON envelope.
	txns, total, err := h.ledgerService.ListTransactions(ctx, tenantID, filter, 0, exportPageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+csvexport.BuildFilename("daybook", h.today())+`"`)
	c.Status(http.StatusOK)
	_, _ = c.Writer.Write(csvexport.BOM)

	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	for offset := 0; ; {
		if err := w.WriteTransactions(txns); err != nil {
			break
		}
		offset += len(txns)
		if offset >= total || len(txns) == 0 {
			break
		}
		txns, _, err = h.ledgerService.ListTransactions(ctx, tenantID, filter, offset, exportPageSize)
		if err != nil {
			logging.FromContext(ctx).Error("day book export aborted", slog.Int("offset", offset), slog.String("error", err.Error()))
			break
		}
	}
	w.Flush()
}

func parseTransactionFilter(c *gin.Context) (port.TransactionFilter, bool) {
	var filter port.TransactionFilter
	if v := c.Query("type"); v != "" {
		t := domain.TxnType(v)
		if _, known := domain.TxnNumberPrefix[t]; !known {
			RespondError(c, http.StatusBadRequest, "INVALID_TXN_TYPE", "unknown transaction type")
			return filter, false
		}
		filter.Type = &t
	}
	if v := c.Query("status"); v != "" {
		st := domain.TxnStatus(v)
		if st != domain.TxnStatusPosted && st != domain.TxnStatusVoid {
			RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "status must be posted or void")
			return filter, false
		}
		filter.Status = &st
	}
	var ok bool
	if filter.From, ok = parseDateQuery(c, "from"); !ok {
		return filter, false
	}
	if filter.To, ok = parseDateQuery(c, "to"); !ok {
		return filter, false
	}
	return filter, true
}

// DailySummary handles GET /api/v1/reports/daily-summary?date=
func (h *TransactionHandler) DailySummary(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	on, ok := parseDateQuery(c, "date")
	if !ok {
		return
	}
	day := h.today()
	if on != nil {
		day = *on
	}

	summary, err := h.ledgerService.GetDailySummary(c.Request.Context(), tenantID, day)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, summary)
}

// Rebalance handles POST /api/v1/accounts/rebalance
func (h *TransactionHandler) Rebalance(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}

	drifts, err := h.ledgerService.RecalculateBalances(c.Request.Context(), tenantID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"corrected": len(drifts), "drifts": drifts})
}
