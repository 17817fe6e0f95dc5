package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"khata/internal/domain"
	"khata/internal/service"
)

// InvoiceHandler handles invoice, bill and credit note endpoints.
type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// ComputeTotals handles POST /api/v1/invoices/compute-totals. Nothing is stored.
func (h *InvoiceHandler) ComputeTotals(c *gin.Context) {
	var req service.ComputeTotalsInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.invoiceService.ComputeTotals(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Create handles POST /api/v1/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	var req service.CreateInvoiceInput
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.invoiceService.CreateInvoice(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, inv)
}

// List handles GET /api/v1/invoices?kind=
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}

	var kind *domain.DocumentKind
	if v := c.Query("kind"); v != "" {
		k := domain.DocumentKind(v)
		if _, known := domain.DocumentNumberPrefix[k]; !known {
			RespondError(c, http.StatusBadRequest, "INVALID_DOCUMENT_KIND", "kind must be invoice, bill or credit_note")
			return
		}
		kind = &k
	}
	offset, limit := parsePagination(c)

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), tenantID, kind, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, invoices, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	tenantID, _, ok := requestContext(c)
	if !ok {
		return
	}
	invoiceID, ok := parseIDParam(c, "id", "invoice")
	if !ok {
		return
	}

	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// RecordPayment handles POST /api/v1/invoices/:id/payments
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	tenantID, userID, ok := requestContext(c)
	if !ok {
		return
	}
	invoiceID, ok := parseIDParam(c, "id", "invoice")
	if !ok {
		return
	}
	var req service.RecordPaymentInput
	if !bindJSON(c, &req) {
		return
	}

	inv, txn, err := h.invoiceService.RecordPayment(c.Request.Context(), tenantID, userID, invoiceID, req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, gin.H{"invoice": inv, "transaction": txn})
}
