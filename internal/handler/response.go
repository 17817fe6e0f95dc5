package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"khata/internal/domain"
	"khata/internal/logging"
	"khata/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Specific errors come before the generic ones they wrap.
var errorMappings = []errorMapping{
	{domain.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	{domain.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_NOT_FOUND"},
	{domain.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND"},
	{domain.ErrScheduleNotFound, http.StatusNotFound, "SCHEDULE_NOT_FOUND"},
	{domain.ErrBankAccountNotFound, http.StatusNotFound, "BANK_ACCOUNT_NOT_FOUND"},
	{domain.ErrBankTransactionNotFound, http.StatusNotFound, "BANK_TRANSACTION_NOT_FOUND"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},

	{domain.ErrAlreadyVoid, http.StatusConflict, "ALREADY_VOID"},
	{domain.ErrTransactionVoid, http.StatusConflict, "TRANSACTION_VOID"},
	{domain.ErrAlreadyReconciled, http.StatusConflict, "ALREADY_RECONCILED"},
	{domain.ErrTransactionMatched, http.StatusConflict, "TRANSACTION_ALREADY_MATCHED"},
	{domain.ErrTransactionLinked, http.StatusConflict, "TRANSACTION_LINKED"},
	{domain.ErrSystemAccountImmutable, http.StatusConflict, "SYSTEM_ACCOUNT_IMMUTABLE"},
	{domain.ErrDuplicateAccountCode, http.StatusConflict, "DUPLICATE_ACCOUNT_CODE"},
	{domain.ErrScheduleNotActive, http.StatusConflict, "SCHEDULE_NOT_ACTIVE"},
	{domain.ErrScheduleClaimed, http.StatusConflict, "SCHEDULE_CLAIMED"},
	{domain.ErrInvalidScheduleTransition, http.StatusConflict, "INVALID_SCHEDULE_TRANSITION"},

	{domain.ErrUnbalanced, http.StatusUnprocessableEntity, "UNBALANCED"},
	{domain.ErrAccountInactive, http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE"},
	{domain.ErrBankAccountNotLinked, http.StatusUnprocessableEntity, "BANK_ACCOUNT_NOT_LINKED"},
	{domain.ErrReconcileAccountMismatch, http.StatusUnprocessableEntity, "RECONCILE_ACCOUNT_MISMATCH"},
	{domain.ErrInvalidFormat, http.StatusUnprocessableEntity, "INVALID_STATEMENT_FORMAT"},

	{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{domain.ErrInvalidLine, http.StatusBadRequest, "INVALID_LINE"},
	{domain.ErrInvalidTxnType, http.StatusBadRequest, "INVALID_TXN_TYPE"},
	{domain.ErrInvalidPaymentMode, http.StatusBadRequest, "INVALID_PAYMENT_MODE"},
	{domain.ErrInvalidAccountType, http.StatusBadRequest, "INVALID_ACCOUNT_TYPE"},
	{domain.ErrInvalidAccountRole, http.StatusBadRequest, "INVALID_ACCOUNT_ROLE"},
	{domain.ErrGSTComponentConflict, http.StatusBadRequest, "GST_COMPONENT_CONFLICT"},
	{domain.ErrInvalidDocumentKind, http.StatusBadRequest, "INVALID_DOCUMENT_KIND"},
	{domain.ErrInvalidFrequency, http.StatusBadRequest, "INVALID_FREQUENCY"},
	{domain.ErrInvalidSchedule, http.StatusBadRequest, "INVALID_SCHEDULE"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},

	{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	{domain.ErrStorageMissing, http.StatusServiceUnavailable, "STORAGE_NOT_CONFIGURED"},
	{domain.ErrUploadFailed, http.StatusInternalServerError, "UPLOAD_FAILED"},
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// The message is the sentinel's own text.
func MapDomainError(err error) (status int, code, msg string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code, m.err.Error()
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("internal error", slog.String("error", err.Error()))
	}
	RespondError(c, status, code, msg)
}

// requestContext extracts tenant and user ids set by middleware.TenantContext.
// Returns false if they are missing (error response already written).
func requestContext(c *gin.Context) (tenantID, userID uuid.UUID, ok bool) {
	var err error
	tenantID, err = middleware.GetTenantID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing tenant context")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = middleware.GetUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, userID, true
}

func parseIDParam(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter.
func parseDateQuery(c *gin.Context, name string) (*domain.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_DATE", name+" must be YYYY-MM-DD")
		return nil, false
	}
	return &d, true
}
