package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"khata/internal/domain"
	"khata/internal/handler"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
		{fmt.Errorf("txnRepo.Get: %w", domain.ErrTransactionNotFound), http.StatusNotFound, "TRANSACTION_NOT_FOUND"},
		{fmt.Errorf("statement x: %w", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrAlreadyVoid, http.StatusConflict, "ALREADY_VOID"},
		{domain.ErrAlreadyReconciled, http.StatusConflict, "ALREADY_RECONCILED"},
		{domain.ErrTransactionMatched, http.StatusConflict, "TRANSACTION_ALREADY_MATCHED"},
		{domain.ErrTransactionLinked, http.StatusConflict, "TRANSACTION_LINKED"},
		{domain.ErrReconcileAccountMismatch, http.StatusUnprocessableEntity, "RECONCILE_ACCOUNT_MISMATCH"},
		{domain.ErrSystemAccountImmutable, http.StatusConflict, "SYSTEM_ACCOUNT_IMMUTABLE"},
		{domain.ErrScheduleNotActive, http.StatusConflict, "SCHEDULE_NOT_ACTIVE"},
		{domain.ErrScheduleClaimed, http.StatusConflict, "SCHEDULE_CLAIMED"},
		{domain.ErrUnbalanced, http.StatusUnprocessableEntity, "UNBALANCED"},
		{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{domain.ErrGSTComponentConflict, http.StatusBadRequest, "GST_COMPONENT_CONFLICT"},
		{fmt.Errorf("%w: bad header", domain.ErrInvalidFormat), http.StatusUnprocessableEntity, "INVALID_STATEMENT_FORMAT"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code, msg := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestMapDomainError_InternalHidesDetail(t *testing.T) {
	_, _, msg := handler.MapDomainError(errors.New("pq: password authentication failed"))
	assert.Equal(t, "an internal error occurred", msg)
}
