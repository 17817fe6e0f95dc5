package domain

import "errors"

var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUploadFailed   = errors.New("file upload to storage failed")
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
	ErrStorageMissing = errors.New("object storage is not configured")

	// Chart of accounts
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrDuplicateAccountCode   = errors.New("account code already exists for this tenant")
	ErrSystemAccountImmutable = errors.New("system account cannot be modified")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidAccountRole     = errors.New("invalid account role")

	// Ledger
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUnbalanced          = errors.New("transaction is unbalanced: total debits must equal total credits")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidLine         = errors.New("each line must carry exactly one positive debit or credit")
	ErrAlreadyVoid         = errors.New("transaction is already void")
	ErrTransactionVoid     = errors.New("transaction is void")
	ErrInvalidTxnType      = errors.New("invalid transaction type")
	ErrInvalidPaymentMode  = errors.New("invalid payment mode")
	ErrTransactionLinked   = errors.New("transaction is linked to an invoice and cannot be voided")

	// Documents
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrGSTComponentConflict = errors.New("an item cannot carry CGST/SGST together with IGST")
	ErrInvalidDocumentKind  = errors.New("invalid document kind")

	// Recurrence
	ErrScheduleNotFound          = errors.New("schedule not found")
	ErrInvalidFrequency          = errors.New("invalid recurrence frequency")
	ErrInvalidSchedule           = errors.New("invalid schedule")
	ErrScheduleNotActive         = errors.New("schedule is not active")
	ErrInvalidScheduleTransition = errors.New("schedule status transition not allowed")
	ErrScheduleClaimed           = errors.New("schedule was claimed or modified concurrently")

	// Bank reconciliation
	ErrBankAccountNotFound      = errors.New("bank account not found")
	ErrBankTransactionNotFound  = errors.New("bank transaction not found")
	ErrBankAccountNotLinked     = errors.New("bank account has no linked ledger account")
	ErrAlreadyReconciled        = errors.New("bank transaction is already reconciled")
	ErrInvalidFormat            = errors.New("statement format not recognized: date and description columns are required")
	ErrTransactionMatched       = errors.New("transaction is already matched to another bank transaction")
	ErrReconcileAccountMismatch = errors.New("transaction has no line on the bank account's ledger account")
)
