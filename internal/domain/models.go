package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a node in a tenant's chart of accounts. CurrentBalance is
// debit-positive and only changes when lines are posted or voided.
type Account struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	TenantID       uuid.UUID       `db:"tenant_id" json:"tenant_id"`
	Code           string          `db:"code" json:"code"`
	Name           string          `db:"name" json:"name"`
	Type           AccountType     `db:"type" json:"type"`
	SubType        *string         `db:"sub_type" json:"sub_type,omitempty"`
	ParentID       *uuid.UUID      `db:"parent_id" json:"parent_id,omitempty"`
	OpeningBalance decimal.Decimal `db:"opening_balance" json:"opening_balance"`
	CurrentBalance decimal.Decimal `db:"current_balance" json:"current_balance"`
	IsSystem       bool            `db:"is_system" json:"is_system"`
	IsActive       bool            `db:"is_active" json:"is_active"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// AccountMapping binds a well-known role to one of the tenant's accounts.
type AccountMapping struct {
	TenantID  uuid.UUID   `db:"tenant_id" json:"tenant_id"`
	Role      AccountRole `db:"role" json:"role"`
	AccountID uuid.UUID   `db:"account_id" json:"account_id"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Transaction is a balanced double-entry ledger document.
type Transaction struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	TenantID    uuid.UUID         `db:"tenant_id" json:"tenant_id"`
	Number      string            `db:"number" json:"number"`
	Type        TxnType           `db:"type" json:"type"`
	Date        Date              `db:"txn_date" json:"date"`
	Reference   *string           `db:"reference" json:"reference,omitempty"`
	Description string            `db:"description" json:"description"`
	Status      TxnStatus         `db:"status" json:"status"`
	Subtotal    decimal.Decimal   `db:"subtotal" json:"subtotal"`
	TaxTotal    decimal.Decimal   `db:"tax_total" json:"tax_total"`
	Total       decimal.Decimal   `db:"total" json:"total"`
	CreatedBy   uuid.UUID         `db:"created_by" json:"created_by"`
	VoidedAt    *time.Time        `db:"voided_at" json:"voided_at,omitempty"`
	VoidedBy    *uuid.UUID        `db:"voided_by" json:"voided_by,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
	Lines       []TransactionLine `db:"-" json:"lines"`
}

// TransactionLine belongs to exactly one Transaction. Exactly one of Debit
// and Credit is positive.
type TransactionLine struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	TenantID      uuid.UUID       `db:"tenant_id" json:"-"`
	TransactionID uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	AccountID     uuid.UUID       `db:"account_id" json:"account_id"`
	LineNo        int             `db:"line_no" json:"line_no"`
	Description   string          `db:"description" json:"description,omitempty"`
	Debit         decimal.Decimal `db:"debit" json:"debit"`
	Credit        decimal.Decimal `db:"credit" json:"credit"`
}

// Delta is the line's effect on its account's debit-positive balance.
func (l TransactionLine) Delta() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// TxnTypeSummary aggregates posted transactions of one type.
type TxnTypeSummary struct {
	Type  TxnType         `db:"type" json:"type"`
	Count int             `db:"count" json:"count"`
	Total decimal.Decimal `db:"total" json:"total"`
}

// DailySummary is the per-type roll-up of one day's posted transactions.
type DailySummary struct {
	Date             Date             `json:"date"`
	TransactionCount int              `json:"transaction_count"`
	Total            decimal.Decimal  `json:"total"`
	ByType           []TxnTypeSummary `json:"by_type"`
}

// BalanceDrift reports an account whose stored balance differed from its lines.
type BalanceDrift struct {
	AccountID  uuid.UUID       `json:"account_id"`
	Code       string          `json:"code"`
	Stored     decimal.Decimal `json:"stored"`
	Recomputed decimal.Decimal `json:"recomputed"`
}

// DocumentItem is one line of an invoice, bill, credit note or invoice template.
type DocumentItem struct {
	Description string          `json:"description"`
	HSNCode     string          `json:"hsn_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Discount    decimal.Decimal `json:"discount"`
	CGSTRate    decimal.Decimal `json:"cgst_rate"`
	SGSTRate    decimal.Decimal `json:"sgst_rate"`
	IGSTRate    decimal.Decimal `json:"igst_rate"`
	CessRate    decimal.Decimal `json:"cess_rate"`
}

// HasGSTConflict reports whether the item mixes intra-state and inter-state GST.
func (i DocumentItem) HasGSTConflict() bool {
	intra := i.CGSTRate.IsPositive() || i.SGSTRate.IsPositive()
	return intra && i.IGSTRate.IsPositive()
}

// DocumentItems is stored as a JSONB column.
type DocumentItems []DocumentItem

// Value implements driver.Valuer.
func (d DocumentItems) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *DocumentItems) Scan(value any) error {
	return scanJSON(value, d)
}

// Invoice is an issued invoice, bill or credit note and its computed totals.
type Invoice struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	TenantID         uuid.UUID       `db:"tenant_id" json:"tenant_id"`
	Kind             DocumentKind    `db:"kind" json:"kind"`
	Number           string          `db:"number" json:"number"`
	CounterpartyName string          `db:"counterparty_name" json:"counterparty_name"`
	CounterpartyRef  *string         `db:"counterparty_ref" json:"counterparty_ref,omitempty"`
	IssueDate        Date            `db:"issue_date" json:"issue_date"`
	DueDate          *Date           `db:"due_date" json:"due_date,omitempty"`
	Items            DocumentItems   `db:"items" json:"items"`
	DiscountMode     DiscountMode    `db:"discount_mode" json:"discount_mode,omitempty"`
	DiscountValue    decimal.Decimal `db:"discount_value" json:"discount_value"`
	TDSRate          decimal.Decimal `db:"tds_rate" json:"tds_rate"`
	Subtotal         decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountAmount   decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TaxableAmount    decimal.Decimal `db:"taxable_amount" json:"taxable_amount"`
	CGSTTotal        decimal.Decimal `db:"cgst_total" json:"cgst_total"`
	SGSTTotal        decimal.Decimal `db:"sgst_total" json:"sgst_total"`
	IGSTTotal        decimal.Decimal `db:"igst_total" json:"igst_total"`
	CessTotal        decimal.Decimal `db:"cess_total" json:"cess_total"`
	TaxTotal         decimal.Decimal `db:"tax_total" json:"tax_total"`
	TDSAmount        decimal.Decimal `db:"tds_amount" json:"tds_amount"`
	GrandTotal       decimal.Decimal `db:"grand_total" json:"grand_total"`
	AmountPaid       decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	BalanceDue       decimal.Decimal `db:"balance_due" json:"balance_due"`
	Status           InvoiceStatus   `db:"status" json:"status"`
	TransactionID    uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	ScheduleID       *uuid.UUID      `db:"schedule_id" json:"schedule_id,omitempty"`
	Notes            string          `db:"notes" json:"notes,omitempty"`
	CreatedBy        uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// InvoicePayment links a receipt or payment transaction to the document it settles.
type InvoicePayment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	TenantID      uuid.UUID       `db:"tenant_id" json:"tenant_id"`
	InvoiceID     uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	TransactionID uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// TemplateLine is one line of a recurring journal template.
type TemplateLine struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// InvoiceTemplate is the document a recurring invoice schedule replays.
type InvoiceTemplate struct {
	Kind             DocumentKind    `json:"kind"`
	CounterpartyName string          `json:"counterparty_name"`
	CounterpartyRef  *string         `json:"counterparty_ref,omitempty"`
	Items            []DocumentItem  `json:"items"`
	DiscountMode     DiscountMode    `json:"discount_mode,omitempty"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	TDSRate          decimal.Decimal `json:"tds_rate"`
	DueInDays        int             `json:"due_in_days"`
	Notes            string          `json:"notes,omitempty"`
}

// ScheduleTemplate is the owned, immutable payload of a recurring schedule.
// Journal schedules use TxnType and Lines; invoice schedules use Invoice.
type ScheduleTemplate struct {
	TxnType     TxnType          `json:"txn_type,omitempty"`
	Description string           `json:"description,omitempty"`
	Reference   *string          `json:"reference,omitempty"`
	Lines       []TemplateLine   `json:"lines,omitempty"`
	Invoice     *InvoiceTemplate `json:"invoice,omitempty"`
}

// Clone returns a deep copy so generated documents never alias the template.
func (t ScheduleTemplate) Clone() ScheduleTemplate {
	out := t
	if t.Reference != nil {
		ref := *t.Reference
		out.Reference = &ref
	}
	if t.Lines != nil {
		out.Lines = append([]TemplateLine(nil), t.Lines...)
	}
	if t.Invoice != nil {
		inv := *t.Invoice
		inv.Items = append([]DocumentItem(nil), t.Invoice.Items...)
		if t.Invoice.CounterpartyRef != nil {
			ref := *t.Invoice.CounterpartyRef
			inv.CounterpartyRef = &ref
		}
		out.Invoice = &inv
	}
	return out
}

// Value implements driver.Valuer.
func (t ScheduleTemplate) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *ScheduleTemplate) Scan(value any) error {
	return scanJSON(value, t)
}

// RecurringSchedule materializes journals or invoices from its template on a cadence.
type RecurringSchedule struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	TenantID        uuid.UUID        `db:"tenant_id" json:"tenant_id"`
	Kind            ScheduleKind     `db:"kind" json:"kind"`
	Name            string           `db:"name" json:"name"`
	Frequency       Frequency        `db:"frequency" json:"frequency"`
	IntervalCount   int              `db:"interval_count" json:"interval_count"`
	StartDate       Date             `db:"start_date" json:"start_date"`
	EndDate         *Date            `db:"end_date" json:"end_date,omitempty"`
	MaxOccurrences  *int             `db:"max_occurrences" json:"max_occurrences,omitempty"`
	OccurrenceCount int              `db:"occurrence_count" json:"occurrence_count"`
	NextRunDate     Date             `db:"next_run_date" json:"next_run_date"`
	LastRunDate     *Date            `db:"last_run_date" json:"last_run_date,omitempty"`
	Status          ScheduleStatus   `db:"status" json:"status"`
	Template        ScheduleTemplate `db:"template" json:"template"`
	Version         int64            `db:"version" json:"version"`
	LastError       *string          `db:"last_error" json:"last_error,omitempty"`
	CreatedBy       uuid.UUID        `db:"created_by" json:"created_by"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// ScheduleOccurrence links a schedule run to the document it produced.
type ScheduleOccurrence struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	TenantID         uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	ScheduleID       uuid.UUID  `db:"schedule_id" json:"schedule_id"`
	OccurrenceNumber int        `db:"occurrence_number" json:"occurrence_number"`
	RunDate          Date       `db:"run_date" json:"run_date"`
	TransactionID    uuid.UUID  `db:"transaction_id" json:"transaction_id"`
	InvoiceID        *uuid.UUID `db:"invoice_id" json:"invoice_id,omitempty"`
	GeneratedAt      time.Time  `db:"generated_at" json:"generated_at"`
}

// BankAccount is an external account whose statements are imported.
type BankAccount struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	TenantID        uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Name            string     `db:"name" json:"name"`
	BankName        string     `db:"bank_name" json:"bank_name"`
	AccountNumber   string     `db:"account_number" json:"account_number"`
	Currency        string     `db:"currency" json:"currency"`
	LedgerAccountID *uuid.UUID `db:"ledger_account_id" json:"ledger_account_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// BankTransaction is one imported statement row. Rows are never deleted.
type BankTransaction struct {
	ID            uuid.UUID           `db:"id" json:"id"`
	TenantID      uuid.UUID           `db:"tenant_id" json:"tenant_id"`
	BankAccountID uuid.UUID           `db:"bank_account_id" json:"bank_account_id"`
	ImportBatchID uuid.UUID           `db:"import_batch_id" json:"import_batch_id"`
	RowNumber     int                 `db:"row_number" json:"row_number"`
	TxnDate       Date                `db:"txn_date" json:"date"`
	Description   string              `db:"description" json:"description"`
	Reference     *string             `db:"reference" json:"reference,omitempty"`
	Debit         decimal.Decimal     `db:"debit" json:"debit"`
	Credit        decimal.Decimal     `db:"credit" json:"credit"`
	Balance       decimal.NullDecimal `db:"balance" json:"balance"`
	IsReconciled  bool                `db:"is_reconciled" json:"is_reconciled"`
	TransactionID *uuid.UUID          `db:"transaction_id" json:"transaction_id,omitempty"`
	ReconciledAt  *time.Time          `db:"reconciled_at" json:"reconciled_at,omitempty"`
	ReconciledBy  *uuid.UUID          `db:"reconciled_by" json:"reconciled_by,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// SignedAmount is credit minus debit.
func (b BankTransaction) SignedAmount() decimal.Decimal {
	return b.Credit.Sub(b.Debit)
}

// LedgerCandidate is a posted line on a bank's ledger account that a
// statement row may be matched against.
type LedgerCandidate struct {
	TransactionID uuid.UUID       `db:"transaction_id" json:"transaction_id"`
	Number        string          `db:"number" json:"number"`
	Date          Date            `db:"txn_date" json:"date"`
	Description   string          `db:"description" json:"description"`
	Reference     *string         `db:"reference" json:"reference,omitempty"`
	Debit         decimal.Decimal `db:"debit" json:"debit"`
	Credit        decimal.Decimal `db:"credit" json:"credit"`
}

// SignedAmount is credit minus debit.
func (c LedgerCandidate) SignedAmount() decimal.Decimal {
	return c.Credit.Sub(c.Debit)
}

func scanJSON(value any, dest any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dest)
	}
}
