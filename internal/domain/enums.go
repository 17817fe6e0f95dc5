package domain

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// ValidAccountTypes is the set of accepted account types.
var ValidAccountTypes = map[AccountType]bool{
	AccountTypeAsset:     true,
	AccountTypeLiability: true,
	AccountTypeEquity:    true,
	AccountTypeIncome:    true,
	AccountTypeExpense:   true,
}

// AccountRole names a well-known account slot used by quick entries and
// document posting. Each tenant maps roles to concrete accounts.
type AccountRole string

const (
	RoleCash       AccountRole = "cash"
	RoleBank       AccountRole = "bank"
	RoleReceivable AccountRole = "receivable"
	RolePayable    AccountRole = "payable"
	RoleSales      AccountRole = "sales"
	RolePurchases  AccountRole = "purchases"
	RoleExpense    AccountRole = "expense"
	RoleOutputCGST AccountRole = "output_cgst"
	RoleOutputSGST AccountRole = "output_sgst"
	RoleOutputIGST AccountRole = "output_igst"
	RoleOutputCess AccountRole = "output_cess"
	RoleInputCGST  AccountRole = "input_cgst"
	RoleInputSGST  AccountRole = "input_sgst"
	RoleInputIGST  AccountRole = "input_igst"
	RoleInputCess  AccountRole = "input_cess"
	RoleTDSPayable AccountRole = "tds_payable"
)

// ValidAccountRoles is the set of roles a mapping may use.
var ValidAccountRoles = map[AccountRole]bool{
	RoleCash: true, RoleBank: true, RoleReceivable: true, RolePayable: true,
	RoleSales: true, RolePurchases: true, RoleExpense: true,
	RoleOutputCGST: true, RoleOutputSGST: true, RoleOutputIGST: true, RoleOutputCess: true,
	RoleInputCGST: true, RoleInputSGST: true, RoleInputIGST: true, RoleInputCess: true,
	RoleTDSPayable: true,
}

// TxnType is the business type of a ledger transaction.
type TxnType string

const (
	TxnTypeSale     TxnType = "sale"
	TxnTypePurchase TxnType = "purchase"
	TxnTypeReceipt  TxnType = "receipt"
	TxnTypePayment  TxnType = "payment"
	TxnTypeExpense  TxnType = "expense"
	TxnTypeJournal  TxnType = "journal"
	TxnTypeTransfer TxnType = "transfer"
)

// TxnNumberPrefix maps a transaction type to its human-readable number prefix.
var TxnNumberPrefix = map[TxnType]string{
	TxnTypeSale:     "SAL",
	TxnTypePurchase: "PUR",
	TxnTypeReceipt:  "RCT",
	TxnTypePayment:  "PAY",
	TxnTypeExpense:  "EXP",
	TxnTypeJournal:  "JV",
	TxnTypeTransfer: "TRF",
}

// TxnStatus is the lifecycle state of a ledger transaction. There is no draft state.
type TxnStatus string

const (
	TxnStatusPosted TxnStatus = "posted"
	TxnStatusVoid   TxnStatus = "void"
)

// PaymentMode selects the payment-side account of a quick entry.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeBank   PaymentMode = "bank"
	PaymentModeCredit PaymentMode = "credit"
)

// DocumentKind distinguishes the documents that share the totals calculator.
type DocumentKind string

const (
	DocumentKindInvoice    DocumentKind = "invoice"
	DocumentKindBill       DocumentKind = "bill"
	DocumentKindCreditNote DocumentKind = "credit_note"
)

// DocumentNumberPrefix maps a document kind to its number prefix.
var DocumentNumberPrefix = map[DocumentKind]string{
	DocumentKindInvoice:    "INV",
	DocumentKindBill:       "BILL",
	DocumentKindCreditNote: "CN",
}

// DiscountMode selects how a document-level discount is interpreted.
type DiscountMode string

const (
	DiscountModeNone    DiscountMode = ""
	DiscountModePercent DiscountMode = "percent"
	DiscountModeFixed   DiscountMode = "fixed"
)

// InvoiceStatus tracks settlement of an issued document.
type InvoiceStatus string

const (
	InvoiceStatusIssued        InvoiceStatus = "issued"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
)

// Frequency is the calendar unit of a recurring schedule.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

// ScheduleStatus is the lifecycle state of a recurring schedule.
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusPaused    ScheduleStatus = "paused"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleStatusCompleted || s == ScheduleStatusCancelled
}

// ScheduleKind is what a recurring schedule materializes.
type ScheduleKind string

const (
	ScheduleKindJournal ScheduleKind = "journal"
	ScheduleKindInvoice ScheduleKind = "invoice"
)
