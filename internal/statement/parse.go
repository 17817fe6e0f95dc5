package statement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"khata/internal/domain"
)

// Row is one parsed statement line. Exactly one of Debit and Credit is positive.
type Row struct {
	Line        int
	Date        domain.Date
	Description string
	Reference   string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.NullDecimal
}

// Result summarizes a parsed statement. Total counts every non-blank data row;
// Skipped counts rows that were not turned into Rows, of which ErrorRows were
// malformed. Errors holds at most the requested number of samples.
type Result struct {
	Rows      []Row
	Total     int
	Skipped   int
	ErrorRows int
	Errors    []string
}

// Options tunes Parse.
type Options struct {
	HeaderScanRows int
	MaxErrors      int
}

var errZeroAmount = errors.New("zero amount")

// Parse locates the header and converts every data row. Bad rows never abort
// the parse; only a missing header does.
func Parse(sheet *Sheet, opts Options) (*Result, error) {
	headerIdx, cols, err := LocateHeader(sheet.Records, opts.HeaderScanRows)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := headerIdx + 1; i < len(sheet.Records); i++ {
		rec := sheet.Records[i]
		line := sheet.Lines[i]
		if rec != nil && isBlank(rec) {
			continue
		}
		res.Total++

		if rec == nil {
			res.addError(opts.MaxErrors, fmt.Sprintf("line %d: unreadable record", line))
			continue
		}
		row, err := cols.ParseRow(rec)
		if errors.Is(err, errZeroAmount) {
			res.Skipped++
			continue
		}
		if err != nil {
			res.addError(opts.MaxErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		row.Line = line
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func (r *Result) addError(maxErrors int, msg string) {
	r.Skipped++
	r.ErrorRows++
	if maxErrors <= 0 || len(r.Errors) < maxErrors {
		r.Errors = append(r.Errors, msg)
	}
}

// ParseRow converts one record using the matched columns.
func (c Columns) ParseRow(rec []string) (Row, error) {
	if need := c.minFields(); len(rec) < need {
		return Row{}, fmt.Errorf("expected at least %d fields, got %d", need, len(rec))
	}

	var row Row
	date, err := ParseDate(c.cell(rec, FieldDate))
	if err != nil {
		return Row{}, err
	}
	row.Date = date
	row.Description = strings.Join(strings.Fields(c.cell(rec, FieldDescription)), " ")
	row.Reference = strings.TrimSpace(c.cell(rec, FieldReference))

	if c.Has(FieldDebit) || c.Has(FieldCredit) {
		debit, err := ParseAmount(c.cell(rec, FieldDebit))
		if err != nil {
			return Row{}, fmt.Errorf("debit: %w", err)
		}
		credit, err := ParseAmount(c.cell(rec, FieldCredit))
		if err != nil {
			return Row{}, fmt.Errorf("credit: %w", err)
		}
		row.Debit, row.Credit = debit.Abs(), credit.Abs()
		if row.Debit.IsPositive() && row.Credit.IsPositive() {
			// Some exports repeat the amount in both columns with one negated.
			net := row.Credit.Sub(row.Debit)
			row.Debit, row.Credit = splitSigned(net)
		}
	} else {
		amount, err := ParseAmount(c.cell(rec, FieldAmount))
		if err != nil {
			return Row{}, fmt.Errorf("amount: %w", err)
		}
		switch side(c.cell(rec, FieldDrCr)) {
		case "debit":
			row.Debit = amount.Abs()
		case "credit":
			row.Credit = amount.Abs()
		default:
			row.Debit, row.Credit = splitSigned(amount)
		}
	}
	if row.Debit.IsZero() && row.Credit.IsZero() {
		return Row{}, errZeroAmount
	}

	if raw := strings.TrimSpace(c.cell(rec, FieldBalance)); raw != "" {
		if bal, err := ParseAmount(raw); err == nil {
			row.Balance = decimal.NullDecimal{Decimal: bal, Valid: true}
		}
	}
	return row, nil
}

func (c Columns) cell(rec []string, f Field) string {
	if !c.Has(f) || c[f] >= len(rec) {
		return ""
	}
	return rec[c[f]]
}

func splitSigned(v decimal.Decimal) (debit, credit decimal.Decimal) {
	if v.IsNegative() {
		return v.Abs(), decimal.Zero
	}
	return decimal.Zero, v
}

func side(indicator string) string {
	switch strings.ToLower(strings.TrimSpace(indicator)) {
	case "dr", "d", "debit", "withdrawal", "dr.":
		return "debit"
	case "cr", "c", "credit", "deposit", "cr.":
		return "credit"
	default:
		return ""
	}
}

// ParseAmount parses a statement amount. It accepts currency markers (₹, Rs,
// INR), thousands separators, parentheses or a leading/trailing minus for
// negatives and a trailing Dr/Cr marker. Empty input is zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	negative := false
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "dr"):
		negative = true
		s = s[:len(s)-2]
	case strings.HasSuffix(lower, "cr"):
		s = s[:len(s)-2]
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = !negative
		s = s[1 : len(s)-1]
	}

	s = strings.NewReplacer("₹", "", "INR", "", "inr", "", "Rs.", "", "Rs", "", "rs.", "", ",", "", " ", "", "\u00a0", "").Replace(s)
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	if s == "" {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	if negative {
		v = v.Neg()
	}
	return v, nil
}

// dateLayouts are tried in order. Day-first layouts precede month-first ones.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"2/1/2006",
	"02-Jan-2006",
	"02 Jan 2006",
	"02-Jan-06",
	"02 Jan 06",
	"2 Jan 2006",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"2006/01/02",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a statement date. Spreadsheet serial numbers are accepted.
func ParseDate(raw string) (domain.Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Date{}, fmt.Errorf("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOf(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return domain.DateOf(t), nil
		}
	}
	return domain.Date{}, fmt.Errorf("invalid date %q", raw)
}
