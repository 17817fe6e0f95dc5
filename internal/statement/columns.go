package statement

import (
	"strings"

	"khata/internal/domain"
)

// Field is a logical statement column.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
	FieldBalance     Field = "balance"
	FieldReference   Field = "reference"
	FieldAmount      Field = "amount"
	FieldDrCr        Field = "drcr"
)

// Synonyms lists accepted header names per field, most specific first.
// Matching is case-insensitive and ignores punctuation.
var Synonyms = map[Field][]string{
	FieldDate: {
		"transaction date", "txn date", "tran date", "trans date", "date",
		"posting date", "value date", "value dt", "txn dt",
	},
	FieldDescription: {
		"description", "narration", "particulars", "details", "transaction details",
		"remarks", "transaction remarks", "memo", "payee",
	},
	FieldDebit: {
		"debit", "debit amount", "withdrawal", "withdrawals", "withdrawal amt",
		"withdrawal amount", "dr", "dr amount", "paid out", "money out",
	},
	FieldCredit: {
		"credit", "credit amount", "deposit", "deposits", "deposit amt",
		"deposit amount", "cr", "cr amount", "paid in", "money in",
	},
	FieldBalance: {
		"balance", "closing balance", "running balance", "available balance", "balance amt",
	},
	FieldReference: {
		"reference", "reference no", "ref no", "ref", "chq ref no", "chq no",
		"cheque no", "utr", "utr no", "transaction id",
	},
	FieldAmount: {
		"amount", "txn amount", "transaction amount",
	},
	FieldDrCr: {
		"dr cr", "cr dr", "debit credit", "type", "txn type",
	},
}

// fieldOrder fixes the assignment order so specific fields claim columns first.
var fieldOrder = []Field{
	FieldDate, FieldDescription, FieldDebit, FieldCredit,
	FieldBalance, FieldReference, FieldAmount, FieldDrCr,
}

// Columns maps each field to its column index, -1 when absent.
type Columns map[Field]int

// Has reports whether f was found.
func (c Columns) Has(f Field) bool {
	i, ok := c[f]
	return ok && i >= 0
}

// minFields is the number of fields a row needs to reach the date, the
// description and the first amount column. Trailing empty cells are often
// dropped by exporters, so later amount columns are optional.
func (c Columns) minFields() int {
	n := max(c[FieldDate], c[FieldDescription]) + 1
	first := -1
	for _, f := range []Field{FieldDebit, FieldCredit, FieldAmount} {
		if c.Has(f) && (first < 0 || c[f] < first) {
			first = c[f]
		}
	}
	return max(n, first+1)
}

// MatchHeader maps a header row to columns. It fails with ErrInvalidFormat
// unless both a date and a description column are present together with an
// amount source (debit/credit or amount).
func MatchHeader(header []string) (Columns, error) {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = normalizeHeader(h)
	}

	cols := Columns{}
	taken := map[int]bool{}
	assign := func(match func(cell, syn string) bool) {
		for _, f := range fieldOrder {
			if cols.Has(f) {
				continue
			}
		synonyms:
			for _, syn := range Synonyms[f] {
				for i, cell := range norm {
					if !taken[i] && cell != "" && match(cell, syn) {
						cols[f] = i
						taken[i] = true
						break synonyms
					}
				}
			}
		}
	}
	assign(func(cell, syn string) bool { return cell == syn })
	// Looser pass for long headers like "Withdrawal Amount (INR)".
	assign(func(cell, syn string) bool { return len(syn) > 3 && strings.Contains(cell, syn) })

	if !cols.Has(FieldDate) || !cols.Has(FieldDescription) {
		return nil, domain.ErrInvalidFormat
	}
	if !cols.Has(FieldDebit) && !cols.Has(FieldCredit) && !cols.Has(FieldAmount) {
		return nil, domain.ErrInvalidFormat
	}
	return cols, nil
}

// LocateHeader returns the index of the first record, within the first
// scanRows records, that matches as a header.
func LocateHeader(records [][]string, scanRows int) (int, Columns, error) {
	if scanRows <= 0 {
		scanRows = 1
	}
	for i := 0; i < len(records) && i < scanRows; i++ {
		if isBlank(records[i]) {
			continue
		}
		if cols, err := MatchHeader(records[i]); err == nil {
			return i, cols, nil
		}
	}
	return -1, nil, domain.ErrInvalidFormat
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, h)
	return strings.Join(strings.Fields(h), " ")
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
