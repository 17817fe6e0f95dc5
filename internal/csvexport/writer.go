// Package csvexport writes the day book (posted and void transactions) as CSV.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"khata/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Number",
	"Date",
	"Type",
	"Status",
	"Reference",
	"Description",
	"Subtotal",
	"Tax",
	"Total",
	"Voided At",
	"Created At",
}

// Writer wraps csv.Writer for exporting transactions as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteTransactions writes one row per transaction.
func (w *Writer) WriteTransactions(txns []domain.Transaction) error {
	for i := range txns {
		if err := w.csv.Write(transactionToRow(&txns[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func transactionToRow(t *domain.Transaction) []string {
	ref := ""
	if t.Reference != nil {
		ref = *t.Reference
	}
	return []string{
		t.Number,
		t.Date.String(),
		string(t.Type),
		string(t.Status),
		ref,
		t.Description,
		t.Subtotal.StringFixed(2),
		t.TaxTotal.StringFixed(2),
		t.Total.StringFixed(2),
		formatTime(t.VoidedAt),
		t.CreatedAt.Format(time.RFC3339),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces non-alphanumeric chars (except - _) with _,
// collapses consecutive underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {sanitized_name}_{YYYY-MM-DD}.csv.
func BuildFilename(name string, on domain.Date) string {
	return fmt.Sprintf("%s_%s.csv", SanitizeFilename(name), on.String())
}
