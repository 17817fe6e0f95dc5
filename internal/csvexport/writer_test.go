package csvexport

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khata/internal/domain"
)

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	w.Flush()
	require.NoError(t, w.Error())

	row, err := csv.NewReader(&buf).Read()
	require.NoError(t, err)
	assert.Len(t, row, len(columns))
	assert.Equal(t, "Number", row[0])
	assert.Equal(t, "Created At", row[len(row)-1])
}

func TestWriteTransactions(t *testing.T) {
	ref := "UTR123"
	voided := time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		{
			Number:      "SAL-00001",
			Date:        domain.MustParseDate("2025-03-15"),
			Type:        domain.TxnTypeSale,
			Status:      domain.TxnStatusPosted,
			Reference:   &ref,
			Description: "Counter sale, cash",
			Subtotal:    decimal.RequireFromString("1000"),
			TaxTotal:    decimal.RequireFromString("180"),
			Total:       decimal.RequireFromString("1180"),
			CreatedAt:   time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			Number:   "JV-00001",
			Date:     domain.MustParseDate("2025-03-15"),
			Type:     domain.TxnTypeJournal,
			Status:   domain.TxnStatusVoid,
			Total:    decimal.RequireFromString("50.5"),
			VoidedAt: &voided,
		},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteTransactions(txns))
	w.Flush()
	require.NoError(t, w.Error())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{
		"SAL-00001", "2025-03-15", "sale", "posted", "UTR123", "Counter sale, cash",
		"1000.00", "180.00", "1180.00", "", "2025-03-15T09:30:00Z",
	}, rows[0])
	assert.Equal(t, "", rows[1][4])
	assert.Equal(t, "50.50", rows[1][8])
	assert.Equal(t, "2025-03-16T10:00:00Z", rows[1][9])
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"day book", "day_book"},
		{"Acme & Sons / FY25", "Acme_Sons_FY25"},
		{"__x__", "x"},
		{string(bytes.Repeat([]byte("a"), 150)), string(bytes.Repeat([]byte("a"), 100))},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in))
	}
}

func TestBuildFilename(t *testing.T) {
	assert.Equal(t, "daybook_2025-03-15.csv", BuildFilename("daybook", domain.MustParseDate("2025-03-15")))
}
