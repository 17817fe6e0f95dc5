// Package reconcile scores ledger candidates against imported bank rows.
package reconcile

import (
	"bytes"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/domain"
)

const (
	// SuggestWindowDays bounds how far from the bank date candidates are looked up.
	SuggestWindowDays = 3
	// MinSuggestScore is exclusive: only candidates scoring above it are suggested.
	MinSuggestScore = 30

	scoreExactAmount = 50
	scoreNearAmount  = 40
	scoreSameDay     = 30
	scoreAdjacentDay = 20
	scoreDescription = 20
)

var amountTolerance = decimal.New(1, -2)

// Suggestion is a scored ledger candidate.
type Suggestion struct {
	Candidate domain.LedgerCandidate `json:"candidate"`
	Score     int                    `json:"score"`
	DayOffset int                    `json:"day_offset"`
}

// Score rates how well a ledger candidate explains a bank row.
func Score(row domain.BankTransaction, c domain.LedgerCandidate) Suggestion {
	s := Suggestion{Candidate: c, DayOffset: row.TxnDate.DaysUntil(c.Date)}

	diff := row.SignedAmount().Sub(c.SignedAmount()).Abs()
	switch {
	case diff.IsZero():
		s.Score += scoreExactAmount
	case diff.LessThanOrEqual(amountTolerance):
		s.Score += scoreNearAmount
	}

	switch abs(s.DayOffset) {
	case 0:
		s.Score += scoreSameDay
	case 1:
		s.Score += scoreAdjacentDay
	}

	if descriptionsOverlap(row.Description, c.Description) {
		s.Score += scoreDescription
	}
	return s
}

// Suggest scores every candidate, keeps those above MinSuggestScore and ranks
// them by score, then date proximity, then transaction id. A transaction with
// several lines on the account is reported once, with its best score.
func Suggest(row domain.BankTransaction, candidates []domain.LedgerCandidate, limit int) []Suggestion {
	best := make(map[uuid.UUID]Suggestion, len(candidates))
	for _, c := range candidates {
		s := Score(row, c)
		if s.Score <= MinSuggestScore {
			continue
		}
		if prev, ok := best[c.TransactionID]; !ok || better(s, prev) {
			best[c.TransactionID] = s
		}
	}

	out := make([]Suggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ExactMatch returns the candidate with the same date and signed amount as the
// row, preferring the lowest transaction id. The bool is false when none match.
func ExactMatch(row domain.BankTransaction, candidates []domain.LedgerCandidate) (domain.LedgerCandidate, bool) {
	var (
		found domain.LedgerCandidate
		ok    bool
	)
	amount := row.SignedAmount()
	for _, c := range candidates {
		if !c.Date.Equal(row.TxnDate) || !c.SignedAmount().Equal(amount) {
			continue
		}
		if !ok || lessID(c.TransactionID, found.TransactionID) {
			found, ok = c, true
		}
	}
	return found, ok
}

func better(a, b Suggestion) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if da, db := abs(a.DayOffset), abs(b.DayOffset); da != db {
		return da < db
	}
	return lessID(a.Candidate.TransactionID, b.Candidate.TransactionID)
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func descriptionsOverlap(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
