// Package validator checks the format of Indian tax and banking identifiers
// carried on documents and bank accounts.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"khata/internal/domain"
)

var (
	gstinPattern = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	hsnPattern   = regexp.MustCompile(`^\d{4,8}$`)
	acctPattern  = regexp.MustCompile(`^\d{9,18}$`)
)

// HSNCode accepts an empty code or a 4 to 8 digit HSN/SAC code.
func HSNCode(code string) error {
	if code == "" || hsnPattern.MatchString(code) {
		return nil
	}
	return fmt.Errorf("%w: HSN/SAC code %q must be 4 to 8 digits", domain.ErrInvalidInput, code)
}

// BankAccountNumber accepts an empty number or 9 to 18 digits. Spaces and
// hyphens are ignored.
func BankAccountNumber(number string) error {
	n := NormalizeAccountNumber(number)
	if n == "" || acctPattern.MatchString(n) {
		return nil
	}
	return fmt.Errorf("%w: account number must be 9 to 18 digits", domain.ErrInvalidInput)
}

// NormalizeAccountNumber strips spaces and hyphens.
func NormalizeAccountNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(number))
}

// IsGSTIN reports whether s has the shape of a GSTIN.
func IsGSTIN(s string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// GSTINStateCode returns the two-digit state prefix of a GSTIN.
func GSTINStateCode(gstin string) (string, bool) {
	if !IsGSTIN(gstin) {
		return "", false
	}
	return strings.TrimSpace(gstin)[:2], true
}
