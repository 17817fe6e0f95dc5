package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"khata/internal/domain"
	"khata/internal/validator"
)

func TestHSNCode(t *testing.T) {
	for _, ok := range []string{"", "9983", "998311", "84713010"} {
		assert.NoError(t, validator.HSNCode(ok), ok)
	}
	for _, bad := range []string{"998", "123456789", "99A311", " 9983"} {
		assert.ErrorIs(t, validator.HSNCode(bad), domain.ErrInvalidInput, bad)
	}
}

func TestBankAccountNumber(t *testing.T) {
	assert.NoError(t, validator.BankAccountNumber(""))
	assert.NoError(t, validator.BankAccountNumber("50200012345678"))
	assert.NoError(t, validator.BankAccountNumber("5020 0012 3456 78"))
	assert.NoError(t, validator.BankAccountNumber("5020-0012-3456"))
	assert.ErrorIs(t, validator.BankAccountNumber("12345"), domain.ErrInvalidInput)
	assert.ErrorIs(t, validator.BankAccountNumber("ACCT50200012"), domain.ErrInvalidInput)
}

func TestGSTIN(t *testing.T) {
	assert.True(t, validator.IsGSTIN("29ABCDE1234F1Z5"))
	assert.True(t, validator.IsGSTIN(" 29abcde1234f1z5 "))
	assert.False(t, validator.IsGSTIN("29ABCDE1234F1X5"))

	code, ok := validator.GSTINStateCode("07FGHIJ5678K2Z3")
	assert.True(t, ok)
	assert.Equal(t, "07", code)

	_, ok = validator.GSTINStateCode("not-a-gstin")
	assert.False(t, ok)
}
