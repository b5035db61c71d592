package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registra/internal/registry/authority"
	dErrors "registra/pkg/domain-errors"
)

func TestSplitStreet(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		street   string
		building string
	}{
		{"trailing number becomes building", "Main Street 42", "Main Street", "42"},
		{"no trailing number leaves line unchanged", "Main Street", "Main Street", ""},
		{"alphanumeric suffix is not a building", "Main Street 42A", "Main Street 42A", ""},
		{"single token", "Rynek", "Rynek", ""},
		{"surrounding whitespace trimmed", "  Długa 7 ", "Długa", "7"},
		{"empty line", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			street, building := SplitStreet(tt.line)
			assert.Equal(t, tt.street, street)
			assert.Equal(t, tt.building, building)
		})
	}
}

func TestVATStatusFrom(t *testing.T) {
	assert.Equal(t, StatusActive, VATStatusFrom("Czynny"))
	assert.Equal(t, StatusExempt, VATStatusFrom("Zwolniony"))
	assert.Equal(t, StatusNotRegistered, VATStatusFrom("Niezarejestrowany"))
	assert.Equal(t, StatusUnknown, VATStatusFrom("Coś nowego"))
	assert.Equal(t, StatusUnknown, VATStatusFrom(""))
}

func TestCompanyFromPayload(t *testing.T) {
	t.Run("maps all fields", func(t *testing.T) {
		record, err := CompanyFromPayload(&authority.Payload{
			Authority: authority.MF,
			Data: map[string]string{
				"name":        "ACME SP. Z O.O.",
				"nip":         "1234563218",
				"regon":       "123456785",
				"status":      "Czynny",
				"street":      "Marszałkowska 1",
				"city":        "Warszawa",
				"postal_code": "00-001",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "ACME SP. Z O.O.", record.Name)
		assert.Equal(t, StatusActive, record.VATStatus)
		assert.Equal(t, "Marszałkowska", record.Address.Street)
		assert.Equal(t, "1", record.Address.Building)
		assert.Equal(t, "Warszawa", record.Address.City)
	})

	t.Run("missing name is a typed decode error", func(t *testing.T) {
		_, err := CompanyFromPayload(&authority.Payload{
			Authority: authority.MF,
			Data:      map[string]string{"nip": "1234563218"},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthorityParse))
	})

	t.Run("requires at least one registry number", func(t *testing.T) {
		_, err := CompanyFromPayload(&authority.Payload{
			Authority: authority.REGON,
			Data:      map[string]string{"name": "ACME"},
		})
		assert.Error(t, err)
	})

	t.Run("explicit building wins over split", func(t *testing.T) {
		record, err := CompanyFromPayload(&authority.Payload{
			Authority: authority.REGON,
			Data: map[string]string{
				"name":     "ACME",
				"regon":    "123456785",
				"street":   "Długa",
				"building": "7B",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "Długa", record.Address.Street)
		assert.Equal(t, "7B", record.Address.Building)
	})
}

func TestBankFromPayload(t *testing.T) {
	t.Run("maps bank identity", func(t *testing.T) {
		record, err := BankFromPayload(&authority.Payload{
			Authority: authority.IBANAPI,
			Data: map[string]string{
				"bank_name":    "Santander Bank Polska",
				"branch":       "Oddział 1",
				"bic":          "WBKPPLPP",
				"bank_code":    "1090",
				"routing_code": "10901014",
				"country_code": "PL",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "WBKPPLPP", record.SWIFT)
		assert.Equal(t, "1090", record.BankCode)
	})

	t.Run("bank name is required", func(t *testing.T) {
		_, err := BankFromPayload(&authority.Payload{Authority: authority.IBANAPI, Data: map[string]string{}})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthorityParse))
	})
}

func TestVATFromPayload(t *testing.T) {
	record, err := VATFromPayload(&authority.Payload{
		Authority: authority.VIES,
		Data: map[string]string{
			"country_code": "PL",
			"vat_number":   "1234563218",
			"valid":        "true",
			"name":         "ACME SP. Z O.O.",
			"street":       "Main Street 42",
		},
	})
	require.NoError(t, err)
	assert.True(t, record.Valid)
	assert.Equal(t, "Main Street", record.Address.Street)
	assert.Equal(t, "42", record.Address.Building)

	_, err = VATFromPayload(&authority.Payload{Authority: authority.VIES, Data: map[string]string{"valid": "true"}})
	assert.Error(t, err)
}

func TestRateFromPayload(t *testing.T) {
	t.Run("parses mid rate and date", func(t *testing.T) {
		rate, err := RateFromPayload(&authority.Payload{
			Authority: authority.NBP,
			Data: map[string]string{
				"table":          "A",
				"code":           "EUR",
				"currency":       "euro",
				"mid":            "4.2511",
				"effective_date": "2026-08-27",
			},
		})
		require.NoError(t, err)
		assert.InDelta(t, 4.2511, rate.Mid, 1e-9)
		assert.Equal(t, 2026, rate.EffectiveDate.Year())
	})

	t.Run("non-numeric mid is a parse error", func(t *testing.T) {
		_, err := RateFromPayload(&authority.Payload{
			Authority: authority.NBP,
			Data:      map[string]string{"code": "EUR", "mid": "dużo"},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthorityParse))
	})
}
