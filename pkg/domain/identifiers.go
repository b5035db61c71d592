// Package domain provides type-safe business identifiers so a REGON can never
// be passed where a NIP is expected. Parse functions normalize then validate;
// use them at trust boundaries (handlers, CLI, API inputs).
package domain

import (
	"regexp"
	"strings"

	dErrors "registra/pkg/domain-errors"
)

// Kind tags an identifier for cache keys and metrics labels.
type Kind string

const (
	KindNIP   Kind = "nip"
	KindREGON Kind = "regon"
	KindIBAN  Kind = "iban"
	KindVAT   Kind = "vat"
	KindRate  Kind = "rate"
)

// Distinct identifier types - always held in normalized form.
type (
	NIP   string
	REGON string
	IBAN  string
)

// VATNumber is an EU VAT identifier: ISO country code plus the national part.
type VATNumber struct {
	CountryCode string
	Number      string
}

// nipWeights are the mod-11 checksum weights over the first nine digits.
var nipWeights = [9]int{6, 5, 7, 2, 3, 4, 5, 6, 7}

var (
	ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{1,30}$`)
	vatPattern  = regexp.MustCompile(`^[A-Za-z0-9+*]{2,12}$`)
)

// ibanCountries holds the two-letter codes of IBAN registry members, used to
// reject made-up country prefixes when a country hint is supplied.
var ibanCountries = map[string]struct{}{
	"AD": {}, "AE": {}, "AL": {}, "AT": {}, "AZ": {}, "BA": {}, "BE": {},
	"BG": {}, "BH": {}, "BR": {}, "BY": {}, "CH": {}, "CR": {}, "CY": {},
	"CZ": {}, "DE": {}, "DK": {}, "DO": {}, "EE": {}, "EG": {}, "ES": {},
	"FI": {}, "FO": {}, "FR": {}, "GB": {}, "GE": {}, "GI": {}, "GL": {},
	"GR": {}, "GT": {}, "HR": {}, "HU": {}, "IE": {}, "IL": {}, "IQ": {},
	"IS": {}, "IT": {}, "JO": {}, "KW": {}, "KZ": {}, "LB": {}, "LC": {},
	"LI": {}, "LT": {}, "LU": {}, "LV": {}, "MC": {}, "MD": {}, "ME": {},
	"MK": {}, "MR": {}, "MT": {}, "MU": {}, "NL": {}, "NO": {}, "PK": {},
	"PL": {}, "PS": {}, "PT": {}, "QA": {}, "RO": {}, "RS": {}, "SA": {},
	"SC": {}, "SE": {}, "SI": {}, "SK": {}, "SM": {}, "ST": {}, "SV": {},
	"TL": {}, "TN": {}, "TR": {}, "UA": {}, "VA": {}, "VG": {}, "XK": {},
}

// ParseNIP normalizes and validates a Polish tax identifier.
// Normalization strips every non-digit character (separators like "123-456-32-18"
// are accepted); the result must be exactly ten digits with a valid mod-11
// checksum. A weighted sum remainder of 10 has no valid check digit.
func ParseNIP(raw string) (NIP, error) {
	digits := stripNonDigits(raw)
	if len(digits) != 10 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "NIP must contain exactly 10 digits")
	}

	sum := 0
	for i, w := range nipWeights {
		sum += int(digits[i]-'0') * w
	}
	rem := sum % 11
	if rem == 10 || rem != int(digits[9]-'0') {
		return "", dErrors.New(dErrors.CodeInvalidInput, "NIP checksum mismatch")
	}
	return NIP(digits), nil
}

// ParseREGON normalizes and validates a statistical registry number.
// Valid REGONs have exactly 9 (base) or 14 (local unit) digits after
// stripping separators.
func ParseREGON(raw string) (REGON, error) {
	digits := stripNonDigits(raw)
	if len(digits) != 9 && len(digits) != 14 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "REGON must contain exactly 9 or 14 digits")
	}
	return REGON(digits), nil
}

// ParseIBAN normalizes and validates an international bank account number.
// Spaces are stripped and letters uppercased before the structural check.
// countryHint is optional; when supplied it must be a known IBAN registry
// country and match the account's prefix.
func ParseIBAN(raw, countryHint string) (IBAN, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if !ibanPattern.MatchString(normalized) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "IBAN must match country code, check digits and BBAN structure")
	}

	if countryHint != "" {
		hint := strings.ToUpper(strings.TrimSpace(countryHint))
		if _, known := ibanCountries[hint]; !known {
			return "", dErrors.New(dErrors.CodeInvalidInput, "unknown IBAN country code: "+hint)
		}
		if hint != normalized[:2] {
			return "", dErrors.New(dErrors.CodeInvalidInput, "IBAN country prefix does not match "+hint)
		}
	}
	return IBAN(normalized), nil
}

// ParseVAT normalizes and validates an EU VAT identifier.
func ParseVAT(countryCode, number string) (VATNumber, error) {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	if len(cc) != 2 || cc[0] < 'A' || cc[0] > 'Z' || cc[1] < 'A' || cc[1] > 'Z' {
		return VATNumber{}, dErrors.New(dErrors.CodeInvalidInput, "VAT country code must be two letters")
	}

	num := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(number), " ", ""))
	num = strings.TrimPrefix(num, cc)
	if !vatPattern.MatchString(num) {
		return VATNumber{}, dErrors.New(dErrors.CodeInvalidInput, "VAT number has invalid characters or length")
	}
	return VATNumber{CountryCode: cc, Number: num}, nil
}

// String methods - for cache keys, logging, and debugging.

func (n NIP) String() string   { return string(n) }
func (r REGON) String() string { return string(r) }
func (i IBAN) String() string  { return string(i) }

func (v VATNumber) String() string { return v.CountryCode + v.Number }

// CountryCode returns the two-letter IBAN prefix.
func (i IBAN) CountryCode() string {
	if len(i) < 2 {
		return ""
	}
	return string(i[:2])
}

// Suffix returns the last n characters for redacted logging.
// Full identifiers never reach logs; only the suffix does.
func Suffix(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return "..." + id[len(id)-n:]
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
