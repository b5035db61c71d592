// Package models defines the canonical records every authority payload is
// normalized into, plus the explicit constructors that replace dynamic
// hydration: each constructor takes the connector's flat key-value payload and
// fails with a typed decode error when required fields are missing.
package models

import (
	"strconv"
	"strings"
	"time"

	"registra/internal/registry/authority"
	dErrors "registra/pkg/domain-errors"
)

// VATStatus is the canonical taxpayer status. Unknown upstream strings map to
// StatusUnknown rather than failing the lookup.
type VATStatus string

const (
	StatusActive        VATStatus = "active"
	StatusExempt        VATStatus = "exempt"
	StatusNotRegistered VATStatus = "not_registered"
	StatusUnknown       VATStatus = "unknown"
)

// VATStatusFrom maps an authority status string onto the canonical enum.
// The MF white list reports Polish words; VIES reports booleans handled by the
// connector, so only MF strings arrive here.
func VATStatusFrom(s string) VATStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "czynny", "active":
		return StatusActive
	case "zwolniony", "exempt":
		return StatusExempt
	case "niezarejestrowany", "not_registered":
		return StatusNotRegistered
	default:
		return StatusUnknown
	}
}

// Address is a normalized postal address.
type Address struct {
	Street     string `json:"street,omitempty"`
	Building   string `json:"building,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// SplitStreet separates a building number from a street line. When the
// trailing token is purely numeric it becomes the building number; otherwise
// the line is returned unchanged with no building.
func SplitStreet(line string) (street, building string) {
	line = strings.TrimSpace(line)
	idx := strings.LastIndexByte(line, ' ')
	if idx < 0 {
		return line, ""
	}

	tail := line[idx+1:]
	if tail == "" || !allDigits(tail) {
		return line, ""
	}
	return strings.TrimSpace(line[:idx]), tail
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// CompanyRecord is the canonical company identity record.
type CompanyRecord struct {
	Name      string    `json:"name"`
	NIP       string    `json:"nip,omitempty"`
	REGON     string    `json:"regon,omitempty"`
	VATStatus VATStatus `json:"vat_status"`
	Address   Address   `json:"address"`
}

// BankRecord is the canonical bank identity record resolved from an IBAN.
type BankRecord struct {
	BankName    string `json:"bank_name"`
	Branch      string `json:"branch,omitempty"`
	SWIFT       string `json:"swift,omitempty"`
	BankCode    string `json:"bank_code,omitempty"`
	RoutingCode string `json:"routing_code,omitempty"`
	Country     string `json:"country,omitempty"`
}

// VATRecord is the canonical EU VAT registration record.
type VATRecord struct {
	CountryCode string  `json:"country_code"`
	VATNumber   string  `json:"vat_number"`
	Valid       bool    `json:"valid"`
	TraderName  string  `json:"trader_name,omitempty"`
	Address     Address `json:"address"`
}

// ExchangeRate is a single NBP mid-rate quotation.
type ExchangeRate struct {
	Table         string    `json:"table"`
	Code          string    `json:"code"`
	Currency      string    `json:"currency,omitempty"`
	Mid           float64   `json:"mid"`
	EffectiveDate time.Time `json:"effective_date"`
}

// LookupStatus is the authoritative outcome of a lookup. Failures have no
// status: they surface as errors and are never cached.
type LookupStatus string

const (
	LookupFound    LookupStatus = "found"
	LookupNotFound LookupStatus = "not_found"
)

// Lookup wraps a canonical record with its outcome and provenance. This is
// the unit the cache stores and the unit handlers serialize.
type Lookup[T any] struct {
	Status    LookupStatus `json:"status"`
	Record    *T           `json:"record,omitempty"`
	Authority string       `json:"authority"`
	CheckedAt time.Time    `json:"checked_at"`
	FromCache bool         `json:"-"`
}

// Found reports whether the lookup produced a record.
func (l *Lookup[T]) Found() bool { return l.Status == LookupFound }

type (
	CompanyLookup = Lookup[CompanyRecord]
	BankLookup    = Lookup[BankRecord]
	VATLookup     = Lookup[VATRecord]
	RateLookup    = Lookup[ExchangeRate]
)

// CompanyFromPayload builds a canonical company record from a connector payload.
func CompanyFromPayload(p *authority.Payload) (*CompanyRecord, error) {
	name := p.Data["name"]
	if name == "" {
		return nil, decodeErr(p.Authority, "name")
	}
	if p.Data["nip"] == "" && p.Data["regon"] == "" {
		return nil, decodeErr(p.Authority, "nip/regon")
	}

	street, building := SplitStreet(p.Data["street"])
	if b := p.Data["building"]; b != "" {
		building = b
	}
	return &CompanyRecord{
		Name:      name,
		NIP:       p.Data["nip"],
		REGON:     p.Data["regon"],
		VATStatus: VATStatusFrom(p.Data["status"]),
		Address: Address{
			Street:     street,
			Building:   building,
			City:       p.Data["city"],
			PostalCode: p.Data["postal_code"],
		},
	}, nil
}

// BankFromPayload builds a canonical bank record from a connector payload.
func BankFromPayload(p *authority.Payload) (*BankRecord, error) {
	bankName := p.Data["bank_name"]
	if bankName == "" {
		return nil, decodeErr(p.Authority, "bank_name")
	}
	return &BankRecord{
		BankName:    bankName,
		Branch:      p.Data["branch"],
		SWIFT:       p.Data["bic"],
		BankCode:    p.Data["bank_code"],
		RoutingCode: p.Data["routing_code"],
		Country:     p.Data["country_code"],
	}, nil
}

// VATFromPayload builds a canonical VAT registration record from a connector payload.
func VATFromPayload(p *authority.Payload) (*VATRecord, error) {
	cc := p.Data["country_code"]
	number := p.Data["vat_number"]
	if cc == "" || number == "" {
		return nil, decodeErr(p.Authority, "country_code/vat_number")
	}

	street, building := SplitStreet(p.Data["street"])
	return &VATRecord{
		CountryCode: cc,
		VATNumber:   number,
		Valid:       p.Data["valid"] == "true",
		TraderName:  p.Data["name"],
		Address: Address{
			Street:     street,
			Building:   building,
			City:       p.Data["city"],
			PostalCode: p.Data["postal_code"],
		},
	}, nil
}

// RateFromPayload builds a canonical exchange rate from a connector payload.
func RateFromPayload(p *authority.Payload) (*ExchangeRate, error) {
	code := p.Data["code"]
	midStr := p.Data["mid"]
	if code == "" || midStr == "" {
		return nil, decodeErr(p.Authority, "code/mid")
	}
	mid, err := strconv.ParseFloat(midStr, 64)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAuthorityParse, "authority "+p.Authority+" returned non-numeric mid rate")
	}

	effective, _ := time.Parse("2006-01-02", p.Data["effective_date"])
	return &ExchangeRate{
		Table:         p.Data["table"],
		Code:          code,
		Currency:      p.Data["currency"],
		Mid:           mid,
		EffectiveDate: effective,
	}, nil
}

func decodeErr(authorityName, field string) error {
	return dErrors.New(dErrors.CodeAuthorityParse, "authority "+authorityName+" payload is missing required field "+field)
}
