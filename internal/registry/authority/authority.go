// Package authority defines the contract every external registry connector
// implements, plus the normalized failure taxonomy shared by all of them.
package authority

import (
	"context"
	"encoding/json"
	"time"
)

// Known authority names. Used in cache keys, metrics labels, and logs.
const (
	MF      = "mf"      // Ministry of Finance VAT white list
	REGON   = "regon"   // GUS statistical registry (BIR)
	VIES    = "vies"    // EU VAT information exchange
	NBP     = "nbp"     // National Bank of Poland exchange rates
	IBANAPI = "ibanapi" // IBAN bank-code registry
)

// Query carries the lookup parameters to a connector. Each connector
// documents the parameter names it understands (e.g. "nip", "iban", "date").
type Query struct {
	Params map[string]string
}

// Param returns the named query parameter, or "" when absent.
func (q Query) Param(name string) string {
	return q.Params[name]
}

// Payload is the parsed but not yet normalized result of an authority call.
//
// Connectors flatten their authority-specific response into string-keyed Data
// so the canonical record constructors in models can validate required fields
// without knowing any wire format. Found=false is an authoritative negative
// answer, not a failure; failures are returned as *Error instead.
type Payload struct {
	Authority string
	Found     bool
	Data      map[string]string
	Raw       json.RawMessage // original body, kept for diagnosis and audit
	CheckedAt time.Time
}

// Connector is implemented once per external authority.
//
// Implementations bind exactly one base endpoint with its default headers and
// a bounded per-call timeout. They never silently return empty data: a
// network failure, non-2xx status, or unparseable body surfaces as *Error.
type Connector interface {
	// Authority returns the connector's authority name (one of the constants above).
	Authority() string

	// Lookup performs a single external call and parses the response.
	// A missing record is reported as Payload{Found: false} with a nil error.
	Lookup(ctx context.Context, q Query) (*Payload, error)
}
