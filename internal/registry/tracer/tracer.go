// Package tracer provides a lightweight tracing abstraction for the lookup
// layer. It keeps the service decoupled from OpenTelemetry APIs: the noop
// implementation serves tests, the otel adapter serves production.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes. The
	// returned context carries the span and should be passed to child
	// operations; the span must be ended with Span.End.
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashIdentifier returns a short SHA-256 hash of a business identifier for
// safe use in traces. Traces can be correlated on the hash without carrying
// the identifier itself.
func HashIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the lookup layer.
const (
	SpanLookupCompany = "lookup.company"
	SpanLookupBank    = "lookup.bank"
	SpanLookupVAT     = "lookup.vat"
	SpanLookupRate    = "lookup.rate"
	SpanAuthorityCall = "authority.call"
)

// Attribute keys used by the lookup layer.
const (
	AttrAuthority  = "authority"
	AttrIdentifier = "identifier_hash"
	AttrKind       = "lookup.kind"
	AttrCacheHit   = "cache.hit"
	AttrOutcome    = "lookup.outcome"
)
