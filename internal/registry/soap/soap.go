// Package soap contains the envelope handling shared by the SOAP-speaking
// connectors (VIES, REGON/BIR). The BIR service wraps its envelopes in MTOM
// multipart noise, so extraction is substring-based and deliberately tolerant.
package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"regexp"
)

var (
	// ErrNoEnvelope is returned when no SOAP envelope can be located in the payload.
	ErrNoEnvelope = errors.New("no SOAP envelope in payload")

	// ErrNoBody is returned when the envelope has no Body element.
	ErrNoBody = errors.New("no Body element in SOAP envelope")
)

var (
	envelopeOpen  = regexp.MustCompile(`<(?:[A-Za-z][A-Za-z0-9._-]*:)?Envelope[\s>]`)
	envelopeClose = regexp.MustCompile(`</(?:[A-Za-z][A-Za-z0-9._-]*:)?Envelope\s*>`)
)

// ExtractEnvelope locates the <Envelope>...</Envelope> substring inside raw,
// tolerating leading and trailing transport noise such as MTOM multipart
// boundaries, byte order marks, or log prefixes. The namespace prefix on the
// Envelope tag may be anything or absent.
func ExtractEnvelope(raw []byte) ([]byte, error) {
	open := envelopeOpen.FindIndex(raw)
	if open == nil {
		return nil, ErrNoEnvelope
	}

	var end []int
	for _, m := range envelopeClose.FindAllIndex(raw, -1) {
		end = m // keep the last match
	}
	if end == nil || end[1] <= open[0] {
		return nil, ErrNoEnvelope
	}

	return raw[open[0]:end[1]], nil
}

// envelope mirrors the universal SOAP structure. Matching Body by local name
// keeps the decoder agnostic to SOAP 1.1 vs 1.2 namespaces.
type envelope struct {
	XMLName xml.Name
	Body    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// BodyContent extracts the envelope from raw and returns the inner XML of its
// Body element, ready for unmarshalling into an operation response struct.
func BodyContent(raw []byte) ([]byte, error) {
	env, err := ExtractEnvelope(raw)
	if err != nil {
		return nil, err
	}

	var e envelope
	if err := xml.Unmarshal(env, &e); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(e.Body.Inner)) == 0 {
		return nil, ErrNoBody
	}
	return e.Body.Inner, nil
}
