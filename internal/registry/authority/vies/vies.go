// Package vies implements the EU VAT Information Exchange System connector.
// VIES is a SOAP service; the request envelope is a fixed template and the
// response is decoded through the shared envelope codec.
package vies

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"registra/internal/registry/authority"
	"registra/internal/registry/soap"
)

const defaultBaseURL = "https://ec.europa.eu/taxation_customs/vies/services"

// requestTemplate is the fixed checkVat envelope. Inputs are validated
// identifiers but still XML-escaped before substitution.
const requestTemplate = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="urn:ec.europa.eu:taxud:vies:services:checkVat:types">
  <soapenv:Header/>
  <soapenv:Body>
    <urn:checkVat>
      <urn:countryCode>%s</urn:countryCode>
      <urn:vatNumber>%s</urn:vatNumber>
    </urn:checkVat>
  </soapenv:Body>
</soapenv:Envelope>`

// Connector queries VIES checkVatService.
type Connector struct {
	baseURL string
	timeout time.Duration
	client  authority.HTTPDoer
}

// Option configures the Connector.
type Option func(*Connector)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client authority.HTTPDoer) Option {
	return func(c *Connector) {
		c.client = client
	}
}

// New creates a VIES connector. An empty baseURL selects the production endpoint.
func New(baseURL string, timeout time.Duration, opts ...Option) *Connector {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c := &Connector{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authority returns the authority name.
func (c *Connector) Authority() string { return authority.VIES }

type checkVatResponse struct {
	XMLName     xml.Name `xml:"checkVatResponse"`
	CountryCode string   `xml:"countryCode"`
	VATNumber   string   `xml:"vatNumber"`
	RequestDate string   `xml:"requestDate"`
	Valid       bool     `xml:"valid"`
	Name        string   `xml:"name"`
	Address     string   `xml:"address"`
}

type soapFault struct {
	XMLName     xml.Name `xml:"Fault"`
	FaultString string   `xml:"faultstring"`
}

// Lookup posts a checkVat envelope.
// Understood parameters: "country_code" and "vat_number" (both required).
// VIES answers every well-formed query, so a response with valid=false is a
// Found payload whose valid flag is false - there is no not-found outcome.
func (c *Connector) Lookup(ctx context.Context, q authority.Query) (*authority.Payload, error) {
	countryCode := q.Param("country_code")
	vatNumber := q.Param("vat_number")
	if countryCode == "" || vatNumber == "" {
		return nil, authority.NewError(authority.ErrorInternal, authority.VIES, "country_code and vat_number parameters are required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	envelope := buildEnvelope(countryCode, vatNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkVatService", strings.NewReader(envelope))
	if err != nil {
		return nil, authority.NewError(authority.ErrorInternal, authority.VIES, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	status, body, err := authority.Call(c.client, authority.VIES, req)
	if err != nil {
		return nil, err
	}
	// VIES reports faults with a 500 status; only reject statuses that
	// cannot carry an envelope.
	if status != http.StatusOK && status != http.StatusInternalServerError {
		return nil, authority.StatusError(authority.VIES, status, body)
	}

	inner, err := soap.BodyContent(body)
	if err != nil {
		return nil, authority.NewError(authority.ErrorBadData, authority.VIES, "failed to extract SOAP body", err)
	}

	var fault soapFault
	if xml.Unmarshal(inner, &fault) == nil && fault.FaultString != "" {
		return nil, faultError(fault.FaultString)
	}

	var resp checkVatResponse
	if err := xml.Unmarshal(inner, &resp); err != nil {
		return nil, authority.NewError(authority.ErrorContractMismatch, authority.VIES, "failed to parse checkVat response", err)
	}

	raw, _ := json.Marshal(map[string]string{"envelope": string(body)})
	return &authority.Payload{
		Authority: authority.VIES,
		Found:     true,
		Raw:       raw,
		CheckedAt: time.Now(),
		Data: map[string]string{
			"country_code": resp.CountryCode,
			"vat_number":   resp.VATNumber,
			"valid":        boolString(resp.Valid),
			"name":         cleanPlaceholder(resp.Name),
			"street":       cleanPlaceholder(resp.Address),
		},
	}, nil
}

// buildEnvelope fills the fixed template with XML-escaped inputs.
func buildEnvelope(countryCode, vatNumber string) string {
	var cc, vat strings.Builder
	_ = xml.EscapeText(&cc, []byte(countryCode))
	_ = xml.EscapeText(&vat, []byte(vatNumber))

	escaped := strings.Replace(requestTemplate, "%s", cc.String(), 1)
	return strings.Replace(escaped, "%s", vat.String(), 1)
}

// faultError maps VIES fault strings onto the normalized taxonomy.
func faultError(faultString string) *authority.Error {
	category := authority.ErrorBadData
	switch faultString {
	case "MS_UNAVAILABLE", "SERVICE_UNAVAILABLE", "TIMEOUT", "GLOBAL_MAX_CONCURRENT_REQ":
		category = authority.ErrorOutage
	case "MS_MAX_CONCURRENT_REQ":
		category = authority.ErrorRateLimited
	}
	return authority.NewError(category, authority.VIES, "checkVat fault: "+faultString, nil)
}

// cleanPlaceholder drops the "---" VIES uses for absent trader details.
func cleanPlaceholder(s string) string {
	s = strings.TrimSpace(s)
	if s == "---" {
		return ""
	}
	return s
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
