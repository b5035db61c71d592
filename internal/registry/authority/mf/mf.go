// Package mf implements the Ministry of Finance VAT white-list connector.
// The white list is a plain JSON API; an absent result.subject is the
// authoritative "no such taxpayer" answer, not an error.
package mf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"registra/internal/registry/authority"
)

const defaultBaseURL = "https://wl-api.mf.gov.pl"

// Connector queries the MF white list by NIP.
type Connector struct {
	baseURL string
	timeout time.Duration
	client  authority.HTTPDoer
	now     func() time.Time
}

// Option configures the Connector.
type Option func(*Connector)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client authority.HTTPDoer) Option {
	return func(c *Connector) {
		c.client = client
	}
}

// WithClock overrides the clock used for the query date (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Connector) {
		c.now = now
	}
}

// New creates a white-list connector. An empty baseURL selects the production endpoint.
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
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authority returns the authority name.
func (c *Connector) Authority() string { return authority.MF }

// searchResponse mirrors the white-list wrapper object.
type searchResponse struct {
	Result struct {
		Subject         *subject `json:"subject"`
		RequestDateTime string   `json:"requestDateTime"`
		RequestID       string   `json:"requestId"`
	} `json:"result"`
}

type subject struct {
	Name             string `json:"name"`
	NIP              string `json:"nip"`
	StatusVat        string `json:"statusVat"`
	REGON            string `json:"regon"`
	KRS              string `json:"krs"`
	WorkingAddress   string `json:"workingAddress"`
	ResidenceAddress string `json:"residenceAddress"`
}

// Lookup queries /api/search/nip/{nip}?date=YYYY-MM-DD.
// Understood parameters: "nip" (required, normalized), "date" (optional,
// defaults to the current day; the white list is versioned by day).
func (c *Connector) Lookup(ctx context.Context, q authority.Query) (*authority.Payload, error) {
	nip := q.Param("nip")
	if nip == "" {
		return nil, authority.NewError(authority.ErrorInternal, authority.MF, "nip parameter is required", nil)
	}
	date := q.Param("date")
	if date == "" {
		date = c.now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/search/nip/%s?date=%s", c.baseURL, nip, date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, authority.NewError(authority.ErrorInternal, authority.MF, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := authority.Call(c.client, authority.MF, req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, authority.StatusError(authority.MF, status, body)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, authority.NewError(authority.ErrorContractMismatch, authority.MF, "failed to parse response", err)
	}

	payload := &authority.Payload{
		Authority: authority.MF,
		Raw:       json.RawMessage(body),
		CheckedAt: time.Now(),
	}

	sub := resp.Result.Subject
	if sub == nil || sub.Name == "" {
		return payload, nil // authoritative not-found
	}

	address := sub.WorkingAddress
	if address == "" {
		address = sub.ResidenceAddress
	}
	street, city, postalCode := splitAddress(address)

	payload.Found = true
	payload.Data = map[string]string{
		"name":        sub.Name,
		"nip":         sub.NIP,
		"regon":       sub.REGON,
		"status":      sub.StatusVat,
		"street":      street,
		"city":        city,
		"postal_code": postalCode,
	}
	return payload, nil
}

var postalPattern = regexp.MustCompile(`^\d{2}-\d{3}$`)

// splitAddress breaks a white-list address line like
// "UL. PRÓŻNA 9, 00-107 WARSZAWA" into street line, city, and postal code.
func splitAddress(address string) (street, city, postalCode string) {
	street, rest, found := strings.Cut(address, ",")
	street = strings.TrimSpace(street)
	if !found {
		return street, "", ""
	}

	rest = strings.TrimSpace(rest)
	first, remainder, _ := strings.Cut(rest, " ")
	if postalPattern.MatchString(first) {
		return street, strings.TrimSpace(remainder), first
	}
	return street, rest, ""
}
