// Package nbp implements the NBP (Polish central bank) exchange-rate
// connector. Unlike the tax registries this API is a plain JSON service;
// the only quirk is that an unknown currency or a date with no fixing
// comes back as a 404 with a text body.
package nbp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"registra/internal/registry/authority"
)

const defaultBaseURL = "https://api.nbp.pl"

// Connector fetches currency mid rates from the NBP exchange-rate tables.
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

// New creates an NBP connector. An empty baseURL selects the public API.
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
func (c *Connector) Authority() string { return authority.NBP }

type rateResponse struct {
	Table    string `json:"table"`
	Currency string `json:"currency"`
	Code     string `json:"code"`
	Rates    []struct {
		No            string  `json:"no"`
		EffectiveDate string  `json:"effectiveDate"`
		Mid           float64 `json:"mid"`
	} `json:"rates"`
}

// Lookup fetches the current (or dated) mid rate for one currency.
// Understood parameters: "code" (required ISO 4217 code), "table"
// (defaults to "a") and "date" (YYYY-MM-DD, optional).
func (c *Connector) Lookup(ctx context.Context, q authority.Query) (*authority.Payload, error) {
	code := q.Param("code")
	if code == "" {
		return nil, authority.NewError(authority.ErrorInternal, authority.NBP, "code parameter is required", nil)
	}
	table := q.Param("table")
	if table == "" {
		table = "a"
	}

	url := fmt.Sprintf("%s/api/exchangerates/rates/%s/%s", c.baseURL, strings.ToLower(table), strings.ToLower(code))
	if date := q.Param("date"); date != "" {
		url += "/" + date
	}
	url += "?format=json"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, authority.NewError(authority.ErrorInternal, authority.NBP, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := authority.Call(c.client, authority.NBP, req)
	if err != nil {
		return nil, err
	}

	payload := &authority.Payload{
		Authority: authority.NBP,
		Raw:       json.RawMessage(body),
		CheckedAt: time.Now(),
	}

	// Unknown currency or a date without a published fixing.
	if status == http.StatusNotFound {
		payload.Raw = nil
		return payload, nil
	}
	if status != http.StatusOK {
		return nil, authority.StatusError(authority.NBP, status, body)
	}

	var resp rateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, authority.NewError(authority.ErrorContractMismatch, authority.NBP, "failed to parse rate response", err)
	}
	if len(resp.Rates) == 0 {
		return payload, nil
	}

	rate := resp.Rates[0]
	payload.Found = true
	payload.Data = map[string]string{
		"code":           strings.ToUpper(resp.Code),
		"currency":       resp.Currency,
		"table":          strings.ToUpper(resp.Table),
		"mid":            strconv.FormatFloat(rate.Mid, 'f', -1, 64),
		"effective_date": rate.EffectiveDate,
		"rate_no":        rate.No,
	}
	return payload, nil
}
