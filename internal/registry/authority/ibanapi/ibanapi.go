// Package ibanapi implements the IBAN validation connector. The service
// resolves an IBAN to its issuing bank (name, BIC, branch) over a JSON API
// authenticated with an api_key query parameter.
package ibanapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"registra/internal/registry/authority"
)

const defaultBaseURL = "https://api.ibanapi.com"

// Connector resolves IBANs to bank details.
type Connector struct {
	baseURL string
	apiKey  string
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

// New creates an IBAN connector. An empty baseURL selects the public API.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Connector {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c := &Connector{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authority returns the authority name.
func (c *Connector) Authority() string { return authority.IBANAPI }

type validateResponse struct {
	Result  int    `json:"result"`
	Message string `json:"message"`
	Data    struct {
		CountryCode string `json:"country_code"`
		IBAN        string `json:"iban"`
		Bank        struct {
			BankName    string `json:"bank_name"`
			BIC         string `json:"bic"`
			Branch      string `json:"branch"`
			BankCode    string `json:"bank_code"`
			RoutingCode string `json:"routing_code"`
			City        string `json:"city"`
		} `json:"bank"`
	} `json:"data"`
}

// Lookup validates an IBAN and returns its issuing bank. An IBAN the service
// recognizes as well-formed but cannot attribute to a bank, or rejects as
// invalid, is an authoritative not-found. Understood parameters: "iban".
func (c *Connector) Lookup(ctx context.Context, q authority.Query) (*authority.Payload, error) {
	iban := q.Param("iban")
	if iban == "" {
		return nil, authority.NewError(authority.ErrorInternal, authority.IBANAPI, "iban parameter is required", nil)
	}

	endpoint := c.baseURL + "/v1/validate/" + url.PathEscape(iban) + "?api_key=" + url.QueryEscape(c.apiKey)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, authority.NewError(authority.ErrorInternal, authority.IBANAPI, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := authority.Call(c.client, authority.IBANAPI, req)
	if err != nil {
		return nil, err
	}
	// The service reports an invalid IBAN as a 400 with a JSON body carrying
	// the rejection message; everything else off the happy path is an error.
	if status != http.StatusOK && status != http.StatusBadRequest {
		return nil, authority.StatusError(authority.IBANAPI, status, body)
	}

	var resp validateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, authority.NewError(authority.ErrorContractMismatch, authority.IBANAPI, "failed to parse validation response", err)
	}

	payload := &authority.Payload{
		Authority: authority.IBANAPI,
		Raw:       json.RawMessage(body),
		CheckedAt: time.Now(),
	}
	if resp.Result != http.StatusOK || resp.Data.Bank.BankName == "" {
		return payload, nil
	}

	payload.Found = true
	payload.Data = map[string]string{
		"iban":         strings.ToUpper(resp.Data.IBAN),
		"country_code": resp.Data.CountryCode,
		"bank_name":    resp.Data.Bank.BankName,
		"bic":          resp.Data.Bank.BIC,
		"branch":       resp.Data.Bank.Branch,
		"bank_code":    resp.Data.Bank.BankCode,
		"routing_code": resp.Data.Bank.RoutingCode,
		"city":         resp.Data.Bank.City,
	}
	return payload, nil
}
