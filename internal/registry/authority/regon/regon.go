// Package regon implements the GUS BIR (statistical registry) connector.
//
// BIR is a SOAP 1.2 service with WS-Addressing headers and a session token
// scheme: every data call carries a "sid" header obtained from a separate
// login call. Responses arrive wrapped in MTOM multipart noise, and the
// actual record set is an XML document escaped inside the response string.
package regon

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"registra/internal/registry/authority"
	"registra/internal/registry/soap"
)

const (
	defaultBaseURL  = "https://wyszukiwarkaregon.stat.gov.pl/wsBIR/UslugaBIRzewnPubl.svc"
	soapContentType = "application/soap+xml;charset=UTF-8"

	// BIR result error codes (inside an otherwise successful response).
	errCodeNoRecords      = "4"
	errCodeInvalidSession = "7"
)

// Connector queries the BIR registry by NIP or REGON.
type Connector struct {
	baseURL    string
	userKey    string
	timeout    time.Duration
	sessionTTL time.Duration
	client     authority.HTTPDoer
	session    session
}

// Option configures the Connector.
type Option func(*Connector)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client authority.HTTPDoer) Option {
	return func(c *Connector) {
		c.client = client
	}
}

// WithSessionTTL overrides how long a session token is reused.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *Connector) {
		c.sessionTTL = ttl
	}
}

// New creates a BIR connector. An empty baseURL selects the production
// endpoint; userKey is the GUS-issued API key.
func New(baseURL, userKey string, timeout time.Duration, opts ...Option) *Connector {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c := &Connector{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userKey:    userKey,
		timeout:    timeout,
		sessionTTL: 50 * time.Minute,
		client:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authority returns the authority name.
func (c *Connector) Authority() string { return authority.REGON }

const searchTemplate = `<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope" xmlns:ns="http://CIS/BIR/PUBL/2014/07" xmlns:dat="http://CIS/BIR/PUBL/2014/07/DataContract" xmlns:wsa="http://www.w3.org/2005/08/addressing">
<soap:Header>
<wsa:Action>http://CIS/BIR/PUBL/2014/07/IUslugaBIRzewnPubl/DaneSzukajPodmioty</wsa:Action>
<wsa:To>%s</wsa:To>
</soap:Header>
<soap:Body>
<ns:DaneSzukajPodmioty>
<ns:pParametryWyszukiwania>
<dat:%s>%s</dat:%s>
</ns:pParametryWyszukiwania>
</ns:DaneSzukajPodmioty>
</soap:Body>
</soap:Envelope>`

const reportTemplate = `<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope" xmlns:ns="http://CIS/BIR/PUBL/2014/07" xmlns:wsa="http://www.w3.org/2005/08/addressing">
<soap:Header>
<wsa:Action>http://CIS/BIR/PUBL/2014/07/IUslugaBIRzewnPubl/DanePobierzPelnyRaport</wsa:Action>
<wsa:To>%s</wsa:To>
</soap:Header>
<soap:Body>
<ns:DanePobierzPelnyRaport>
<ns:pRegon>%s</ns:pRegon>
<ns:pNazwaRaportu>%s</ns:pNazwaRaportu>
</ns:DanePobierzPelnyRaport>
</soap:Body>
</soap:Envelope>`

type searchResponse struct {
	XMLName xml.Name `xml:"DaneSzukajPodmiotyResponse"`
	Result  string   `xml:"DaneSzukajPodmiotyResult"`
}

type reportResponse struct {
	XMLName xml.Name `xml:"DanePobierzPelnyRaportResponse"`
	Result  string   `xml:"DanePobierzPelnyRaportResult"`
}

// searchRecord mirrors one <dane> element of the unescaped search result.
type searchRecord struct {
	Regon           string `xml:"Regon"`
	Nip             string `xml:"Nip"`
	Nazwa           string `xml:"Nazwa"`
	Typ             string `xml:"Typ"`
	SilosID         string `xml:"SilosID"`
	Ulica           string `xml:"Ulica"`
	NrNieruchomosci string `xml:"NrNieruchomosci"`
	Miejscowosc     string `xml:"Miejscowosc"`
	KodPocztowy     string `xml:"KodPocztowy"`
	ErrorCode       string `xml:"ErrorCode"`
	ErrorMessagePl  string `xml:"ErrorMessagePl"`
}

type searchResult struct {
	XMLName xml.Name       `xml:"root"`
	Records []searchRecord `xml:"dane"`
}

// Lookup searches BIR and, when the entity type resolves to a known report
// schema, fetches the full report and merges it over the search record.
// Understood parameters: "nip" or "regon" (exactly one, normalized).
//
// A rejected session token is retried exactly once after a forced re-login;
// a second rejection propagates as an authentication failure.
func (c *Connector) Lookup(ctx context.Context, q authority.Query) (*authority.Payload, error) {
	field, value, err := searchCriteria(q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	record, raw, err := c.searchOnceAuthenticated(ctx, field, value)
	if err != nil {
		return nil, err
	}

	payload := &authority.Payload{
		Authority: authority.REGON,
		Raw:       raw,
		CheckedAt: time.Now(),
	}
	if record == nil {
		return payload, nil // authoritative not-found
	}

	payload.Found = true
	payload.Data = map[string]string{
		"name":        record.Nazwa,
		"nip":         record.Nip,
		"regon":       record.Regon,
		"street":      record.Ulica,
		"building":    record.NrNieruchomosci,
		"city":        record.Miejscowosc,
		"postal_code": record.KodPocztowy,
		"entity_type": record.Typ,
		"silos_id":    record.SilosID,
	}

	report, ok := ReportFor(record.Typ, record.SilosID)
	if !ok {
		return payload, nil
	}

	fields, err := c.fullReport(ctx, record.Regon, report)
	if err != nil {
		return nil, err
	}
	payload.Data["report"] = string(report)
	for key, value := range fields {
		if value != "" {
			payload.Data[key] = value
		}
	}
	return payload, nil
}

// searchOnceAuthenticated runs the search with the cached session, performing
// the single re-login retry when the token is rejected.
func (c *Connector) searchOnceAuthenticated(ctx context.Context, field, value string) (*searchRecord, json.RawMessage, error) {
	sid, err := c.sid(ctx)
	if err != nil {
		return nil, nil, err
	}

	record, raw, err := c.search(ctx, sid, field, value)
	if isAuthFailure(err) {
		c.invalidate(sid)
		sid, err = c.sid(ctx)
		if err != nil {
			return nil, nil, err
		}
		record, raw, err = c.search(ctx, sid, field, value)
	}
	return record, raw, err
}

func isAuthFailure(err error) bool {
	return authority.Category(err) == authority.ErrorAuthentication
}

// search performs one DaneSzukajPodmioty call.
func (c *Connector) search(ctx context.Context, sid, field, value string) (*searchRecord, json.RawMessage, error) {
	envelope := fmt.Sprintf(searchTemplate, c.baseURL, field, value, field)
	inner, err := c.call(ctx, sid, envelope)
	if err != nil {
		return nil, nil, err
	}

	var resp searchResponse
	if err := xml.Unmarshal(inner, &resp); err != nil {
		return nil, nil, authority.NewError(authority.ErrorContractMismatch, authority.REGON, "failed to parse search response", err)
	}

	result := strings.TrimSpace(resp.Result)
	raw, _ := json.Marshal(map[string]string{"result": result})
	if result == "" {
		return nil, raw, nil
	}

	var parsed searchResult
	if err := xml.Unmarshal([]byte(result), &parsed); err != nil {
		return nil, nil, authority.NewError(authority.ErrorBadData, authority.REGON, "failed to parse search records", err)
	}
	if len(parsed.Records) == 0 {
		return nil, raw, nil
	}

	record := parsed.Records[0]
	switch record.ErrorCode {
	case "":
		return &record, raw, nil
	case errCodeNoRecords:
		return nil, raw, nil
	case errCodeInvalidSession:
		return nil, nil, authority.NewError(authority.ErrorAuthentication, authority.REGON, "session rejected: "+record.ErrorMessagePl, nil)
	default:
		return nil, nil, authority.NewError(authority.ErrorBadData, authority.REGON,
			fmt.Sprintf("search error %s: %s", record.ErrorCode, record.ErrorMessagePl), nil)
	}
}

// fullReport fetches and flattens a DanePobierzPelnyRaport record.
func (c *Connector) fullReport(ctx context.Context, regonNumber string, report Report) (map[string]string, error) {
	sid, err := c.sid(ctx)
	if err != nil {
		return nil, err
	}

	envelope := fmt.Sprintf(reportTemplate, c.baseURL, regonNumber, report)
	inner, err := c.call(ctx, sid, envelope)
	if err != nil {
		return nil, err
	}

	var resp reportResponse
	if err := xml.Unmarshal(inner, &resp); err != nil {
		return nil, authority.NewError(authority.ErrorContractMismatch, authority.REGON, "failed to parse report response", err)
	}

	result := strings.TrimSpace(resp.Result)
	if result == "" {
		return map[string]string{}, nil
	}

	var parsed struct {
		XMLName xml.Name `xml:"root"`
		Dane    []struct {
			Fields []struct {
				XMLName xml.Name
				Value   string `xml:",chardata"`
			} `xml:",any"`
		} `xml:"dane"`
	}
	if err := xml.Unmarshal([]byte(result), &parsed); err != nil {
		return nil, authority.NewError(authority.ErrorBadData, authority.REGON, "failed to parse report records", err)
	}

	fields := make(map[string]string)
	for _, dane := range parsed.Dane {
		for _, f := range dane.Fields {
			if key := canonicalKey(f.XMLName.Local); key != "" {
				fields[key] = strings.TrimSpace(f.Value)
			}
		}
	}
	return fields, nil
}

// call posts an envelope with the session header and returns the SOAP body.
func (c *Connector) call(ctx context.Context, sid, envelope string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(envelope))
	if err != nil {
		return nil, authority.NewError(authority.ErrorInternal, authority.REGON, "failed to create request", err)
	}
	req.Header.Set("Content-Type", soapContentType)
	req.Header.Set("sid", sid)

	status, body, err := authority.Call(c.client, authority.REGON, req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, authority.StatusError(authority.REGON, status, body)
	}

	inner, err := soap.BodyContent(body)
	if err != nil {
		return nil, authority.NewError(authority.ErrorBadData, authority.REGON, "failed to extract SOAP body", err)
	}
	return inner, nil
}

// searchCriteria picks the BIR search field from the query parameters.
func searchCriteria(q authority.Query) (field, value string, err error) {
	if nip := q.Param("nip"); nip != "" {
		return "Nip", nip, nil
	}
	if regonNumber := q.Param("regon"); regonNumber != "" {
		return "Regon", regonNumber, nil
	}
	return "", "", authority.NewError(authority.ErrorInternal, authority.REGON, "nip or regon parameter is required", nil)
}
