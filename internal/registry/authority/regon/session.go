package regon

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"registra/internal/registry/authority"
	"registra/internal/registry/soap"
)

// session holds the process-wide BIR session token. The token is acquired
// lazily on first use and reused until expiry or explicit invalidation after
// an authentication failure.
type session struct {
	mu      sync.Mutex
	sid     string
	expires time.Time
}

const loginTemplate = `<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope" xmlns:ns="http://CIS/BIR/PUBL/2014/07" xmlns:wsa="http://www.w3.org/2005/08/addressing">
<soap:Header>
<wsa:Action>http://CIS/BIR/PUBL/2014/07/IUslugaBIRzewnPubl/Zaloguj</wsa:Action>
<wsa:To>%s</wsa:To>
</soap:Header>
<soap:Body>
<ns:Zaloguj>
<ns:pKluczUzytkownika>%s</ns:pKluczUzytkownika>
</ns:Zaloguj>
</soap:Body>
</soap:Envelope>`

type loginResponse struct {
	XMLName xml.Name `xml:"ZalogujResponse"`
	Result  string   `xml:"ZalogujResult"`
}

// sid returns a valid session token, logging in when none is cached.
// Concurrent callers share one login: the mutex covers the whole login call,
// so the BIR quota is not burned by a thundering herd at startup.
func (c *Connector) sid(ctx context.Context) (string, error) {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()

	if c.session.sid != "" && time.Now().Before(c.session.expires) {
		return c.session.sid, nil
	}

	sid, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.session.sid = sid
	c.session.expires = time.Now().Add(c.sessionTTL)
	return sid, nil
}

// invalidate drops the cached token when the service stopped accepting it.
// Only the token that actually failed is dropped, so a concurrent re-login
// result is never discarded.
func (c *Connector) invalidate(sid string) {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	if c.session.sid == sid {
		c.session.sid = ""
		c.session.expires = time.Time{}
	}
}

// login performs the Zaloguj call and returns the fresh session token.
func (c *Connector) login(ctx context.Context) (string, error) {
	envelope := fmt.Sprintf(loginTemplate, c.baseURL, c.userKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(envelope))
	if err != nil {
		return "", authority.NewError(authority.ErrorInternal, authority.REGON, "failed to create login request", err)
	}
	req.Header.Set("Content-Type", soapContentType)

	status, body, err := authority.Call(c.client, authority.REGON, req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", authority.StatusError(authority.REGON, status, body)
	}

	inner, err := soap.BodyContent(body)
	if err != nil {
		return "", authority.NewError(authority.ErrorBadData, authority.REGON, "failed to extract login response", err)
	}

	var resp loginResponse
	if err := xml.Unmarshal(inner, &resp); err != nil {
		return "", authority.NewError(authority.ErrorContractMismatch, authority.REGON, "failed to parse login response", err)
	}
	if strings.TrimSpace(resp.Result) == "" {
		return "", authority.NewError(authority.ErrorAuthentication, authority.REGON, "login rejected: empty session token", nil)
	}
	return strings.TrimSpace(resp.Result), nil
}
