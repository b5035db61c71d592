package regon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registra/internal/registry/authority"
)

func soapEnvelope(inner string) string {
	return `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>` + inner + `</s:Body></s:Envelope>`
}

func escapeXML(s string) string {
	var b bytes.Buffer
	_ = xmlEscape(&b, s)
	return b.String()
}

func xmlEscape(b *bytes.Buffer, s string) error {
	replacer := strings.NewReplacer("<", "&lt;", ">", "&gt;", "&", "&amp;")
	_, err := b.WriteString(replacer.Replace(s))
	return err
}

const searchHit = `<root><dane><Regon>123456785</Regon><Nip>1234563218</Nip><Nazwa>ACME SP. Z O.O.</Nazwa><Typ>P</Typ><SilosID>6</SilosID><Ulica>ul. Testowa</Ulica><NrNieruchomosci>2</NrNieruchomosci><Miejscowosc>Warszawa</Miejscowosc><KodPocztowy>00-001</KodPocztowy></dane></root>`

const legalReport = `<root><dane><praw_nazwa>ACME SPÓŁKA Z OGRANICZONĄ ODPOWIEDZIALNOŚCIĄ</praw_nazwa><praw_nip>1234563218</praw_nip><praw_regon9>123456785</praw_regon9><praw_adSiedzUlica_Nazwa>ul. Testowa</praw_adSiedzUlica_Nazwa><praw_adSiedzNumerNieruchomosci>2</praw_adSiedzNumerNieruchomosci><praw_adSiedzMiejscowosc_Nazwa>Warszawa</praw_adSiedzMiejscowosc_Nazwa><praw_adSiedzKodPocztowy>00001</praw_adSiedzKodPocztowy></dane></root>`

// birServer simulates the BIR SOAP endpoint: login, search, full report.
type birServer struct {
	logins      atomic.Int32
	searches    atomic.Int32
	rejectFirst bool // reject the first search to force a re-login
	noRecords   bool
}

func (b *birServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		request := string(body)

		switch {
		case strings.Contains(request, "Zaloguj"):
			b.logins.Add(1)
			sid := fmt.Sprintf("sid-%d", b.logins.Load())
			_, _ = w.Write([]byte(soapEnvelope(`<ZalogujResponse xmlns="http://CIS/BIR/PUBL/2014/07"><ZalogujResult>` + sid + `</ZalogujResult></ZalogujResponse>`)))

		case strings.Contains(request, "DaneSzukajPodmioty"):
			n := b.searches.Add(1)
			require.NotEmpty(t, r.Header.Get("sid"), "search must carry the session header")

			var result string
			switch {
			case b.rejectFirst && n == 1:
				result = escapeXML(`<root><dane><ErrorCode>7</ErrorCode><ErrorMessagePl>Sesja wygasła</ErrorMessagePl></dane></root>`)
			case b.noRecords:
				result = escapeXML(`<root><dane><ErrorCode>4</ErrorCode><ErrorMessagePl>Nie znaleziono podmiotów</ErrorMessagePl></dane></root>`)
			default:
				result = escapeXML(searchHit)
			}
			_, _ = w.Write([]byte(soapEnvelope(`<DaneSzukajPodmiotyResponse xmlns="http://CIS/BIR/PUBL/2014/07"><DaneSzukajPodmiotyResult>` + result + `</DaneSzukajPodmiotyResult></DaneSzukajPodmiotyResponse>`)))

		case strings.Contains(request, "DanePobierzPelnyRaport"):
			assert.Contains(t, request, string(ReportLegalPerson), "entity type P resolves to the legal-person report")
			result := escapeXML(legalReport)
			_, _ = w.Write([]byte(soapEnvelope(`<DanePobierzPelnyRaportResponse xmlns="http://CIS/BIR/PUBL/2014/07"><DanePobierzPelnyRaportResult>` + result + `</DanePobierzPelnyRaportResult></DanePobierzPelnyRaportResponse>`)))

		default:
			t.Errorf("unexpected BIR request: %s", request)
		}
	}
}

func TestLookup(t *testing.T) {
	t.Run("search plus full report", func(t *testing.T) {
		bir := &birServer{}
		server := httptest.NewServer(bir.handler(t))
		defer server.Close()

		conn := New(server.URL, "test-key", time.Second)
		payload, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"nip": "1234563218"}})
		require.NoError(t, err)
		require.True(t, payload.Found)
		assert.Equal(t, "ACME SPÓŁKA Z OGRANICZONĄ ODPOWIEDZIALNOŚCIĄ", payload.Data["name"], "full report overrides the search name")
		assert.Equal(t, "1234563218", payload.Data["nip"])
		assert.Equal(t, "123456785", payload.Data["regon"])
		assert.Equal(t, "ul. Testowa", payload.Data["street"])
		assert.Equal(t, "2", payload.Data["building"])
		assert.Equal(t, string(ReportLegalPerson), payload.Data["report"])
		assert.Equal(t, int32(1), bir.logins.Load(), "session token is reused across search and report")
	})

	t.Run("rejected session re-logs in and retries exactly once", func(t *testing.T) {
		bir := &birServer{rejectFirst: true}
		server := httptest.NewServer(bir.handler(t))
		defer server.Close()

		conn := New(server.URL, "test-key", time.Second)
		payload, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"nip": "1234563218"}})
		require.NoError(t, err)
		assert.True(t, payload.Found)
		assert.Equal(t, int32(2), bir.logins.Load())
		assert.Equal(t, int32(2), bir.searches.Load())
	})

	t.Run("no records is an authoritative not-found", func(t *testing.T) {
		bir := &birServer{noRecords: true}
		server := httptest.NewServer(bir.handler(t))
		defer server.Close()

		conn := New(server.URL, "test-key", time.Second)
		payload, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"regon": "123456785"}})
		require.NoError(t, err)
		assert.False(t, payload.Found)
	})

	t.Run("empty login token is an authentication failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(soapEnvelope(`<ZalogujResponse xmlns="http://CIS/BIR/PUBL/2014/07"><ZalogujResult></ZalogujResult></ZalogujResponse>`)))
		}))
		defer server.Close()

		conn := New(server.URL, "bad-key", time.Second)
		_, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"nip": "1234563218"}})
		assert.Equal(t, authority.ErrorAuthentication, authority.Category(err))
	})

	t.Run("missing criteria rejected before any call", func(t *testing.T) {
		conn := New("http://unused.invalid", "key", time.Second)
		_, err := conn.Lookup(context.Background(), authority.Query{})
		assert.Error(t, err)
	})
}

func TestReportFor(t *testing.T) {
	tests := []struct {
		entityType string
		silosID    string
		report     Report
		ok         bool
	}{
		{"P", "", ReportLegalPerson, true},
		{"P", "6", ReportLegalPerson, true},
		{"LP", "", ReportLegalPersonLocalUnit, true},
		{"F", "4", ReportNaturalPersonCeidg, true},
		{"F", "6", ReportNaturalPersonAgriculture, true},
		{"LF", "", ReportNaturalPersonLocalUnit, true},
		{"F", "99", "", false},
		{"X", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.entityType+"/"+tt.silosID, func(t *testing.T) {
			report, ok := ReportFor(tt.entityType, tt.silosID)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.report, report)
		})
	}
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "name", canonicalKey("praw_nazwa"))
	assert.Equal(t, "street", canonicalKey("fiz_adSiedzUlica_Nazwa"))
	assert.Equal(t, "regon", canonicalKey("lokpraw_regon14"))
	assert.Empty(t, canonicalKey("praw_dataPowstania"))
	assert.Empty(t, canonicalKey("zupelnie_obcy"))
}
