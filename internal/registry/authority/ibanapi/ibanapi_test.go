package ibanapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registra/internal/registry/authority"
)

const validBody = `{"result":200,"message":"Valid IBAN Number","data":{"country_code":"PL","iban":"PL61109010140000071219812874","bank":{"bank_name":"Santander Bank Polska","bic":"WBKPPLPP","branch":"1 Oddzial we Wroclawiu","bank_code":"10901014","routing_code":"","city":"Wroclaw"}}}`

func TestLookup(t *testing.T) {
	t.Run("recognized IBAN", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/validate/PL61109010140000071219812874", r.URL.Path)
			assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(validBody))
		}))
		defer server.Close()

		conn := New(server.URL, "secret", time.Second)
		payload, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"iban": "PL61109010140000071219812874"}})
		require.NoError(t, err)
		require.True(t, payload.Found)
		assert.Equal(t, "Santander Bank Polska", payload.Data["bank_name"])
		assert.Equal(t, "WBKPPLPP", payload.Data["bic"])
		assert.Equal(t, "PL", payload.Data["country_code"])
		assert.Equal(t, "10901014", payload.Data["bank_code"])
	})

	t.Run("rejected IBAN is an authoritative not-found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"result":400,"message":"Invalid IBAN Checksum"}`))
		}))
		defer server.Close()

		conn := New(server.URL, "secret", time.Second)
		payload, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"iban": "PL00000000000000000000000000"}})
		require.NoError(t, err)
		assert.False(t, payload.Found)
	})

	t.Run("bad api key is an authentication failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		conn := New(server.URL, "wrong", time.Second)
		_, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"iban": "PL61109010140000071219812874"}})
		assert.Equal(t, authority.ErrorAuthentication, authority.Category(err))
	})

	t.Run("quota exhaustion is retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		conn := New(server.URL, "secret", time.Second)
		_, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"iban": "PL61109010140000071219812874"}})
		require.Error(t, err)
		assert.Equal(t, authority.ErrorRateLimited, authority.Category(err))
		assert.True(t, authority.IsRetryable(err))
	})

	t.Run("missing iban rejected before any call", func(t *testing.T) {
		conn := New("http://unused.invalid", "secret", time.Second)
		_, err := conn.Lookup(context.Background(), authority.Query{})
		assert.Error(t, err)
	})
}
