package mf

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

func fixedClock() time.Time {
	return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
}

func TestLookup(t *testing.T) {
	t.Run("found subject with address split", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/search/nip/1234563218", r.URL.Path)
			assert.Equal(t, "2026-08-28", r.URL.Query().Get("date"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":{"subject":{
				"name":"ACME SP. Z O.O.",
				"nip":"1234563218",
				"regon":"123456785",
				"statusVat":"Czynny",
				"workingAddress":"UL. PRÓŻNA 9, 00-107 WARSZAWA"
			},"requestId":"abc-123"}}`))
		}))
		defer server.Close()

		conn := New(server.URL, time.Second, WithClock(fixedClock))
		payload, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"nip": "1234563218"}})
		require.NoError(t, err)
		require.True(t, payload.Found)
		assert.Equal(t, authority.MF, payload.Authority)
		assert.Equal(t, "ACME SP. Z O.O.", payload.Data["name"])
		assert.Equal(t, "Czynny", payload.Data["status"])
		assert.Equal(t, "UL. PRÓŻNA 9", payload.Data["street"])
		assert.Equal(t, "WARSZAWA", payload.Data["city"])
		assert.Equal(t, "00-107", payload.Data["postal_code"])
		assert.NotEmpty(t, payload.Raw)
	})

	t.Run("empty result is not-found, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"result":{}}`))
		}))
		defer server.Close()

		conn := New(server.URL, time.Second)
		payload, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"nip": "1234563218"}})
		require.NoError(t, err)
		assert.False(t, payload.Found)
	})

	t.Run("non-2xx surfaces status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"WL-115","message":"Date too old"}`))
		}))
		defer server.Close()

		conn := New(server.URL, time.Second)
		_, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"nip": "1234563218"}})
		require.Error(t, err)
		assert.Equal(t, authority.ErrorBadData, authority.Category(err))
		assert.Contains(t, err.Error(), "WL-115")
	})

	t.Run("malformed body is a contract mismatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		}))
		defer server.Close()

		conn := New(server.URL, time.Second)
		_, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"nip": "1234563218"}})
		assert.Equal(t, authority.ErrorContractMismatch, authority.Category(err))
	})

	t.Run("unreachable endpoint is an outage", func(t *testing.T) {
		conn := New("http://127.0.0.1:1", 200*time.Millisecond)
		_, err := conn.Lookup(context.Background(), authority.Query{Params: map[string]string{"nip": "1234563218"}})
		require.Error(t, err)
		assert.True(t, authority.IsRetryable(err))
	})
}

func TestSplitAddress(t *testing.T) {
	street, city, postal := splitAddress("UL. PRÓŻNA 9, 00-107 WARSZAWA")
	assert.Equal(t, "UL. PRÓŻNA 9", street)
	assert.Equal(t, "WARSZAWA", city)
	assert.Equal(t, "00-107", postal)

	street, city, postal = splitAddress("RYNEK GŁÓWNY 1, KRAKÓW")
	assert.Equal(t, "RYNEK GŁÓWNY 1", street)
	assert.Equal(t, "KRAKÓW", city)
	assert.Empty(t, postal)

	street, city, postal = splitAddress("")
	assert.Empty(t, street)
	assert.Empty(t, city)
	assert.Empty(t, postal)
}
