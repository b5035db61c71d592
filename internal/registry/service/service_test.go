package service

//go:generate mockgen -source=../authority/authority.go -destination=../authority/mocks/connector_mock.go -package=mocks Connector

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"registra/internal/registry/authority"
	"registra/internal/registry/authority/mf"
	"registra/internal/registry/authority/mocks"
	"registra/internal/registry/models"
	"registra/internal/registry/store"
	dErrors "registra/pkg/domain-errors"
	"registra/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	connector *mocks.MockConnector
	cache     *store.InMemoryCache
	service   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.connector = mocks.NewMockConnector(s.ctrl)
	s.connector.EXPECT().Authority().Return(authority.MF).AnyTimes()
	s.cache = store.NewInMemoryCache()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.service = New(s.cache, []authority.Connector{s.connector}, WithLogger(logger))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func foundPayload(data map[string]string) *authority.Payload {
	return &authority.Payload{
		Authority: authority.MF,
		Found:     true,
		Data:      data,
		CheckedAt: time.Now(),
	}
}

func companyData() map[string]string {
	return map[string]string{
		"name":   "ACME SP. Z O.O.",
		"nip":    "1234563218",
		"status": "Czynny",
		"street": "Main Street 42",
		"city":   "Warszawa",
	}
}

func (s *ServiceSuite) TestCompanyByNIP() {
	ctx := context.Background()

	s.Run("normalizes and resolves a found company", func() {
		s.connector.EXPECT().Lookup(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q authority.Query) (*authority.Payload, error) {
				s.Equal("1234563218", q.Param("nip"), "dashes are stripped before the call")
				return foundPayload(companyData()), nil
			})

		result, err := s.service.CompanyByNIP(ctx, "123-456-32-18")
		s.Require().NoError(err)
		s.Equal(models.LookupFound, result.Status)
		s.Equal("ACME SP. Z O.O.", result.Record.Name)
		s.Equal(models.StatusActive, result.Record.VATStatus)
		s.Equal("Main Street", result.Record.Address.Street)
		s.Equal("42", result.Record.Address.Building)
		s.False(result.FromCache)
	})

	s.Run("rejects an invalid checksum without calling the authority", func() {
		_, err := s.service.CompanyByNIP(ctx, "1234563217")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestCaching() {
	ctx := context.Background()

	s.Run("second lookup within the TTL window is served from cache", func() {
		s.connector.EXPECT().Lookup(gomock.Any(), gomock.Any()).
			Return(foundPayload(companyData()), nil).
			Times(1)

		first, err := s.service.CompanyByNIP(ctx, "1234563218")
		s.Require().NoError(err)
		s.False(first.FromCache)

		second, err := s.service.CompanyByNIP(ctx, "1234563218")
		s.Require().NoError(err)
		s.True(second.FromCache)
		s.Equal(first.Record.Name, second.Record.Name)
	})

	s.Run("not-found outcomes are cached too", func() {
		s.connector.EXPECT().Lookup(gomock.Any(), gomock.Any()).
			Return(&authority.Payload{Authority: authority.MF, CheckedAt: time.Now()}, nil).
			Times(1)

		first, err := s.service.CompanyByNIP(ctx, "5260250274")
		s.Require().NoError(err)
		s.Equal(models.LookupNotFound, first.Status)
		s.Nil(first.Record)

		second, err := s.service.CompanyByNIP(ctx, "5260250274")
		s.Require().NoError(err)
		s.Equal(models.LookupNotFound, second.Status)
		s.True(second.FromCache)
	})

	s.Run("failures are never cached", func() {
		outage := authority.NewError(authority.ErrorOutage, authority.MF, "upstream down", nil)
		s.connector.EXPECT().Lookup(gomock.Any(), gomock.Any()).
			Return(nil, outage).
			Times(2)

		_, err := s.service.CompanyByNIP(ctx, "7740001454")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAuthorityCall))

		// The failed attempt left nothing behind, so the retry calls out again.
		_, err = s.service.CompanyByNIP(ctx, "7740001454")
		s.Require().Error(err)
	})

	s.Run("expired entries trigger a fresh call", func() {
		s.service.foundTTL = time.Millisecond
		defer func() { s.service.foundTTL = DefaultFoundTTL }()

		s.connector.EXPECT().Lookup(gomock.Any(), gomock.Any()).
			Return(foundPayload(companyData()), nil).
			Times(2)

		_, err := s.service.CompanyByNIP(ctx, "1234563218")
		s.Require().NoError(err)

		time.Sleep(5 * time.Millisecond)

		result, err := s.service.CompanyByNIP(ctx, "1234563218")
		s.Require().NoError(err)
		s.False(result.FromCache)
	})
}

func (s *ServiceSuite) TestSingleFlight() {
	ctx := context.Background()

	s.Run("concurrent lookups for one identifier share one external call", func() {
		s.connector.EXPECT().Lookup(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ authority.Query) (*authority.Payload, error) {
				time.Sleep(20 * time.Millisecond) // hold the flight open so callers pile up
				return foundPayload(companyData()), nil
			}).
			Times(1)

		result := testutil.RunConcurrentCtx(ctx, 16, func(ctx context.Context, _ int) error {
			lookup, err := s.service.CompanyByNIP(ctx, "1234563218")
			if err != nil {
				return err
			}
			s.Equal("ACME SP. Z O.O.", lookup.Record.Name)
			return nil
		})

		s.Equal(int32(16), result.Successes)
	})

	s.Run("different identifiers fly separately", func() {
		s.connector.EXPECT().Lookup(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q authority.Query) (*authority.Payload, error) {
				time.Sleep(10 * time.Millisecond)
				data := companyData()
				data["nip"] = q.Param("nip")
				return foundPayload(data), nil
			}).
			Times(2)

		nips := []string{"5260250274", "7740001454"}
		result := testutil.RunConcurrentCtx(ctx, 2, func(ctx context.Context, idx int) error {
			_, err := s.service.CompanyByNIP(ctx, nips[idx])
			return err
		})
		s.Equal(int32(2), result.Successes)
	})
}

func (s *ServiceSuite) TestRateValidation() {
	ctx := context.Background()

	s.Run("rejects unknown table", func() {
		_, err := s.service.Rate(ctx, "d", "EUR", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects malformed currency code", func() {
		_, err := s.service.Rate(ctx, "a", "EURO", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects malformed date", func() {
		_, err := s.service.Rate(ctx, "a", "EUR", "28-08-2026")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestMissingConnector() {
	// Only the MF connector is registered, so a REGON lookup has no target.
	_, err := s.service.CompanyByREGON(context.Background(), "123456785")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// TestEndToEndWhiteList exercises the full path with a real MF connector
// against a canned white-list server.
func TestEndToEndWhiteList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/search/nip/1234563218" {
			_, _ = w.Write([]byte(`{"result":{"subject":{"name":"Acme","nip":"1234563218"}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := New(store.NewInMemoryCache(), []authority.Connector{mf.New(server.URL, time.Second)}, WithLogger(logger))

	result, err := svc.CompanyByNIP(context.Background(), "123-456-32-18")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if result.Status != models.LookupFound || result.Record.Name != "Acme" {
		t.Fatalf("unexpected result: %+v", result)
	}

	missing, err := svc.CompanyByNIP(context.Background(), "5260250274")
	if err != nil {
		t.Fatalf("not-found lookup errored: %v", err)
	}
	if missing.Status != models.LookupNotFound {
		t.Fatalf("expected not_found, got %s", missing.Status)
	}
}
