// Package service coordinates registry lookups: validate the identifier,
// consult the cache, and on a miss query the responsible authority through a
// single-flight group so concurrent callers share one external call.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"registra/internal/registry/authority"
	"registra/internal/registry/metrics"
	"registra/internal/registry/models"
	"registra/internal/registry/store"
	"registra/internal/registry/tracer"
	"registra/pkg/domain"
	dErrors "registra/pkg/domain-errors"
)

// Default TTLs. Positive answers live long; negative ones expire sooner so a
// freshly registered entity becomes visible within half an hour; rates only
// until the next publication window.
const (
	DefaultFoundTTL    = 6 * time.Hour
	DefaultNotFoundTTL = 30 * time.Minute
	DefaultRateTTL     = time.Hour
)

// Service is the cache-backed lookup orchestrator.
type Service struct {
	connectors map[string]authority.Connector
	cache      store.Cache
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
	flight     singleflight.Group

	foundTTL    time.Duration
	notFoundTTL time.Duration
	rateTTL     time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics sink; nil disables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithTTLs overrides the cache TTL windows.
func WithTTLs(found, notFound, rate time.Duration) Option {
	return func(s *Service) {
		s.foundTTL = found
		s.notFoundTTL = notFound
		s.rateTTL = rate
	}
}

// New creates a lookup service over the given cache and connectors.
// Connectors are indexed by their authority name; registering two connectors
// for one authority keeps the latter.
func New(cache store.Cache, connectors []authority.Connector, opts ...Option) *Service {
	s := &Service{
		connectors:  make(map[string]authority.Connector, len(connectors)),
		cache:       cache,
		tracer:      tracer.NewNoop(),
		logger:      slog.Default(),
		foundTTL:    DefaultFoundTTL,
		notFoundTTL: DefaultNotFoundTTL,
		rateTTL:     DefaultRateTTL,
	}
	for _, conn := range connectors {
		s.connectors[conn.Authority()] = conn
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompanyByNIP resolves a company through the MF white list by tax ID.
// The raw value may carry dashes or spaces; it is normalized before use.
func (s *Service) CompanyByNIP(ctx context.Context, rawNIP string) (*models.CompanyLookup, error) {
	nip, err := domain.ParseNIP(rawNIP)
	if err != nil {
		return nil, err
	}
	q := authority.Query{Params: map[string]string{"nip": nip.String()}}
	return lookup(ctx, s, domain.KindNIP, authority.MF, nip.String(), q, s.foundTTL, models.CompanyFromPayload)
}

// CompanyByREGON resolves a company through the GUS BIR registry.
func (s *Service) CompanyByREGON(ctx context.Context, rawREGON string) (*models.CompanyLookup, error) {
	regon, err := domain.ParseREGON(rawREGON)
	if err != nil {
		return nil, err
	}
	q := authority.Query{Params: map[string]string{"regon": regon.String()}}
	return lookup(ctx, s, domain.KindREGON, authority.REGON, regon.String(), q, s.foundTTL, models.CompanyFromPayload)
}

// BankByIBAN resolves the issuing bank of an IBAN. countryHint, when given,
// must match the IBAN's country prefix.
func (s *Service) BankByIBAN(ctx context.Context, rawIBAN, countryHint string) (*models.BankLookup, error) {
	iban, err := domain.ParseIBAN(rawIBAN, countryHint)
	if err != nil {
		return nil, err
	}
	q := authority.Query{Params: map[string]string{"iban": iban.String()}}
	return lookup(ctx, s, domain.KindIBAN, authority.IBANAPI, iban.String(), q, s.foundTTL, models.BankFromPayload)
}

// VAT checks an EU VAT registration through VIES. An invalid number is a
// found record with Valid=false, not a not-found outcome.
func (s *Service) VAT(ctx context.Context, countryCode, vatNumber string) (*models.VATLookup, error) {
	vat, err := domain.ParseVAT(countryCode, vatNumber)
	if err != nil {
		return nil, err
	}
	q := authority.Query{Params: map[string]string{"country_code": vat.CountryCode, "vat_number": vat.Number}}
	return lookup(ctx, s, domain.KindVAT, authority.VIES, vat.String(), q, s.foundTTL, models.VATFromPayload)
}

// Rate fetches an NBP mid rate. Table defaults to "a"; date is optional
// YYYY-MM-DD and selects a historical fixing.
func (s *Service) Rate(ctx context.Context, table, code, date string) (*models.RateLookup, error) {
	table, code, date, err := rateParams(table, code, date)
	if err != nil {
		return nil, err
	}
	q := authority.Query{Params: map[string]string{"table": table, "code": code, "date": date}}
	id := table + "_" + code
	if date != "" {
		id += "_" + date
	}
	return lookup(ctx, s, domain.KindRate, authority.NBP, id, q, s.rateTTL, models.RateFromPayload)
}

// rateParams normalizes and validates the NBP rate parameters.
func rateParams(table, code, date string) (string, string, string, error) {
	table = strings.ToLower(strings.TrimSpace(table))
	if table == "" {
		table = "a"
	}
	switch table {
	case "a", "b", "c":
	default:
		return "", "", "", dErrors.New(dErrors.CodeInvalidInput, "rate table must be A, B or C")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", "", "", dErrors.New(dErrors.CodeInvalidInput, "currency code must be a three-letter ISO 4217 code")
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", "", "", dErrors.New(dErrors.CodeInvalidInput, "currency code must be a three-letter ISO 4217 code")
		}
	}

	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return "", "", "", dErrors.New(dErrors.CodeInvalidInput, "rate date must be YYYY-MM-DD")
		}
	}
	return table, code, date, nil
}

// cacheKey builds the canonical cache key for one lookup.
func cacheKey(authorityName string, kind domain.Kind, id string) string {
	return fmt.Sprintf("%s_lookup_%s_%s", authorityName, kind, id)
}

// lookup runs the shared state flow: cache check, single-flight authority
// call, normalization, cache write. Only found and not_found outcomes are
// written back; failures always propagate uncached.
func lookup[T any](
	ctx context.Context,
	s *Service,
	kind domain.Kind,
	authorityName, id string,
	q authority.Query,
	foundTTL time.Duration,
	convert func(*authority.Payload) (*T, error),
) (result *models.Lookup[T], err error) {
	start := time.Now()
	key := cacheKey(authorityName, kind, id)

	ctx, span := s.tracer.Start(ctx, "lookup."+string(kind),
		tracer.String(tracer.AttrAuthority, authorityName),
		tracer.String(tracer.AttrIdentifier, tracer.HashIdentifier(id)),
	)
	defer func() {
		if result != nil {
			span.SetAttributes(
				tracer.Bool(tracer.AttrCacheHit, result.FromCache),
				tracer.String(tracer.AttrOutcome, string(result.Status)),
			)
		}
		span.End(err)
		if s.metrics != nil {
			s.metrics.ObserveLookupDuration(string(kind), time.Since(start))
		}
	}()

	if cached := fromCache[T](ctx, s, key, kind); cached != nil {
		return cached, nil
	}

	value, err, shared := s.flight.Do(key, func() (any, error) {
		return fetch(ctx, s, kind, authorityName, id, key, q, foundTTL, convert)
	})
	if err != nil {
		return nil, err
	}
	if shared && s.metrics != nil {
		s.metrics.RecordCoalesced(string(kind))
	}
	return value.(*models.Lookup[T]), nil
}

// fetch performs the actual authority call once per flight.
func fetch[T any](
	ctx context.Context,
	s *Service,
	kind domain.Kind,
	authorityName, id, key string,
	q authority.Query,
	foundTTL time.Duration,
	convert func(*authority.Payload) (*T, error),
) (*models.Lookup[T], error) {
	conn, ok := s.connectors[authorityName]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "no connector registered for authority "+authorityName)
	}

	callStart := time.Now()
	payload, err := conn.Lookup(ctx, q)
	elapsed := time.Since(callStart)
	if err != nil {
		s.recordCall(authorityName, "error", elapsed)
		s.logger.ErrorContext(ctx, "authority lookup failed",
			slog.String("authority", authorityName),
			slog.String("kind", string(kind)),
			slog.String("identifier_suffix", domain.Suffix(id, 4)),
			slog.String("error", err.Error()),
		)
		return nil, translateAuthorityError(err)
	}

	if !payload.Found {
		s.recordCall(authorityName, "not_found", elapsed)
		result := &models.Lookup[T]{
			Status:    models.LookupNotFound,
			Authority: authorityName,
			CheckedAt: payload.CheckedAt,
		}
		s.saveCache(ctx, key, result, s.notFoundTTL)
		return result, nil
	}

	record, err := convert(payload)
	if err != nil {
		s.recordCall(authorityName, "error", elapsed)
		s.logger.ErrorContext(ctx, "authority payload rejected",
			slog.String("authority", authorityName),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.recordCall(authorityName, "found", elapsed)
	result := &models.Lookup[T]{
		Status:    models.LookupFound,
		Record:    record,
		Authority: authorityName,
		CheckedAt: payload.CheckedAt,
	}
	s.saveCache(ctx, key, result, foundTTL)
	return result, nil
}

func (s *Service) recordCall(authorityName, outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordAuthorityCall(authorityName, outcome, elapsed)
	}
}

// translateAuthorityError maps the connector failure taxonomy onto stable
// domain error codes for the transport layer.
func translateAuthorityError(err error) error {
	var authErr *authority.Error
	if !errors.As(err, &authErr) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "authority lookup failed")
	}
	switch authErr.Category {
	case authority.ErrorTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "authority "+authErr.Authority+" timed out")
	case authority.ErrorAuthentication:
		return dErrors.Wrap(err, dErrors.CodeAuthorityAuth, "authority "+authErr.Authority+" rejected our credentials")
	case authority.ErrorBadData, authority.ErrorContractMismatch:
		return dErrors.Wrap(err, dErrors.CodeAuthorityParse, "authority "+authErr.Authority+" returned an unusable response")
	case authority.ErrorOutage, authority.ErrorRateLimited:
		return dErrors.Wrap(err, dErrors.CodeAuthorityCall, "authority "+authErr.Authority+" is unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "authority "+authErr.Authority+" lookup failed")
	}
}
