// Package handler exposes the lookup service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"registra/internal/registry/models"
	"registra/pkg/domain"
	dErrors "registra/pkg/domain-errors"
	"registra/pkg/httputil"
	"registra/pkg/requestcontext"
	"registra/pkg/validation"
)

// LookupService defines the service operations the handlers depend on.
type LookupService interface {
	CompanyByNIP(ctx context.Context, nip string) (*models.CompanyLookup, error)
	CompanyByREGON(ctx context.Context, regon string) (*models.CompanyLookup, error)
	BankByIBAN(ctx context.Context, iban, countryHint string) (*models.BankLookup, error)
	VAT(ctx context.Context, countryCode, vatNumber string) (*models.VATLookup, error)
	Rate(ctx context.Context, table, code, date string) (*models.RateLookup, error)
}

// Handler handles HTTP requests for registry lookups.
type Handler struct {
	service LookupService
	logger  *slog.Logger
}

// New creates a lookup handler.
func New(service LookupService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the handler routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/lookup/company", h.HandleCompanyLookup)
	r.Post("/lookup/bank", h.HandleBankLookup)
	r.Post("/lookup/vat", h.HandleVATLookup)
	r.Get("/rates/{table}/{code}", h.HandleRate)
}

// CompanyLookupRequest is the request body for company lookup. Exactly one of
// nip or regon selects the authority to query.
type CompanyLookupRequest struct {
	NIP   string `json:"nip,omitempty"`
	REGON string `json:"regon,omitempty"`
}

// Validate checks that exactly one identifier is present and well-formed.
func (r *CompanyLookupRequest) Validate() error {
	switch {
	case r.NIP != "" && r.REGON != "":
		return dErrors.New(dErrors.CodeBadRequest, "provide either nip or regon, not both")
	case r.NIP != "":
		_, err := domain.ParseNIP(r.NIP)
		return badRequest(err)
	case r.REGON != "":
		_, err := domain.ParseREGON(r.REGON)
		return badRequest(err)
	default:
		return dErrors.New(dErrors.CodeBadRequest, "nip or regon is required")
	}
}

// BankLookupRequest is the request body for bank lookup.
type BankLookupRequest struct {
	IBAN        string `json:"iban" validate:"required,notblank"`
	CountryHint string `json:"country_hint,omitempty"`
}

// Validate checks the IBAN shape and the optional country hint.
func (r *BankLookupRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	_, err := domain.ParseIBAN(r.IBAN, r.CountryHint)
	return badRequest(err)
}

// VATLookupRequest is the request body for EU VAT lookup.
type VATLookupRequest struct {
	CountryCode string `json:"country_code" validate:"required,len=2,alpha"`
	VATNumber   string `json:"vat_number" validate:"required,notblank"`
}

// Validate checks the VAT number shape.
func (r *VATLookupRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	_, err := domain.ParseVAT(r.CountryCode, r.VATNumber)
	return badRequest(err)
}

// LookupResponse is the shared response envelope for lookup endpoints.
type LookupResponse[T any] struct {
	Status    string `json:"status"`
	Record    *T     `json:"record,omitempty"`
	Authority string `json:"authority"`
	CheckedAt string `json:"checked_at"`
}

func toResponse[T any](l *models.Lookup[T]) LookupResponse[T] {
	return LookupResponse[T]{
		Status:    string(l.Status),
		Record:    l.Record,
		Authority: l.Authority,
		CheckedAt: l.CheckedAt.Format(time.RFC3339),
	}
}

// HandleCompanyLookup handles POST /lookup/company requests.
func (h *Handler) HandleCompanyLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CompanyLookupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var result *models.CompanyLookup
	var err error
	if req.NIP != "" {
		result, err = h.service.CompanyByNIP(ctx, req.NIP)
	} else {
		result, err = h.service.CompanyByREGON(ctx, req.REGON)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "company lookup failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(result))
}

// HandleBankLookup handles POST /lookup/bank requests.
func (h *Handler) HandleBankLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BankLookupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.BankByIBAN(ctx, req.IBAN, req.CountryHint)
	if err != nil {
		h.logger.ErrorContext(ctx, "bank lookup failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(result))
}

// HandleVATLookup handles POST /lookup/vat requests.
func (h *Handler) HandleVATLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VATLookupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VAT(ctx, req.CountryCode, req.VATNumber)
	if err != nil {
		h.logger.ErrorContext(ctx, "vat lookup failed",
			"request_id", requestID,
			"country_code", req.CountryCode,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(result))
}

// HandleRate handles GET /rates/{table}/{code} requests. An optional ?date=
// query selects a historical fixing.
func (h *Handler) HandleRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	table := chi.URLParam(r, "table")
	code := chi.URLParam(r, "code")
	date := r.URL.Query().Get("date")

	result, err := h.service.Rate(ctx, table, code, date)
	if err != nil {
		h.logger.ErrorContext(ctx, "rate lookup failed",
			"request_id", requestID,
			"table", table,
			"code", code,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(result))
}

// badRequest maps identifier parse failures onto the bad-request code.
func badRequest(err error) error {
	if err == nil {
		return nil
	}
	return dErrors.New(dErrors.CodeBadRequest, err.Error())
}
