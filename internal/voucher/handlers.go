package voucher

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-voucher/internal/common"
)

// Handler exposes voucher management and cart evaluation endpoints.
type Handler struct {
	Svc    *Service
	Logger *zerolog.Logger

	// CartGuard wraps the cart evaluation endpoints, typically a rate limiter.
	CartGuard func(http.Handler) http.Handler
	// CreateGuard wraps voucher creation, typically an idempotency check.
	CreateGuard func(http.Handler) http.Handler
}

type voucherPayload struct {
	Type    string          `json:"type"`
	Details json.RawMessage `json:"details"`
}

// Routes returns a router meant to be mounted under /coupons.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(optional(h.CreateGuard)...).Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/active", h.ListActive)
	r.With(optional(h.CartGuard)...).Post("/applicable-coupons", h.Applicable)
	r.With(optional(h.CartGuard)...).Post("/apply-coupon/{id}", h.Apply)
	r.Post("/sweep", h.Sweep)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// Create stores a new voucher valid from today.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	variant, details, ok := h.decodeVoucher(w, r)
	if !ok {
		return
	}
	v, err := h.Svc.Create(r.Context(), variant, details)
	if err != nil {
		h.writeError(w, r, err, "failed to create voucher")
		return
	}
	common.Data(w, http.StatusCreated, v)
}

// List returns every voucher.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items, err := h.Svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to list vouchers")
		return
	}
	common.Data(w, http.StatusOK, nonNil(items))
}

// ListActive returns the vouchers usable today.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items, err := h.Svc.ListActive(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to list vouchers")
		return
	}
	common.Data(w, http.StatusOK, nonNil(items))
}

// Get returns one voucher.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to load voucher")
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Update replaces the type and details of a voucher.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	variant, details, ok := h.decodeVoucher(w, r)
	if !ok {
		return
	}
	v, err := h.Svc.Update(r.Context(), id, variant, details)
	if err != nil {
		h.writeError(w, r, err, "failed to update voucher")
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Delete removes a voucher. Unknown ids still answer 204.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err, "failed to delete voucher")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Applicable lists the usable vouchers whose condition the posted cart meets.
func (h *Handler) Applicable(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cart, ok := decodeCart(w, r)
	if !ok {
		return
	}
	items, err := h.Svc.Applicable(r.Context(), cart)
	if err != nil {
		h.writeError(w, r, err, "failed to evaluate vouchers")
		return
	}
	common.Data(w, http.StatusOK, nonNil(items))
}

// Apply applies one voucher to the posted cart.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cart, ok := decodeCart(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Apply(r.Context(), id, cart)
	if err != nil {
		h.writeError(w, r, err, "failed to apply voucher")
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Sweep runs the expiration sweep immediately.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	res, err := h.Svc.SweepExpired(r.Context())
	if err != nil {
		h.writeError(w, r, err, "voucher sweep failed")
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"deactivated": res.IDs()})
}

func optional(mw func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	if mw == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{mw}
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) decodeVoucher(w http.ResponseWriter, r *http.Request) (Variant, Details, bool) {
	var payload voucherPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return "", nil, false
	}
	variant, err := ParseVariant(payload.Type)
	if err != nil {
		h.writeError(w, r, err, "")
		return "", nil, false
	}
	details, err := DecodeDetails(variant, payload.Details)
	if err != nil {
		h.writeError(w, r, err, "")
		return "", nil, false
	}
	return variant, details, true
}

func decodeCart(w http.ResponseWriter, r *http.Request) (Cart, bool) {
	var cart Cart
	if err := json.NewDecoder(r.Body).Decode(&cart); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart payload", nil)
		return Cart{}, false
	}
	return cart, true
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required", nil)
		return "", false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var detailsErr *DetailsError
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", ErrNotFound.Error(), nil)
	case errors.Is(err, ErrIneligible):
		common.JSONError(w, http.StatusUnprocessableEntity, "NOT_ELIGIBLE", ErrIneligible.Error(), nil)
	case errors.As(err, &detailsErr):
		common.JSONError(w, http.StatusBadRequest, "MALFORMED_DETAILS", detailsErr.Error(), map[string]string{
			"type":  string(detailsErr.Variant),
			"field": detailsErr.Field,
		})
	case errors.Is(err, ErrMalformedDetails):
		common.JSONError(w, http.StatusBadRequest, "MALFORMED_DETAILS", err.Error(), nil)
	default:
		if h.Logger != nil {
			h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}

func nonNil(items []Voucher) []Voucher {
	if items == nil {
		return []Voucher{}
	}
	return items
}
