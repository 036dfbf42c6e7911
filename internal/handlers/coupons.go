package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

type CouponHandler struct {
	coupons *services.CouponService
	logger  *zap.Logger
}

func NewCouponHandler(coupons *services.CouponService, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: loggerOrNop(logger)}
}

// CouponRouter registers coupon routes. Listing is public; writes are admin only.
func CouponRouter(r chi.Router, handler *CouponHandler, authn *Authenticator) {
	r.Get("/", handler.List)
	r.Group(func(r chi.Router) {
		r.Use(authn.Authenticate, authn.RequireRole(adminRoles...))
		r.Post("/", handler.Create)
		r.Patch("/{couponID}", handler.Update)
		r.Delete("/{couponID}", handler.Delete)
	})
}

type CouponRequest struct {
	Code        string     `json:"code" validate:"required,max=64"`
	Discount    float64    `json:"discount" validate:"gt=0,lt=100"`
	Description string     `json:"description" validate:"max=500"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type CouponUpdateRequest struct {
	Code        *string    `json:"code" validate:"omitempty,max=64"`
	Discount    *float64   `json:"discount" validate:"omitempty,gt=0,lt=100"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.coupons.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []types.Coupon{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	coupon := types.Coupon{Code: req.Code, Discount: req.Discount, Description: req.Description}
	if req.ExpiresAt != nil {
		coupon.ExpiresAt = req.ExpiresAt.UTC()
	}
	created, err := h.coupons.Create(r.Context(), coupon)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CouponHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req CouponUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	updated, err := h.coupons.Update(r.Context(), chi.URLParam(r, "couponID"), types.CouponUpdate{
		Code:        req.Code,
		Discount:    req.Discount,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "couponID")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
