package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments *services.PaymentService
	logger   *zap.Logger
}

func NewPaymentHandler(payments *services.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: loggerOrNop(logger)}
}

// PaymentRouter registers payment routes on the given router. Every route
// requires a session.
func PaymentRouter(r chi.Router, handler *PaymentHandler, authn *Authenticator) {
	r.Use(authn.Authenticate)
	r.Post("/intent", handler.CreateIntent)
	r.Post("/", handler.Record)
	r.Get("/{email}", handler.List)
}

type IntentRequest struct {
	Price  float64 `json:"price"`
	Coupon string  `json:"coupon" validate:"max=64"`
}

type PaymentRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	TransactionID string  `json:"transactionId" validate:"required,max=255"`
	CouponCode    string  `json:"couponCode" validate:"max=64"`
}

// CreateIntent prices the charge for the caller and returns the processor's client secret.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req IntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	intent, err := h.payments.CreateIntent(r.Context(), claims.Email, req.Price, req.Coupon)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// Record stores the caller's completed payment and subscribes them once the
// processor confirms the charge.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req PaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := auth.RequireSelf(claims, req.Email); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	created, err := h.payments.Record(r.Context(), types.Payment{
		Email:         req.Email,
		Amount:        req.Amount,
		Currency:      req.Currency,
		TransactionID: req.TransactionID,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	email := chi.URLParam(r, "email")
	if err := auth.RequireSelf(claims, email); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items, err := h.payments.ListByEmail(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []types.Payment{}
	}
	writeJSON(w, http.StatusOK, items)
}
