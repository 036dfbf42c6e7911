package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	reviews  *services.ReviewService
	products *services.ProductService
	authn    *Authenticator
	logger   *zap.Logger
}

func NewReviewHandler(
	reviews *services.ReviewService,
	products *services.ProductService,
	authn *Authenticator,
	logger *zap.Logger,
) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, products: products, authn: authn, logger: loggerOrNop(logger)}
}

// ReviewRouter registers review routes on the given router.
func ReviewRouter(r chi.Router, handler *ReviewHandler) {
	r.Get("/", handler.List)
	r.With(handler.authn.Authenticate).Post("/", handler.Create)
}

type ReviewRequest struct {
	ProductID   string `json:"productId" validate:"required"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Description string `json:"description" validate:"max=2000"`
}

// Create appends a review by the caller to an accepted product.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	created, err := h.reviews.Create(r.Context(), types.Review{
		ProductID:     req.ProductID,
		ReviewerEmail: claims.Email,
		ReviewerName:  claims.Name,
		ReviewerImage: claims.Photo,
		Rating:        req.Rating,
		Description:   req.Description,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List returns the reviews of ?productId=, newest first. Reviews of an
// unlisted product are as hidden as the product itself.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.URL.Query().Get("productId"))
	if productID == "" {
		writeServiceError(w, r, h.logger, invalidRequest("productId is required"))
		return
	}
	product, err := h.products.Get(r.Context(), productID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	claims, signedIn := h.authn.viewer(r)
	if err := h.authn.canView(r.Context(), claims, signedIn, product); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items, err := h.reviews.ListByProduct(r.Context(), product.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []types.Review{}
	}
	writeJSON(w, http.StatusOK, items)
}
