package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/internal/storage"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

// ProductHandler provides HTTP handlers for the product lifecycle and the voting ledger.
type ProductHandler struct {
	products *services.ProductService
	votes    *services.VoteService
	images   *storage.Storage
	authn    *Authenticator
	logger   *zap.Logger
}

// NewProductHandler constructs a handler. images may be nil, which disables uploads.
func NewProductHandler(
	products *services.ProductService,
	votes *services.VoteService,
	images *storage.Storage,
	authn *Authenticator,
	logger *zap.Logger,
) *ProductHandler {
	return &ProductHandler{products: products, votes: votes, images: images, authn: authn, logger: loggerOrNop(logger)}
}

// ProductRouter registers product routes on the given router.
func ProductRouter(r chi.Router, handler *ProductHandler) {
	authn := handler.authn

	r.Get("/", handler.List)
	r.With(authn.Authenticate).Post("/", handler.Create)
	r.With(authn.Authenticate).Get("/mine/{email}", handler.ListMine)
	r.Group(func(r chi.Router) {
		r.Use(authn.Authenticate, authn.RequireRole(moderationRoles...))
		r.Get("/review-queue", handler.ReviewQueue)
		r.Get("/reported", handler.ListReported)
	})
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Group(func(r chi.Router) {
			r.Use(authn.Authenticate)
			r.Patch("/", handler.Update)
			r.Delete("/", handler.Delete)
			r.Post("/report", handler.Report)
			r.Post("/upvote", handler.Upvote)
			r.Post("/unvote", handler.Unvote)
			r.Put("/image", handler.UploadImage)
			r.With(authn.RequireRole(moderationRoles...)).Patch("/status", handler.SetStatus)
		})
	})
}

type ProductRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	Image        string   `json:"image" validate:"omitempty,url"`
	ExternalLink string   `json:"externalLink" validate:"omitempty,http_url"`
	Tags         []string `json:"tags" validate:"max=20,dive,max=50"`
}

type ProductUpdateRequest struct {
	Name         *string  `json:"name" validate:"omitempty,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=5000"`
	Image        *string  `json:"image" validate:"omitempty,url"`
	ExternalLink *string  `json:"externalLink" validate:"omitempty,http_url"`
	Tags         []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type ProductListResponse struct {
	Items []types.Product `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

// List returns accepted products only. Query: search, page, limit, sort=newest|votes.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	sort, err := parseSort(r.URL.Query().Get("sort"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items, total, err := h.products.ListPublic(r.Context(), r.URL.Query().Get("search"), sort, offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductListResponse{Items: h.presentAll(r, items), Page: page, Limit: limit, Total: total})
}

// ReviewQueue is the moderation view of every product regardless of status.
func (h *ProductHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items, total, err := h.products.ListAll(r.Context(), r.URL.Query().Get("search"), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductListResponse{Items: h.presentAll(r, items), Page: page, Limit: limit, Total: total})
}

func (h *ProductHandler) ListReported(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items, total, err := h.products.ListReported(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductListResponse{Items: h.presentAll(r, items), Page: page, Limit: limit, Total: total})
}

// ListMine returns the caller's own products in every status.
func (h *ProductHandler) ListMine(w http.ResponseWriter, r *http.Request) {
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
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items, total, err := h.products.ListOwned(r.Context(), auth.NormalizeEmail(email), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductListResponse{Items: h.presentAll(r, items), Page: page, Limit: limit, Total: total})
}

// Get returns one product. Unlisted products are visible to their owner and
// moderators only; anyone else gets not found.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	claims, signedIn := h.authn.viewer(r)
	if err := h.authn.canView(r.Context(), claims, signedIn, product); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r, product))
}

// Create submits a product owned by the caller. It starts pending with no votes.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	created, err := h.products.Submit(r.Context(), types.Product{
		Name:         req.Name,
		Description:  req.Description,
		Image:        req.Image,
		ExternalLink: req.ExternalLink,
		Tags:         req.Tags,
		OwnerName:    claims.Name,
		OwnerImage:   claims.Photo,
	}, claims.Email)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present(r, created))
}

// Update edits the caller's own product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	if _, err := h.requireOwner(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req ProductUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	updated, err := h.products.Update(r.Context(), id, types.ProductUpdate{
		Name:         req.Name,
		Description:  req.Description,
		Image:        req.Image,
		ExternalLink: req.ExternalLink,
		Tags:         req.Tags,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r, updated))
}

// Delete removes a product. Owners may delete their own; moderators and admins any.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	id := chi.URLParam(r, "productID")

	if _, err := h.requireOwner(r.Context(), id); err != nil {
		if !errors.Is(err, auth.ErrForbidden) {
			writeServiceError(w, r, h.logger, err)
			return
		}
		if err := h.authn.checkRole(r.Context(), claims.Email, moderationRoles...); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}

	if err := h.products.Delete(r.Context(), id, claims.Email); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	id := chi.URLParam(r, "productID")
	if err := h.products.SetStatus(r.Context(), id, req.Status, claims.Email); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r, product))
}

func (h *ProductHandler) Report(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.products.Report(r.Context(), chi.URLParam(r, "productID"), claims.Email); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Upvote records the caller's vote. A repeated vote is a conflict, not a no-op.
func (h *ProductHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, h.votes.Upvote)
}

func (h *ProductHandler) Unvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, h.votes.Unvote)
}

func (h *ProductHandler) vote(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id, voter string) (types.Product, error),
) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	product, err := apply(r.Context(), chi.URLParam(r, "productID"), claims.Email)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r, product))
}

// UploadImage stores a multipart "image" file and points the product at it.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		writeError(w, http.StatusServiceUnavailable, kindUnavailable, "image uploads are not configured")
		return
	}
	id := chi.URLParam(r, "productID")
	product, err := h.requireOwner(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeServiceError(w, r, h.logger, invalidRequest("invalid multipart form"))
		return
	}
	file, _, err := r.FormFile(formFieldImage)
	if err != nil {
		writeServiceError(w, r, h.logger, invalidRequest("image file is required"))
		return
	}
	data, err := readFileLimited(file, maxImageBytes)
	_ = file.Close()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	contentType := http.DetectContentType(data)
	key, err := storage.ImageKey(product.ID, contentType)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.images.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	url := h.images.URL(key)
	updated, err := h.products.Update(r.Context(), product.ID, types.ProductUpdate{Image: &url})
	if err != nil {
		_ = h.images.Delete(context.WithoutCancel(r.Context()), key)
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r, updated))
}

// present marks whether the caller has voted. Voter identities stay server side.
func (h *ProductHandler) present(r *http.Request, product types.Product) types.Product {
	claims, signedIn := h.authn.viewer(r)
	product.HasVoted = signedIn && product.HasVoter(claims.Email)
	return product
}

func (h *ProductHandler) presentAll(r *http.Request, items []types.Product) []types.Product {
	claims, signedIn := h.authn.viewer(r)
	for i := range items {
		items[i].HasVoted = signedIn && items[i].HasVoter(claims.Email)
	}
	return items
}

// requireOwner loads the product and checks the caller owns it.
func (h *ProductHandler) requireOwner(ctx context.Context, id string) (types.Product, error) {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return types.Product{}, err
	}
	product, err := h.products.Get(ctx, id)
	if err != nil {
		return types.Product{}, err
	}
	if err := auth.RequireSelf(claims, product.OwnerEmail); err != nil {
		return types.Product{}, err
	}
	return product, nil
}

func parseSort(raw string) (types.ProductSort, error) {
	switch types.ProductSort(strings.ToLower(strings.TrimSpace(raw))) {
	case "", types.SortNewest:
		return types.SortNewest, nil
	case types.SortVotes:
		return types.SortVotes, nil
	default:
		return "", invalidRequest("sort must be newest or votes")
	}
}
