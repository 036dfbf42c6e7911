package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

// UserHandler provides HTTP handlers for users and their roles.
type UserHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

func NewUserHandler(users *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: loggerOrNop(logger)}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler, authn *Authenticator) {
	r.Post("/", handler.Register)
	r.With(authn.Authenticate, authn.RequireRole(adminRoles...)).Get("/", handler.List)
	r.Route("/{email}/role", func(r chi.Router) {
		r.Use(authn.Authenticate)
		r.Get("/", handler.GetRole)
		r.With(authn.RequireRole(adminRoles...)).Patch("/", handler.SetRole)
	})
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=200"`
	Photo    string `json:"photo" validate:"omitempty,url"`
}

type RegisterResponse struct {
	User    types.User `json:"user"`
	Created bool       `json:"created"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=none moderator admin"`
}

type RoleResponse struct {
	Email     string     `json:"email"`
	Role      types.Role `json:"role"`
	Admin     bool       `json:"admin"`
	Moderator bool       `json:"moderator"`
}

type UserListResponse struct {
	Items []types.User `json:"items"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
}

// Register stores the user unless the email is already known. Repeating the
// call is not an error, but it never changes the stored password; callers
// still need that password at /auth/token.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, created, err := h.users.Register(r.Context(), types.User{Email: req.Email, Name: req.Name, Photo: req.Photo}, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, RegisterResponse{User: user, Created: created})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	items, total, err := h.users.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Items: items, Page: page, Limit: limit, Total: total})
}

// GetRole reports the stored role of the caller. Other users' roles are forbidden.
func (h *UserHandler) GetRole(w http.ResponseWriter, r *http.Request) {
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

	role, err := h.users.Role(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RoleResponse{
		Email:     auth.NormalizeEmail(email),
		Role:      role,
		Admin:     role == types.RoleAdmin,
		Moderator: role == types.RoleModerator,
	})
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	email := chi.URLParam(r, "email")
	if err := h.users.SetRole(r.Context(), email, req.Role); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	role, err := h.users.Role(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RoleResponse{
		Email:     auth.NormalizeEmail(email),
		Role:      role,
		Admin:     role == types.RoleAdmin,
		Moderator: role == types.RoleModerator,
	})
}
