package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

// CookiePolicy controls how the session cookie is sent. Production serves the
// API cross-site from the client, so it needs Secure with SameSite=None.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
}

// CookiePolicyFor returns the cookie policy for the deployment environment.
func CookiePolicyFor(production bool) CookiePolicy {
	if production {
		return CookiePolicy{Secure: true, SameSite: http.SameSiteNoneMode}
	}
	return CookiePolicy{Secure: false, SameSite: http.SameSiteStrictMode}
}

// AuthHandler exchanges an email and password for a session token.
type AuthHandler struct {
	users  *services.UserService
	tokens *auth.TokenService
	cookie CookiePolicy
	logger *zap.Logger
}

func NewAuthHandler(users *services.UserService, tokens *auth.TokenService, cookie CookiePolicy, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, cookie: cookie, logger: loggerOrNop(logger)}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, authn *Authenticator) {
	r.Post("/token", handler.IssueToken)
	r.Post("/logout", handler.Logout)
	r.With(authn.Authenticate).Get("/me", handler.Me)
}

type TokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type TokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      types.User `json:"user"`
}

type MeResponse struct {
	auth.Identity
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueToken checks the caller's password and sets a session cookie whose
// claims carry the role on record.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	identity := auth.Identity{Email: user.Email, Name: user.Name, Photo: user.Photo, Role: user.Role}
	token, expiresAt, err := h.tokens.Issue(identity)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// Logout clears the cookie. The token itself stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Me returns the claims of the presented token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := MeResponse{Identity: claims.Identity}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, resp)
}
