package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/metrics"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/types"
	"go.uber.org/zap"
)

// TokenCookie is the cookie carrying the session token.
const TokenCookie = "token"

var (
	moderationRoles = []types.Role{types.RoleModerator, types.RoleAdmin}
	adminRoles      = []types.Role{types.RoleAdmin}
)

// Authenticator gates routes on a valid session token and, optionally, on the
// caller's stored role.
type Authenticator struct {
	tokens *auth.TokenService
	users  *services.UserService
	logger *zap.Logger
}

func NewAuthenticator(tokens *auth.TokenService, users *services.UserService, logger *zap.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, logger: loggerOrNop(logger)}
}

// Authenticate verifies the session token and stores its claims on the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.RequireAuthenticated(a.tokens, tokenFromRequest(r))
		if err != nil {
			writeServiceError(w, r, a.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// RequireRole admits callers whose stored role is one of allowed. The role
// claim in the token is not trusted because it may be stale.
func (a *Authenticator) RequireRole(allowed ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.ClaimsFromContext(r.Context())
			if err != nil {
				writeServiceError(w, r, a.logger, err)
				return
			}
			if err := a.checkRole(r.Context(), claims.Email, allowed...); err != nil {
				writeServiceError(w, r, a.logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) checkRole(ctx context.Context, email string, allowed ...types.Role) error {
	role, err := a.users.Role(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.ErrForbidden
		}
		return err
	}
	return auth.RequireRole(role, allowed...)
}

// viewer returns the caller's claims when the request carries a valid session
// token. Anonymous requests and bad tokens both report false.
func (a *Authenticator) viewer(r *http.Request) (auth.Claims, bool) {
	if claims, err := auth.ClaimsFromContext(r.Context()); err == nil {
		return claims, true
	}
	token := tokenFromRequest(r)
	if token == "" {
		return auth.Claims{}, false
	}
	claims, err := auth.RequireAuthenticated(a.tokens, token)
	if err != nil {
		return auth.Claims{}, false
	}
	return claims, true
}

// canView admits anyone to accepted products. Pending and rejected products
// are visible to their owner and to moderators, and read as not found to
// everyone else.
func (a *Authenticator) canView(ctx context.Context, claims auth.Claims, signedIn bool, product types.Product) error {
	if product.Status == types.StatusAccepted {
		return nil
	}
	if !signedIn {
		return store.ErrNotFound
	}
	if auth.RequireSelf(claims, product.OwnerEmail) == nil {
		return nil
	}
	if err := a.checkRole(ctx, claims.Email, moderationRoles...); err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

// tokenFromRequest prefers the session cookie and falls back to a bearer header.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	token, err := bearerToken(r)
	if err != nil {
		return ""
	}
	return token
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

// RequestLogger logs one line per request with its matched route and outcome.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("route", routePattern(r)),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				}
				if status >= http.StatusInternalServerError {
					logger.Warn("request served", fields...)
					return
				}
				logger.Info("request served", fields...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// Instrument records request counts and latency by route pattern.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(routePattern(r), r.Method, status, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
