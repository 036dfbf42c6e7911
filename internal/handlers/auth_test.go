package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (a *testAPI) register(t *testing.T, email, password string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/users", RegisterRequest{Email: email, Password: password, Name: "Ada"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestIssueTokenSetsSessionCookie(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "ada@x.com", "ada-password")

	rec := api.do(t, http.MethodPost, "/auth/token", TokenRequest{Email: "Ada@X.com", Password: "ada-password"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[TokenResponse](t, rec)
	assert.Equal(t, "ada@x.com", resp.User.Email)
	assert.Equal(t, types.RoleNone, resp.User.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, TokenCookie, cookie.Name)
	assert.Equal(t, resp.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	api.router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "ada@x.com", decode[MeResponse](t, me).Email)
}

func TestIssueTokenCarriesStoredRole(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "mod@x.com", "mod-password")
	require.NoError(t, api.users.SetRole(context.Background(), "mod@x.com", types.RoleModerator))

	rec := api.do(t, http.MethodPost, "/auth/token", TokenRequest{Email: "mod@x.com", Password: "mod-password"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	claims, err := api.tokens.Verify(decode[TokenResponse](t, rec).Token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleModerator, claims.Role)
}

func TestIssueTokenRejectsOtherUsersEmail(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "admin@x.com", "admin-password")
	require.NoError(t, api.users.SetRole(context.Background(), "admin@x.com", types.RoleAdmin))

	for _, req := range []TokenRequest{
		{Email: "admin@x.com", Password: "guessed-password"},
		{Email: "ghost@x.com", Password: "admin-password"},
	} {
		rec := api.do(t, http.MethodPost, "/auth/token", req, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, req.Email)
		assert.Equal(t, kindInvalidCredential, errorKind(t, rec))
		assert.Empty(t, rec.Result().Cookies())
	}

	rec := api.do(t, http.MethodPost, "/auth/token", map[string]string{"email": "admin@x.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Legacy accounts without a password cannot be claimed either.
	api.login(t, "nopass@x.com", types.RoleAdmin)
	rec = api.do(t, http.MethodPost, "/auth/token", TokenRequest{Email: "nopass@x.com", Password: "anything-at-all"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueTokenValidatesEmail(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/token", TokenRequest{Email: "nope", Password: "whatever-pass"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, kindInvalidInput, errorKind(t, rec))

	rec = api.do(t, http.MethodPost, "/auth/token", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, TokenCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuthenticationFailures(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, kindUnauthenticated, errorKind(t, rec))

	rec = api.do(t, http.MethodGet, "/auth/me", nil, "not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, kindInvalidCredential, errorKind(t, rec))

	other := auth.NewTokenService("another-secret", time.Hour)
	forged, _, err := other.Issue(auth.Identity{Email: "a@x.com", Role: types.RoleAdmin})
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/auth/me", nil, forged)
	assert.Equal(t, kindInvalidCredential, errorKind(t, rec))
}

func TestCookiePolicyFor(t *testing.T) {
	prod := CookiePolicyFor(true)
	assert.True(t, prod.Secure)
	assert.Equal(t, http.SameSiteNoneMode, prod.SameSite)

	dev := CookiePolicyFor(false)
	assert.False(t, dev.Secure)
	assert.Equal(t, http.SameSiteStrictMode, dev.SameSite)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]bool{
		"Bearer abc": true,
		"bearer abc": true,
		"Basic abc":  false,
		"Bearer ":    false,
		"":           false,
		"Bearerabc":  false,
	}
	for header, ok := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		token, err := bearerToken(req)
		if ok {
			assert.NoError(t, err, header)
			assert.Equal(t, "abc", strings.TrimSpace(token))
		} else {
			assert.Error(t, err, header)
		}
	}
}
