package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/producthunt/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService("super-secret", 0)
	signed, expiresAt, err := tokens.Issue(Identity{Email: " Alice@Example.com ", Role: types.RoleModerator})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, 5*time.Second)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, types.RoleModerator, claims.Role)
	assert.Equal(t, "alice@example.com", claims.Subject)
}

func TestIssueDefaultsRoleToNone(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService("secret", time.Hour)
	signed, _, err := tokens.Issue(Identity{Email: "bob@example.com"})
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, types.RoleNone, claims.Role)
}

func TestIssueRequiresEmail(t *testing.T) {
	t.Parallel()

	_, _, err := NewTokenService("secret", time.Hour).Issue(Identity{Email: "   "})
	assert.Error(t, err)
}

func TestVerifyMissingToken(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService("secret", time.Hour).Verify("")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService("secret", time.Hour)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	signed, _, err := tokens.Issue(Identity{Email: "a@x.com"})
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()

	signed, _, err := NewTokenService("right-secret", time.Hour).Issue(Identity{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = NewTokenService("wrong-secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService("k", time.Hour).Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := Claims{
		Identity: Identity{Email: "a@x.com"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService("k", time.Hour).Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestRequireSelf(t *testing.T) {
	t.Parallel()

	claims := Claims{Identity: Identity{Email: "a@x.com", Role: types.RoleAdmin}}

	assert.NoError(t, RequireSelf(claims, "A@x.com"))
	assert.ErrorIs(t, RequireSelf(claims, "b@x.com"), ErrForbidden)
	assert.ErrorIs(t, RequireSelf(claims, ""), ErrForbidden)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	assert.NoError(t, RequireRole(types.RoleAdmin, types.RoleModerator, types.RoleAdmin))
	assert.ErrorIs(t, RequireRole(types.RoleNone, types.RoleModerator, types.RoleAdmin), ErrForbidden)
	assert.ErrorIs(t, RequireRole(types.RoleModerator, types.RoleAdmin), ErrForbidden)
}

func TestClaimsFromContext(t *testing.T) {
	t.Parallel()

	_, err := ClaimsFromContext(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ctx := WithClaims(context.Background(), Claims{Identity: Identity{Email: "a@x.com"}})
	claims, err := ClaimsFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong horse"), ErrInvalidCredential)
	assert.ErrorIs(t, CheckPassword("", "correct horse"), ErrInvalidCredential)
}

func TestHashPasswordLength(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordLength+1))
	assert.ErrorIs(t, err, ErrWeakPassword)
}
