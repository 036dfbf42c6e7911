package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/producthunt/apiserver/types"
)

// DefaultTokenTTL bounds the lifetime of an issued session token.
const DefaultTokenTTL = 5 * time.Hour

const tokenIssuer = "producthunt"

var (
	// ErrUnauthenticated is returned when no credential was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredential is returned for a bad signature, malformed or expired token.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrForbidden is returned when the identity is authenticated but not authorized.
	ErrForbidden = errors.New("forbidden")
)

// Identity is the set of user fields embedded in a session token.
type Identity struct {
	Email string     `json:"email"`
	Name  string     `json:"name,omitempty"`
	Photo string     `json:"photo,omitempty"`
	Role  types.Role `json:"role,omitempty"`
}

// Claims is a point-in-time snapshot of an identity. It is not re-validated
// against stored user data until the next issuance.
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService. A non-positive ttl selects DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime applied to issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for identity with an absolute expiry of now+TTL.
func (s *TokenService) Issue(identity Identity) (string, time.Time, error) {
	identity.Email = NormalizeEmail(identity.Email)
	if identity.Email == "" {
		return "", time.Time{}, errors.New("identity email is required")
	}
	if identity.Role == "" {
		identity.Role = types.RoleNone
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of tokenString and returns its claims.
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, ErrUnauthenticated
	}

	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidCredential
	}
	if claims.Email == "" {
		return Claims{}, fmt.Errorf("%w: missing email", ErrInvalidCredential)
	}
	return claims, nil
}

// NormalizeEmail trims and lower-cases an email so identities compare reliably.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
