package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Account roles shared by every service. Role is carried in the signed token
// and asserted from claims only; a role change takes effect on the next issue.
const (
	RoleCustomer   = "customer"
	RoleTechnician = "technician"
	RoleAdmin      = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

type Claims struct {
	Sub   uuid.UUID `json:"sub"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
	jwt.RegisteredClaims
}

// Authority issues and verifies signed identity tokens. Verification is local
// and stateless: every service holds the same symmetric secret and never calls
// back to the issuer.
type Authority struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthority(secret string, ttl time.Duration) *Authority {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authority{secret: []byte(secret), ttl: ttl}
}

func (a *Authority) Issue(sub uuid.UUID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:   sub,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify returns the decoded claims, ErrTokenExpired for a token past its
// expiry, or ErrTokenMalformed for anything else (bad signature, wrong
// algorithm, garbage input).
func (a *Authority) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// FromHeader extracts the raw token from an Authorization header value,
// tolerating an optional "Bearer " prefix.
func FromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
