// Package auth verifies administrator bearer tokens and throttles callers.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
)

// RoleAdmin is the only role allowed to query the synthesis engine
const RoleAdmin = "admin"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("admin role required")
)

// Claims are the JWT claims carried by an admin token
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a verifier for secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, error) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", domain.NewError(domain.KindAuthorization, "authorization header must be a bearer token", ErrMissingToken)
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}

// Verify parses tokenString and requires the admin role. Every failure is a
// domain.Error of kind authorization; ErrForbidden marks a valid token that
// lacks the role.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, domain.NewError(domain.KindAuthorization, "missing token", ErrMissingToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, domain.NewError(domain.KindAuthorization, "invalid or expired token", fmt.Errorf("%w: %v", ErrInvalidToken, err))
	}
	if !token.Valid {
		return nil, domain.NewError(domain.KindAuthorization, "invalid or expired token", ErrInvalidToken)
	}

	if claims.Role != RoleAdmin {
		return nil, domain.NewError(domain.KindAuthorization, "admin role required", ErrForbidden)
	}
	return claims, nil
}

// Issue signs an admin-capable token for subject. It is used by tooling and
// tests; production tokens come from the identity provider.
func (v *Verifier) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
