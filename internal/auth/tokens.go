package auth

import (
	"fmt"
	"time"

	"contest-quiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v4"
)

// Role names carried in the token.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Claims identify the holder of a cookie token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with the configured secret key.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// WithClock is test-only for deterministic expiry.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a token for subject in role, valid for ttl.
func (i *Issuer) Issue(role, subject string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks it was issued for role.
func (i *Issuer) Verify(tokenString, role string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.ExpiresAt == nil || !i.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}
	if claims.Role != role {
		return nil, fmt.Errorf("%w: role %q", domain.ErrUnauthorized, claims.Role)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrUnauthorized)
	}
	return claims, nil
}
