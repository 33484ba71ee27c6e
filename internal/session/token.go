package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a portal token that is malformed, expired or forged.
var ErrInvalidToken = errors.New("invalid portal token")

// Claims are carried by portal tokens. The subject is the session id.
type Claims struct {
	Role   string `json:"role"`
	UserID uint   `json:"user_id"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies portal tokens with HS256.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	name   string
	now    func() time.Time
}

// NewIssuer builds a token issuer.
func NewIssuer(secret string, ttl time.Duration, name string) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		name:   name,
		now:    time.Now,
	}
}

// Issue signs a token for sess and returns it with its expiry.
func (i *Issuer) Issue(sess *Session) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Role:   sess.Role,
		UserID: sess.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.ID,
			Issuer:    i.name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign portal token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies a token and returns its claims.
func (i *Issuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
