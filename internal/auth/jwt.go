package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated covers missing, malformed, badly signed and expired
// tokens. Callers are not told which one it was.
var ErrUnauthenticated = errors.New("unauthenticated")

type Claims struct {
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for subject valid from now until now+ttl.
func (m *Manager) Issue(subject string, now time.Time) (string, error) {
	now = now.UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks the signature and that now is before the expiry, then
// returns the subject.
func (m *Manager) Verify(tokenStr string, now time.Time) (string, error) {
	if tokenStr == "" {
		return "", ErrUnauthenticated
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		return "", ErrUnauthenticated
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrUnauthenticated
	}

	return claims.Subject, nil
}
