package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/admin"
	"github.com/xraph/pandda/id"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 12 * time.Hour

// ErrUnauthenticated is returned for a missing, malformed or expired token.
var ErrUnauthenticated = errors.New("pandda/api: unauthenticated")

type claims struct {
	jwt.RegisteredClaims
	Master bool `json:"master"`
}

// Tokens issues and verifies HS256 bearer tokens. The subject is the admin
// id and the master claim carries the admin's rights at issue time.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a Tokens signing with secret. A zero ttl uses
// DefaultTokenTTL; a nil now uses time.Now.
func NewTokens(secret string, ttl time.Duration, now func() time.Time) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue signs a token for a.
func (t *Tokens) Issue(a *admin.Admin) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, errors.New("pandda/api: token secret is empty")
	}
	now := t.now()
	expires := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Master: a.Master,
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("pandda/api: sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies raw and returns the actor it names.
func (t *Tokens) Parse(raw string) (pandda.Actor, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return pandda.Actor{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	adminID, err := id.ParseAdminID(c.Subject)
	if err != nil {
		return pandda.Actor{}, fmt.Errorf("%w: subject: %w", ErrUnauthenticated, err)
	}
	return pandda.Actor{ID: adminID, Master: c.Master}, nil
}
