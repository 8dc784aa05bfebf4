package jwtx

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm is the only signing method request tokens use.
const Algorithm = "HS256"

// Signer turns a claim set into a compact signed token.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a token and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock sets the time source used to validate exp/nbf/iat.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithLeeway allows small clock skew when validating exp/nbf/iat.
func WithLeeway(d time.Duration) Option {
	return func(c *Codec) { c.leeway = d }
}

// Codec signs and verifies request tokens with HMAC-SHA256. It is built once
// at startup from the configured KeySet and shared.
type Codec struct {
	keys   *KeySet
	now    func() time.Time
	leeway time.Duration
}

var (
	_ Signer   = (*Codec)(nil)
	_ Verifier = (*Codec)(nil)
)

// NewCodec returns an HS256 codec over keys.
func NewCodec(keys *KeySet, opts ...Option) *Codec {
	c := &Codec{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sign checks the mandatory claims and signs with the current key.
func (c *Codec) Sign(claims Claims) (string, error) {
	if err := claims.CheckMandatory(); err != nil {
		return "", err
	}

	kid, key, err := c.keys.Current()
	if err != nil {
		return "", err
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = kid
	return t.SignedString(key)
}

// Verify checks signature and time claims, then the mandatory claims. No
// storage is consulted, garbage and forgeries are rejected here.
func (c *Codec) Verify(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(c.leeway),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, c.keyFunc)
	if err != nil {
		return Claims{}, classify(err)
	}

	if err := claims.CheckMandatory(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if kid, _ := t.Header["kid"].(string); kid != "" {
		return c.keys.Get(kid)
	}

	// Tokens minted without a kid are tried against every key we know.
	set := jwt.VerificationKeySet{}
	for _, key := range c.keys.All() {
		set.Keys = append(set.Keys, key)
	}
	return set, nil
}

// classify maps golang-jwt errors onto the jwtx sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKID):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid) && strings.Contains(err.Error(), "signing method"):
		return fmt.Errorf("%w: %w", ErrAlgMismatch, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %w", ErrNotYetValid, err)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}
}

// IsJWT reports whether raw looks like a JWT (typ header "JWT"). It does not
// verify anything.
func IsJWT(raw string) bool {
	if raw == "" {
		return false
	}

	t, _, err := jwt.NewParser().ParseUnverified(raw, &Claims{})
	if err != nil {
		return false
	}

	typ, _ := t.Header["typ"].(string)
	return strings.EqualFold(typ, "jwt")
}
