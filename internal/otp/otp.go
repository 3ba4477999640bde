// Package otp generates numeric delivery confirmation codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"foodDeliveryMarketplace/models"
)

const (
	DefaultLength = 4
	DefaultTTL    = time.Hour
	MinLength     = 4
	MaxLength     = 6
)

// Generator issues codes of a fixed number of digits that expire after TTL.
type Generator struct {
	length int
	ttl    time.Duration
	now    func() time.Time
	low    *big.Int
	span   *big.Int
}

// NewGenerator returns a generator; length must be within [MinLength, MaxLength].
func NewGenerator(length int, ttl time.Duration) (*Generator, error) {
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("otp length must be between %d and %d, got %d", MinLength, MaxLength, length)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("otp ttl must be positive, got %s", ttl)
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	high := new(big.Int).Mul(low, big.NewInt(10))
	return &Generator{
		length: length,
		ttl:    ttl,
		now:    time.Now,
		low:    low,
		span:   new(big.Int).Sub(high, low),
	}, nil
}

// WithClock replaces the time source. Used by tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Length is the number of digits per code.
func (g *Generator) Length() int { return g.length }

// TTL is how long a code stays valid.
func (g *Generator) TTL() time.Duration { return g.ttl }

// Now reports the generator's current time.
func (g *Generator) Now() time.Time { return g.now() }

// New returns a fresh code without a leading zero and its expiry.
// Expiry is kept at millisecond precision so it round-trips through storage unchanged.
func (g *Generator) New() (models.OTP, error) {
	n, err := rand.Int(rand.Reader, g.span)
	if err != nil {
		return models.OTP{}, fmt.Errorf("generate otp: %w", err)
	}
	n.Add(n, g.low)
	return models.OTP{
		Code:      n.String(),
		ExpiresAt: g.now().UTC().Add(g.ttl).Truncate(time.Millisecond),
	}, nil
}

// Expired reports whether a stored code can no longer be used at now.
// A missing code or expiry counts as expired.
func Expired(code *string, expiresAt *time.Time, now time.Time) bool {
	if code == nil || *code == "" || expiresAt == nil {
		return true
	}
	return !now.Before(*expiresAt)
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
