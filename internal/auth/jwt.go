package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"foodDeliveryMarketplace/models"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

// RoleSystem marks internal callers (OTP verification, scheduled jobs). It never appears in tokens.
const RoleSystem models.Role = "system"

// Principal represents the authenticated caller from JWT.
type Principal struct {
	UserID string
	Role   models.Role
}

// System returns the principal used for agent-driven and scheduled transitions.
func System() *Principal {
	return &Principal{UserID: "system", Role: RoleSystem}
}

// IsSystem reports whether p is the internal system principal.
func (p *Principal) IsSystem() bool { return p != nil && p.Role == RoleSystem }

// IsSuperAdmin reports whether p is a super admin.
func (p *Principal) IsSuperAdmin() bool { return p != nil && p.Role == models.RoleSuperAdmin }

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

type claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the principal valid for ttl.
func IssueToken(secret string, p Principal, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if p.UserID == "" || p.Role == "" {
		return "", errors.New("principal is incomplete")
	}
	c := claims{
		UserID: p.UserID,
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseFromMD extracts and validates a Bearer JWT from gRPC metadata and returns a Principal.
func ParseFromMD(ctx context.Context, secret string) (*Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.New("missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return nil, errors.New("missing authorization")
	}
	tokenStr, err := bearerToken(vals[0])
	if err != nil {
		return nil, err
	}
	return ParseToken(tokenStr, secret)
}

func bearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ParseToken validates and extracts claims from a JWT token.
func ParseToken(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.UserID == "" || c.Role == "" {
		return nil, errors.New("invalid claims")
	}
	role := models.Role(c.Role)
	if !role.Valid() {
		return nil, errors.New("invalid role claim")
	}
	return &Principal{UserID: c.UserID, Role: role}, nil
}
