package auth

import (
	"errors"
	"net/http"
	"time"
)

// CookieName is the session cookie carrying the JWT.
const CookieName = "token"

// ParseFromRequest reads the JWT from the session cookie, falling back to an
// Authorization: Bearer header.
func ParseFromRequest(r *http.Request, secret string) (*Principal, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return ParseToken(c.Value, secret)
	}
	if h := r.Header.Get("Authorization"); h != "" {
		tok, err := bearerToken(h)
		if err != nil {
			return nil, err
		}
		return ParseToken(tok, secret)
	}
	return nil, errors.New("token not found")
}

// Middleware injects the principal into the request context when a valid token
// is present. Requests without a token pass through; handlers decide whether
// authentication is required.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, err := ParseFromRequest(r, secret); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionCookie builds the cookie that carries a freshly issued token.
func SessionCookie(token string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearedCookie expires the session cookie.
func ClearedCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
