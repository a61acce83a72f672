package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type principalKey struct{}

// PrincipalFromContext returns the principal stashed by ExtractUser, or nil
// for an anonymous request.
func PrincipalFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(principalKey{}).(*User)
	return user
}

// Middleware resolves the request principal and gates protected routes. The
// principal comes from the session first; API callers can instead present the
// signed auth token via header or cookie.
type Middleware struct {
	Sessions *Sessions

	// AuthTokenHeaderName is the header checked for a signed token.
	// Defaults to "Authorization".
	AuthTokenHeaderName string

	// CallbackURLParam is the query param carrying the original URL on a
	// login redirect. Defaults to "callbackURL".
	CallbackURLParam string

	// GetRedirURL returns the login entry point to redirect anonymous
	// callers to. When nil, EnsureUser responds 401 instead.
	GetRedirURL func(r *http.Request) string
}

func (m *Middleware) ensureDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.CallbackURLParam == "" {
		m.CallbackURLParam = "callbackURL"
	}
}

// ExtractUser resolves the principal and makes it available to downstream
// handlers via PrincipalFromContext. It never redirects; anonymous requests
// pass through unannotated.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.ensureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.principal(r); user != nil {
			r = r.WithContext(context.WithValue(r.Context(), principalKey{}, user))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureUser is ExtractUser plus the gate: anonymous callers are redirected
// to the login entry point (carrying the original URL) or get a 401 when no
// redirect target is configured.
func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	m.ensureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.principal(r)
		if user == nil {
			redirURL := ""
			if m.GetRedirURL != nil {
				redirURL = m.GetRedirURL(r)
			}
			if redirURL != "" {
				encoded := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
				http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", redirURL, m.CallbackURLParam, encoded), http.StatusFound)
			} else {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, user)))
	})
}

// principal resolves the caller: session first, then signed tokens from the
// auth header or cookie.
func (m *Middleware) principal(r *http.Request) *User {
	if user := m.Sessions.Current(r); user != nil {
		return user
	}

	var tokens []string
	for _, v := range r.Header.Values(m.AuthTokenHeaderName) {
		tokens = append(tokens, strings.TrimPrefix(v, "Bearer "))
	}
	for _, cookie := range r.CookiesNamed(m.Sessions.AuthTokenCookieName) {
		if cookie.Value != "" {
			tokens = append(tokens, cookie.Value)
		}
	}

	for _, token := range tokens {
		userID, err := m.Sessions.VerifyToken(token)
		if err != nil {
			slog.Warn("error verifying auth token", "err", err)
			continue
		}
		user, err := m.Sessions.Codec.Principal(userID)
		if err == nil {
			return user
		}
	}
	return nil
}
