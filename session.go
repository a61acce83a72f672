package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Codec translates between an authenticated user and the small opaque token
// kept in the session store. The token is the user id — never the credential
// digest or profile data.
type Codec struct {
	Directory Directory
}

// Token serializes a user to its session token.
func (c *Codec) Token(user *User) string {
	return user.ID
}

// Principal reconstructs the user behind a session token. A token with no
// matching record yields ErrSessionInvalid; callers should degrade to
// anonymous, not fail the request.
func (c *Codec) Principal(token string) (*User, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}
	user, err := c.Directory.FindByID(token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return user, nil
}

// IsAuthenticated is the gate predicate consulted by route handlers. It
// performs no redirection; that is the caller's responsibility.
func IsAuthenticated(principal *User) bool {
	return principal != nil
}

// Sessions owns the session side of authentication: storing the codec token
// on login, clearing it on logout, and reconstructing the principal on each
// request. It also issues a signed JWT cookie so API calls can authenticate
// with a header instead of the session cookie.
type Sessions struct {
	Manager *scs.SessionManager
	Codec   *Codec

	// Name of the session variable holding the principal token
	TokenSessionVar string

	// Name of the cookie carrying the signed auth token
	AuthTokenCookieName string

	JWTIssuer    string
	JWTSecretKey string

	// How long a login is valid for. Defaults to 1 day.
	SessionTimeout time.Duration
}

// EnsureDefaults fills in reasonable values for any unset fields.
func (s *Sessions) EnsureDefaults() *Sessions {
	if s.TokenSessionVar == "" {
		s.TokenSessionVar = "principalToken"
	}
	if s.AuthTokenCookieName == "" {
		s.AuthTokenCookieName = "SecretsAuthToken"
	}
	if s.JWTIssuer == "" {
		s.JWTIssuer = "SecretsApp"
	}
	if s.JWTSecretKey == "" {
		s.JWTSecretKey = strings.TrimSpace(os.Getenv("SECRETS_JWT_SECRET_KEY"))
		if s.JWTSecretKey == "" {
			s.JWTSecretKey = "MyTestJWTSecretKey123456"
		}
	}
	if s.SessionTimeout <= 0 {
		s.SessionTimeout = 24 * time.Hour
	}
	return s
}

// Login records the user as the session principal and sets the auth token
// cookie. The session moves from Anonymous to Authenticated.
func (s *Sessions) Login(user *User, w http.ResponseWriter, r *http.Request) error {
	s.EnsureDefaults()
	token := s.Codec.Token(user)
	s.Manager.Put(r.Context(), s.TokenSessionVar, token)

	signed, err := s.SignToken(user.ID)
	if err != nil {
		return fmt.Errorf("failed to sign auth token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.AuthTokenCookieName,
		Value:    signed,
		Path:     "/",
		Expires:  time.Now().Add(s.SessionTimeout),
		MaxAge:   int(s.SessionTimeout / time.Second),
		HttpOnly: true,
	})
	return nil
}

// Logout clears the session principal and expires the auth token cookie. The
// session moves back to Anonymous.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) {
	s.EnsureDefaults()
	if err := s.Manager.Destroy(r.Context()); err != nil {
		slog.Warn("error destroying session", "err", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:    s.AuthTokenCookieName,
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
}

// Current returns the session principal for this request, or nil when the
// caller is anonymous. A stale token (user since removed) also comes back as
// anonymous.
func (s *Sessions) Current(r *http.Request) *User {
	s.EnsureDefaults()
	token := s.sessionToken(r)
	user, err := s.Codec.Principal(token)
	if err != nil {
		if !errors.Is(err, ErrSessionInvalid) {
			slog.Error("error loading session principal", "err", err)
		}
		return nil
	}
	return user
}

// sessionToken reads the principal token from the scs session. Requests that
// never passed through the session middleware (header-authenticated API
// calls) carry no session data; they read as anonymous.
func (s *Sessions) sessionToken(r *http.Request) (token string) {
	defer func() {
		if recover() != nil {
			token = ""
		}
	}()
	return s.Manager.GetString(r.Context(), s.TokenSessionVar)
}

// IsAuthenticated reports whether this request carries a valid principal.
func (s *Sessions) IsAuthenticated(r *http.Request) bool {
	return IsAuthenticated(s.Current(r))
}

// SignToken issues a short JWT whose subject is the user id.
func (s *Sessions) SignToken(userID string) (string, error) {
	s.EnsureDefaults()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iss": s.JWTIssuer,
		"exp": now.Add(s.SessionTimeout).Unix(),
		"iat": now.Unix(),
	})
	return token.SignedString([]byte(s.JWTSecretKey))
}

// VerifyToken parses a signed auth token and returns the user id it names.
func (s *Sessions) VerifyToken(tokenString string) (string, error) {
	s.EnsureDefaults()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(s.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}
