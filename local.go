package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// dummyDigest is compared against when the email is unknown so a login
// attempt costs roughly the same whether or not the account exists.
var dummyDigest = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// LocalAuthenticator verifies and registers email/password users against a
// Directory. Both operations run the Hasher to completion before returning;
// there is no fire-and-forget path.
type LocalAuthenticator struct {
	Directory Directory

	// Hasher used for digests. Nil means a default-cost bcrypt Hasher.
	Hasher *Hasher
}

func (l *LocalAuthenticator) hasher() *Hasher {
	if l.Hasher != nil {
		return l.Hasher
	}
	return &Hasher{}
}

// Authenticate verifies an email/password pair. Unknown emails and wrong
// passwords both come back as ErrAuthenticationFailed.
func (l *LocalAuthenticator) Authenticate(email, password string) (*User, error) {
	user, err := l.Directory.FindByEmail(NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.hasher().Verify(password, dummyDigest)
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}
	if !l.hasher().Verify(password, user.PasswordHash) {
		return nil, ErrAuthenticationFailed
	}
	return user, nil
}

// Register hashes the password and creates a new directory record. A taken
// email surfaces as ErrDuplicateIdentifier.
func (l *LocalAuthenticator) Register(email, password string) (*User, error) {
	digest, err := l.hasher().Hash(password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := &User{
		ID:           NewUserID(),
		Email:        NormalizeEmail(email),
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.Directory.Create(user); err != nil {
		return nil, err
	}
	slog.Info("registered local user", "userId", user.ID)
	return user, nil
}

// LoginHandlerFunc is called after a successful login or signup so the route
// layer can establish a session and respond.
type LoginHandlerFunc func(user *User, w http.ResponseWriter, r *http.Request)

// LocalAuth exposes login and signup over HTTP. ServeHTTP handles login;
// HandleSignup handles registration. Both accept form-encoded and JSON
// bodies.
type LocalAuth struct {
	Authenticator *LocalAuthenticator

	// Handler called after successful authentication
	HandleUser LoginHandlerFunc

	// Form field names. Default to "username" and "password".
	UsernameField string
	PasswordField string

	// Minimum password length for signup. Defaults to 8.
	MinPasswordLength int

	// OnLoginError is called when login fails. If nil, returns JSON error.
	OnLoginError AuthErrorHandler

	// OnSignupError is called when signup fails. If nil, returns JSON error.
	OnSignupError AuthErrorHandler
}

// ServeHTTP handles login requests
func (a *LocalAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.Authenticator == nil {
		http.Error(w, `{"error": "Login not configured"}`, http.StatusInternalServerError)
		return
	}

	email, password, err := a.parseCredentials(r)
	if err != nil {
		a.handleLoginError(NewAuthError(ErrCodeMissingField, err.Error(), "username"), w, r)
		return
	}

	user, err := a.Authenticator.Authenticate(email, password)
	if err != nil {
		if !errors.Is(err, ErrAuthenticationFailed) {
			slog.Error("error validating user", "err", err)
		}
		a.handleLoginError(NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password"), w, r)
		return
	}

	a.HandleUser(user, w, r)
}

// HandleSignup processes user registration
func (a *LocalAuth) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if a.Authenticator == nil {
		http.Error(w, `{"error": "Signup not configured"}`, http.StatusInternalServerError)
		return
	}

	email, password, err := a.parseCredentials(r)
	if err != nil {
		a.handleSignupError(NewAuthError(ErrCodeMissingField, err.Error(), "username"), w, r)
		return
	}

	if authErr := a.validateSignup(email, password); authErr != nil {
		a.handleSignupError(authErr, w, r)
		return
	}

	user, err := a.Authenticator.Register(email, password)
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			a.handleSignupError(NewAuthError(ErrCodeEmailExists, "Email already registered", "username"), w, r)
			return
		}
		slog.Error("error creating user", "err", err)
		a.handleSignupError(NewAuthError("create_failed", "Failed to create user", ""), w, r)
		return
	}

	// Log the user in right away
	a.HandleUser(user, w, r)
}

func (a *LocalAuth) validateSignup(email, password string) *AuthError {
	if !emailPattern.MatchString(email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "username")
	}
	minLen := a.MinPasswordLength
	if minLen <= 0 {
		minLen = 8
	}
	if len(password) < minLen {
		return NewAuthError(ErrCodeWeakPassword, fmt.Sprintf("Password must be at least %d characters", minLen), "password")
	}
	return nil
}

func (a *LocalAuth) parseCredentials(r *http.Request) (email, password string, err error) {
	usernameField := a.getUsernameField()
	passwordField := a.getPasswordField()

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err = r.ParseForm(); err != nil {
			return "", "", fmt.Errorf("error parsing form")
		}
		email = r.FormValue(usernameField)
		password = r.FormValue(passwordField)
	} else {
		var data map[string]any
		if err = json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", "", fmt.Errorf("invalid post body")
		}
		if u, ok := data[usernameField].(string); ok {
			email = u
		}
		if p, ok := data[passwordField].(string); ok {
			password = p
		}
	}

	if email == "" || password == "" {
		return "", "", fmt.Errorf("username and password required")
	}

	return email, password, nil
}

func (a *LocalAuth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username"
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}

// handleLoginError handles login errors using the configured handler or default JSON
func (a *LocalAuth) handleLoginError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnLoginError != nil && a.OnLoginError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusUnauthorized
	if err.Code == ErrCodeMissingField {
		statusCode = http.StatusBadRequest
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(err)
}

// handleSignupError handles signup errors using the configured handler or default JSON
func (a *LocalAuth) handleSignupError(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if a.OnSignupError != nil && a.OnSignupError(err, w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusBadRequest
	if err.Code == ErrCodeEmailExists {
		statusCode = http.StatusConflict
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(err)
}
