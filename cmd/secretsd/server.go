package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	oauth2lib "golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auth "github.com/secretsapp/auth"
	"github.com/secretsapp/auth/oauth2"
	gormstore "github.com/secretsapp/auth/stores/gorm"
)

type server struct {
	cfg      config
	log      zerolog.Logger
	dir      auth.Directory
	local    *auth.LocalAuth
	resolver *auth.Resolver
	sessions *auth.Sessions
	mw       *auth.Middleware
	router   *mux.Router
}

func newServer(cfg config) (*server, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	srv := &server{
		cfg: cfg,
		log: zerolog.New(os.Stderr).With().Timestamp().Logger(),
		dir: gormstore.NewDirectory(db),
	}

	srv.sessions = (&auth.Sessions{
		Manager:      scs.New(),
		Codec:        &auth.Codec{Directory: srv.dir},
		JWTSecretKey: cfg.JWTSecretKey,
	}).EnsureDefaults()

	srv.local = &auth.LocalAuth{
		Authenticator: &auth.LocalAuthenticator{Directory: srv.dir},
		HandleUser:    srv.handleLoggedIn,
		OnLoginError:  srv.backToForm("/login"),
		OnSignupError: srv.backToForm("/register"),
	}

	srv.resolver = &auth.Resolver{Directory: srv.dir}

	srv.mw = &auth.Middleware{
		Sessions:    srv.sessions,
		GetRedirURL: func(r *http.Request) string { return "/login" },
	}

	srv.routes()
	return srv, nil
}

func (s *server) routes() {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.Handle("/login", s.local).Methods(http.MethodPost)
	r.HandleFunc("/register", s.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", s.local.HandleSignup).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)

	r.Handle("/secrets", s.mw.EnsureUser(http.HandlerFunc(s.handleSecrets))).Methods(http.MethodGet)
	r.Handle("/submit", s.mw.EnsureUser(http.HandlerFunc(s.handleSubmitForm))).Methods(http.MethodGet)
	r.Handle("/submit", s.mw.EnsureUser(http.HandlerFunc(s.handleSubmit))).Methods(http.MethodPost)

	s.mountProvider(r, "google", oauth2.NewGoogleOAuth2("", "", "", s.handleProviderLogin))
	s.mountProvider(r, "github", oauth2.NewGithubOAuth2("", "", "", s.handleProviderLogin))
	s.mountProvider(r, "facebook", oauth2.NewFacebookOAuth2("", "", "", s.handleProviderLogin))

	s.router = r
}

func (s *server) mountProvider(r *mux.Router, name string, handler http.Handler) {
	prefix := "/auth/" + name
	r.PathPrefix(prefix + "/").Handler(http.StripPrefix(prefix, handler))
	r.Handle(prefix, http.RedirectHandler(prefix+"/", http.StatusPermanentRedirect))
}

func (s *server) listen(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.sessions.Manager.LoadAndSave(s.router),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()
	s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")
	err := httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// handleLoggedIn establishes the session after a local login or signup.
func (s *server) handleLoggedIn(user *auth.User, w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Login(user, w, r); err != nil {
		s.log.Error().Err(err).Msg("failed to establish session")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// handleProviderLogin resolves an OAuth profile to a user and logs them in.
func (s *server) handleProviderLogin(profile auth.ProviderProfile, token *oauth2lib.Token, w http.ResponseWriter, r *http.Request) {
	user, err := s.resolver.Resolve(profile)
	if err != nil {
		s.log.Error().Err(err).Str("provider", profile.Provider).Msg("failed to resolve provider identity")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	s.handleLoggedIn(user, w, r)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *server) handleSecrets(w http.ResponseWriter, r *http.Request) {
	user := auth.PrincipalFromContext(r.Context())
	secret := user.Secret
	if secret == "" {
		secret = "You have no secret yet. Submit one!"
	}
	s.page(w, "Secrets", fmt.Sprintf(`
<h1>Your Secret</h1>
<p>%s</p>
<p><a href="/submit">Submit a secret</a> | <a href="/logout">Log out</a></p>`, html.EscapeString(secret)))
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	user := auth.PrincipalFromContext(r.Context())
	if _, err := auth.UpdateSecret(s.dir, user.ID, r.FormValue("secret")); err != nil {
		s.log.Error().Err(err).Str("userId", user.ID).Msg("failed to update secret")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

// backToForm redirects auth errors back to the originating form with the
// message in the query string.
func (s *server) backToForm(formURL string) auth.AuthErrorHandler {
	return func(err *auth.AuthError, w http.ResponseWriter, r *http.Request) bool {
		http.Redirect(w, r, fmt.Sprintf("%s?error=%s", formURL, err.Code), http.StatusFound)
		return true
	}
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.page(w, "Secrets", `
<h1>Secrets</h1>
<p>Don't keep your secrets, share them anonymously!</p>
<p><a href="/login">Login</a> | <a href="/register">Register</a></p>`)
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.page(w, "Login", `
<h1>Login</h1>
<form method="POST" action="/login">
	<label>Email: <input type="email" name="username" required></label>
	<label>Password: <input type="password" name="password" required></label>
	<button type="submit">Login</button>
</form>
<p><a href="/auth/google/">Sign in with Google</a></p>
<p><a href="/auth/github/">Sign in with GitHub</a></p>
<p><a href="/auth/facebook/">Sign in with Facebook</a></p>`)
}

func (s *server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.page(w, "Register", `
<h1>Register</h1>
<form method="POST" action="/register">
	<label>Email: <input type="email" name="username" required></label>
	<label>Password: <input type="password" name="password" required minlength="8"></label>
	<button type="submit">Register</button>
</form>`)
}

func (s *server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	s.page(w, "Submit a Secret", `
<h1>Submit a Secret</h1>
<form method="POST" action="/submit">
	<label>Secret: <input type="text" name="secret" required></label>
	<button type="submit">Submit</button>
</form>`)
}

func (s *server) page(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>%s
</body>
</html>`, html.EscapeString(title), body)
}
