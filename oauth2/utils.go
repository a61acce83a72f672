// Package oauth2 holds the provider handshakes for the Secrets application.
// Each provider type drives the redirect/callback dance with its identity
// provider and hands the resulting profile — provider name, subject id,
// profile hints — to a HandleProfileFunc. The authentication core never sees
// any of this; it only consumes the ProviderProfile.
package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	auth "github.com/secretsapp/auth"
)

// HandleProfileFunc receives the provider profile after a successful
// handshake, typically to resolve a user and establish a session.
type HandleProfileFunc func(profile auth.ProviderProfile, token *oauth2.Token, w http.ResponseWriter, r *http.Request)

func generateStateOauthCookie(w http.ResponseWriter) string {
	expiration := time.Now().Add(30 * 24 * time.Hour)
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	cookie := http.Cookie{Name: "oauthstate", Value: state, Path: "/", Expires: expiration}
	http.SetCookie(w, &cookie)
	return state
}

// OauthRedirector starts the handshake: it records a state cookie (and the
// URL to come back to after login) and redirects to the provider's consent
// page.
func OauthRedirector(oauthConfig *oauth2.Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		callbackURL := r.URL.Query().Get("callbackURL")
		if callbackURL != "" {
			http.SetCookie(w, &http.Cookie{
				Name:    "oauthCallbackURL",
				Value:   callbackURL,
				Path:    "/",
				Expires: time.Now().Add(24 * time.Hour),
				MaxAge:  120, // keep this short
			})
		}
		oauthState := generateStateOauthCookie(w)
		u := oauthConfig.AuthCodeURL(oauthState)
		http.Redirect(w, r, u, http.StatusFound)
	}
}

// subjectID extracts the provider's subject id from a decoded profile.
// Providers disagree on the type: Google and Facebook return strings, GitHub
// returns a JSON number.
func subjectID(userInfo map[string]any, field string) (string, error) {
	switch v := userInfo[field].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	}
	return "", fmt.Errorf("profile has no usable %q field", field)
}
