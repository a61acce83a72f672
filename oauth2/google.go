package oauth2

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"

	auth "github.com/secretsapp/auth"
)

type GoogleOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL can be overridden for testing.
	UserInfoURL string
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleProfile HandleProfileFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL"))
	}

	out := GoogleOAuth2{
		BaseOAuth2:  newBaseOAuth2(clientId, clientSecret, callbackUrl, handleProfile),
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
	out.BaseOAuth2.oauthConfig.Endpoint = google.Endpoint
	out.BaseOAuth2.oauthConfig.Scopes = []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}

	out.mux.HandleFunc("/callback/", out.handleCallback)

	return &out
}

func (g *GoogleOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !g.checkState(w, r) {
		return
	}

	token, err := g.exchange(r)
	if err != nil {
		slog.Info("invalid code exchange", "err", err)
		http.Redirect(w, r, g.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	userInfo, err := g.fetchJSON(g.UserInfoURL, token)
	if err != nil {
		slog.Info("error fetching google profile", "err", err)
		http.Redirect(w, r, g.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	subject, err := subjectID(userInfo, "id")
	if err != nil {
		slog.Info("google profile missing subject", "err", err)
		http.Redirect(w, r, g.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	g.HandleProfile(auth.ProviderProfile{
		Provider:  "google",
		SubjectID: subject,
		Hints:     userInfo,
	}, token, w, r)
}
