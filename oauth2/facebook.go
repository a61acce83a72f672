package oauth2

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/facebook"

	auth "github.com/secretsapp/auth"
)

type FacebookOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL can be overridden for testing.
	UserInfoURL string
}

func NewFacebookOAuth2(clientId string, clientSecret string, callbackUrl string, handleProfile HandleProfileFunc) *FacebookOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CALLBACK_URL"))
	}

	out := FacebookOAuth2{
		BaseOAuth2:  newBaseOAuth2(clientId, clientSecret, callbackUrl, handleProfile),
		UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
	}
	out.BaseOAuth2.oauthConfig.Endpoint = facebook.Endpoint
	out.BaseOAuth2.oauthConfig.Scopes = []string{
		"public_profile", "email",
	}

	out.mux.HandleFunc("/callback/", out.handleCallback)

	return &out
}

func (f *FacebookOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !f.checkState(w, r) {
		return
	}

	token, err := f.exchange(r)
	if err != nil {
		slog.Info("invalid code exchange", "err", err)
		http.Redirect(w, r, f.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	userInfo, err := f.fetchJSON(f.UserInfoURL, token)
	if err != nil {
		slog.Info("error fetching facebook profile", "err", err)
		http.Redirect(w, r, f.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	subject, err := subjectID(userInfo, "id")
	if err != nil {
		slog.Info("facebook profile missing subject", "err", err)
		http.Redirect(w, r, f.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	f.HandleProfile(auth.ProviderProfile{
		Provider:  "facebook",
		SubjectID: subject,
		Hints:     userInfo,
	}, token, w, r)
}
