package oauth2

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/github"

	auth "github.com/secretsapp/auth"
)

type GithubOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL can be overridden for testing.
	UserInfoURL string
}

func NewGithubOAuth2(clientId string, clientSecret string, callbackUrl string, handleProfile HandleProfileFunc) *GithubOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CALLBACK_URL"))
	}

	out := GithubOAuth2{
		BaseOAuth2:  newBaseOAuth2(clientId, clientSecret, callbackUrl, handleProfile),
		UserInfoURL: "https://api.github.com/user",
	}
	out.BaseOAuth2.oauthConfig.Endpoint = github.Endpoint
	out.BaseOAuth2.oauthConfig.Scopes = []string{
		"read:user", "user:email",
	}

	out.mux.HandleFunc("/callback/", out.handleCallback)

	return &out
}

func (g *GithubOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
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
		slog.Info("error fetching github profile", "err", err)
		http.Redirect(w, r, g.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	// GitHub subject ids are numeric
	subject, err := subjectID(userInfo, "id")
	if err != nil {
		slog.Info("github profile missing subject", "err", err)
		http.Redirect(w, r, g.failureURL(), http.StatusTemporaryRedirect)
		return
	}

	g.HandleProfile(auth.ProviderProfile{
		Provider:  "github",
		SubjectID: subject,
		Hints:     userInfo,
	}, token, w, r)
}
