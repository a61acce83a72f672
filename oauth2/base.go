package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// BaseOAuth2 carries the pieces shared by every provider: client credentials,
// the state-checked callback plumbing, and the HandleProfile hook.
type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// HandleProfile is invoked with the provider profile after a successful
	// handshake.
	HandleProfile HandleProfileFunc

	// AuthFailureUrl is where failed handshakes redirect. Defaults to "/login".
	AuthFailureUrl string

	oauthConfig oauth2.Config
	mux         *http.ServeMux

	// httpClient is injectable for tests. Defaults to http.DefaultClient.
	httpClient *http.Client
}

func newBaseOAuth2(clientId, clientSecret, callbackUrl string, handleProfile HandleProfileFunc) *BaseOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_CALLBACK_URL"))
	}
	out := &BaseOAuth2{
		ClientId:      clientId,
		ClientSecret:  clientSecret,
		CallbackURL:   callbackUrl,
		HandleProfile: handleProfile,
		mux:           http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	return out
}

// ServeHTTP dispatches to the redirector or the provider's callback handler.
// Mount the provider under a prefix like /auth/google with the prefix
// stripped.
func (b *BaseOAuth2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// SetHTTPClient overrides the client used for profile fetches (testing).
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.httpClient = client
}

func (b *BaseOAuth2) getHTTPClient() *http.Client {
	if b.httpClient != nil {
		return b.httpClient
	}
	return http.DefaultClient
}

func (b *BaseOAuth2) failureURL() string {
	if b.AuthFailureUrl != "" {
		return b.AuthFailureUrl
	}
	return "/login"
}

// checkState validates the callback against the state cookie set by the
// redirector.
func (b *BaseOAuth2) checkState(w http.ResponseWriter, r *http.Request) bool {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		http.Error(w, "missing oauth state", http.StatusBadRequest)
		return false
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{Name: "oauthstate", MaxAge: 0})
		http.Error(w, fmt.Sprintf("invalid oauth state: %s", r.FormValue("state")), http.StatusBadRequest)
		return false
	}
	return true
}

// exchange trades the callback code for an access token.
func (b *BaseOAuth2) exchange(r *http.Request) (*oauth2.Token, error) {
	return b.oauthConfig.Exchange(context.Background(), r.FormValue("code"))
}

// fetchJSON performs an authenticated GET against a provider API and decodes
// the JSON body.
func (b *BaseOAuth2) fetchJSON(url string, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := b.getHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return userInfo, nil
}
