package oauth2

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"

	auth "github.com/secretsapp/auth"
)

func TestOauthRedirector(t *testing.T) {
	config := &oauth2.Config{
		ClientID:    "client-id",
		RedirectURL: "http://localhost/auth/test/callback/",
		Endpoint:    oauth2.Endpoint{AuthURL: "https://provider.example/auth"},
	}

	req := httptest.NewRequest(http.MethodGet, "/?callbackURL=/secrets", nil)
	w := httptest.NewRecorder()
	OauthRedirector(config)(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}

	var state, callback string
	for _, cookie := range w.Result().Cookies() {
		switch cookie.Name {
		case "oauthstate":
			state = cookie.Value
		case "oauthCallbackURL":
			callback = cookie.Value
		}
	}
	if state == "" {
		t.Fatal("oauthstate cookie not set")
	}
	if callback != "/secrets" {
		t.Errorf("oauthCallbackURL cookie = %q, want /secrets", callback)
	}

	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("redirect location unparseable: %v", err)
	}
	if loc.Host != "provider.example" {
		t.Errorf("redirected to %q, want the provider consent page", loc.Host)
	}
	if got := loc.Query().Get("state"); got != state {
		t.Errorf("state param %q does not match cookie %q", got, state)
	}
}

func TestSubjectID(t *testing.T) {
	cases := []struct {
		name     string
		userInfo map[string]any
		field    string
		want     string
		wantErr  bool
	}{
		{"string id", map[string]any{"id": "abc123"}, "id", "abc123", false},
		{"numeric id", map[string]any{"id": float64(583231)}, "id", "583231", false},
		{"missing field", map[string]any{"login": "octo"}, "id", "", true},
		{"empty string", map[string]any{"id": ""}, "id", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := subjectID(tc.userInfo, tc.field)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("subjectID failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("subjectID = %q, want %q", got, tc.want)
			}
		})
	}
}

// mockProvider stands in for the provider's token and profile endpoints.
func mockProvider(t *testing.T, profileJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "mock-access-token", "token_type": "bearer"}`)
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer mock-access-token" {
			t.Errorf("profile fetch auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, profileJSON)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func callbackRequest(state string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/callback/?state="+state+"&code=mock-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "good-state"})
	return req
}

func TestGithubCallback(t *testing.T) {
	provider := mockProvider(t, `{"id": 583231, "login": "octocat"}`)

	var got auth.ProviderProfile
	g := NewGithubOAuth2("client-id", "client-secret", "http://localhost/callback/",
		func(profile auth.ProviderProfile, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
			got = profile
			w.WriteHeader(http.StatusOK)
		})
	g.oauthConfig.Endpoint = oauth2.Endpoint{
		TokenURL:  provider.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	g.UserInfoURL = provider.URL + "/profile"

	w := httptest.NewRecorder()
	g.ServeHTTP(w, callbackRequest("good-state"))

	if w.Code != http.StatusOK {
		t.Fatalf("callback status = %d, body %q", w.Code, w.Body.String())
	}
	if got.Provider != "github" {
		t.Errorf("provider = %q, want github", got.Provider)
	}
	if got.SubjectID != "583231" {
		t.Errorf("subject id = %q, want 583231", got.SubjectID)
	}
	if got.Hints["login"] != "octocat" {
		t.Errorf("hints missing profile data: %v", got.Hints)
	}
}

func TestGoogleCallback(t *testing.T) {
	provider := mockProvider(t, `{"id": "108234", "email": "sam@example.com"}`)

	var got auth.ProviderProfile
	g := NewGoogleOAuth2("client-id", "client-secret", "http://localhost/callback/",
		func(profile auth.ProviderProfile, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
			got = profile
			w.WriteHeader(http.StatusOK)
		})
	g.oauthConfig.Endpoint = oauth2.Endpoint{
		TokenURL:  provider.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	g.UserInfoURL = provider.URL + "/profile"

	w := httptest.NewRecorder()
	g.ServeHTTP(w, callbackRequest("good-state"))

	if w.Code != http.StatusOK {
		t.Fatalf("callback status = %d, body %q", w.Code, w.Body.String())
	}
	if got.Provider != "google" || got.SubjectID != "108234" {
		t.Errorf("profile = %+v", got)
	}
}

func TestCallbackRejectsBadState(t *testing.T) {
	called := false
	g := NewGithubOAuth2("client-id", "client-secret", "http://localhost/callback/",
		func(profile auth.ProviderProfile, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
			called = true
		})

	w := httptest.NewRecorder()
	g.ServeHTTP(w, callbackRequest("forged-state"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if called {
		t.Error("HandleProfile called despite state mismatch")
	}
}

func TestCallbackRequiresStateCookie(t *testing.T) {
	called := false
	g := NewGithubOAuth2("client-id", "client-secret", "http://localhost/callback/",
		func(profile auth.ProviderProfile, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
			called = true
		})

	req := httptest.NewRequest(http.MethodGet, "/callback/?state=anything&code=mock-code", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if called {
		t.Error("HandleProfile called without a state cookie")
	}
}

func TestCallbackFailedExchangeRedirects(t *testing.T) {
	// Token endpoint that refuses the code.
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad_verification_code"}`, http.StatusUnauthorized)
	}))
	defer provider.Close()

	g := NewGithubOAuth2("client-id", "client-secret", "http://localhost/callback/",
		func(profile auth.ProviderProfile, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
			t.Error("HandleProfile called despite failed exchange")
		})
	g.oauthConfig.Endpoint = oauth2.Endpoint{TokenURL: provider.URL, AuthStyle: oauth2.AuthStyleInParams}
	g.AuthFailureUrl = "/login?error=oauth"

	w := httptest.NewRecorder()
	g.ServeHTTP(w, callbackRequest("good-state"))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?error=oauth" {
		t.Errorf("redirect location = %q", loc)
	}
}
