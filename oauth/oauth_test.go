package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstream struct {
	t        *testing.T
	mux      *http.ServeMux
	srv      *httptest.Server
	registry *Registry
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{t: t, mux: http.NewServeMux()}
	u.srv = httptest.NewServer(u.mux)
	t.Cleanup(u.srv.Close)

	providers := map[string]ProviderConfig{}
	for _, name := range []string{Google, Microsoft, GitHub, LinkedIn, Gravatar} {
		providers[name] = ProviderConfig{
			ClientID:     name + "-client",
			ClientSecret: name + "-secret",
			Endpoints: Endpoints{
				TokenURL:   u.srv.URL + "/" + name + "/token",
				ProfileURL: u.srv.URL + "/" + name + "/me",
				EmailURL:   u.srv.URL + "/" + name + "/emails",
			},
		}
	}
	u.registry = NewRegistry(Config{
		RedirectURL: "https://care.example.org/auth/callback",
		HTTPClient:  u.srv.Client(),
		Providers:   providers,
	})
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// token serves a successful exchange for provider after checking the form.
func (u *upstream) token(provider string) {
	u.mux.HandleFunc("/"+provider+"/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(u.t, http.MethodPost, r.Method)
		assert.NoError(u.t, r.ParseForm())
		assert.Equal(u.t, "good-code", r.PostForm.Get("code"))
		assert.Equal(u.t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(u.t, provider+"-client", r.PostForm.Get("client_id"))
		assert.Equal(u.t, provider+"-secret", r.PostForm.Get("client_secret"))
		assert.Equal(u.t, "https://care.example.org/auth/callback", r.PostForm.Get("redirect_uri"))
		writeJSON(w, http.StatusOK, map[string]any{"access_token": provider + "-token", "token_type": "bearer"})
	})
}

func (u *upstream) json(path, wantToken string, status int, body any) {
	u.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(u.t, "Bearer "+wantToken, r.Header.Get("Authorization"))
		writeJSON(w, status, body)
	})
}

func TestGoogleIdentify(t *testing.T) {
	u := newUpstream(t)
	u.token(Google)
	u.json("/google/me", "google-token", http.StatusOK, map[string]any{
		"id":    "g-1",
		"email": "ada@example.com",
		"name":  "Ada King Lovelace",
	})

	id, err := u.registry.Identify(context.Background(), Google, Credentials{Code: "good-code"})
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "ada@example.com", GivenName: "Ada", FamilyName: "King Lovelace", ProviderID: "g-1"}, id)
}

func TestGoogleExchangeFailure(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/google/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	})

	_, err := u.registry.Identify(context.Background(), Google, Credentials{Code: "bad"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, StageExchange, StageOf(err))
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	assert.Equal(t, "Failed to exchange authorization code", Message(err))
}

func TestCodeProvidersRequireCode(t *testing.T) {
	u := newUpstream(t)
	for _, name := range []string{Google, GitHub, LinkedIn, Gravatar} {
		_, err := u.registry.Identify(context.Background(), name, Credentials{})
		assert.ErrorIs(t, err, ErrMissingCode, name)
		assert.Equal(t, "Authorization code is required", Message(err), name)
	}
}

func TestGoogleProfileFailure(t *testing.T) {
	u := newUpstream(t)
	u.token(Google)
	u.json("/google/me", "google-token", http.StatusUnauthorized, map[string]any{})

	_, err := u.registry.Identify(context.Background(), Google, Credentials{Code: "good-code"})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, StageProfile, StageOf(err))
	assert.Equal(t, "Failed to get user information", Message(err))
}

func TestMicrosoftIdentify(t *testing.T) {
	u := newUpstream(t)
	u.json("/microsoft/me", "ms-token", http.StatusOK, map[string]any{
		"id":                "ms-1",
		"userPrincipalName": "nurse@contoso.org",
		"surname":           "Nightingale",
	})

	_, err := u.registry.Identify(context.Background(), Microsoft, Credentials{AccessToken: "ms-token"})
	assert.ErrorIs(t, err, ErrMissingAccessToken)
	assert.Equal(t, "Access token and account information are required", Message(err))

	id, err := u.registry.Identify(context.Background(), Microsoft, Credentials{
		AccessToken: "ms-token",
		Account:     map[string]any{"homeAccountId": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "nurse@contoso.org", GivenName: "User", FamilyName: "Nightingale", ProviderID: "ms-1"}, id)
}

func TestMicrosoftProfileFailureMessage(t *testing.T) {
	u := newUpstream(t)
	u.json("/microsoft/me", "ms-token", http.StatusForbidden, map[string]any{})

	_, err := u.registry.Identify(context.Background(), Microsoft, Credentials{AccessToken: "ms-token", Account: map[string]any{}})
	assert.Equal(t, "Failed to get user information from Microsoft", Message(err))
	assert.Equal(t, http.StatusForbidden, StatusOf(err))
}

func TestGitHubIdentifyWithEmailFallback(t *testing.T) {
	u := newUpstream(t)
	u.token(GitHub)
	u.mux.HandleFunc("/github/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, githubUserAgent, r.Header.Get("User-Agent"))
		writeJSON(w, http.StatusOK, map[string]any{"id": 583231, "login": "octocat", "name": nil, "email": nil})
	})
	u.json("/github/emails", "github-token", http.StatusOK, []map[string]any{
		{"email": "secondary@example.com", "primary": false},
		{"email": "octo@example.com", "primary": true},
	})

	id, err := u.registry.Identify(context.Background(), GitHub, Credentials{Code: "good-code"})
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "octo@example.com", GivenName: "octocat", ProviderID: "583231"}, id)
}

func TestGitHubErrorBody(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/github/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":             "bad_verification_code",
			"error_description": "The code passed is incorrect or expired.",
		})
	})

	_, err := u.registry.Identify(context.Background(), GitHub, Credentials{Code: "stale"})
	require.Error(t, err)
	assert.Equal(t, "The code passed is incorrect or expired.", Message(err))
	assert.Equal(t, StageExchange, StageOf(err))
}

func TestGitHubWithoutEmail(t *testing.T) {
	u := newUpstream(t)
	u.token(GitHub)
	u.json("/github/me", "github-token", http.StatusOK, map[string]any{"id": 7, "login": "ghost", "name": "Casper The Ghost"})
	u.json("/github/emails", "github-token", http.StatusNotFound, map[string]any{})

	_, err := u.registry.Identify(context.Background(), GitHub, Credentials{Code: "good-code"})
	assert.ErrorIs(t, err, ErrNoEmail)
	assert.Equal(t, "Unable to get email address from GitHub", Message(err))
}

func TestLinkedInEmailFallback(t *testing.T) {
	u := newUpstream(t)
	u.token(LinkedIn)
	u.json("/linkedin/me", "linkedin-token", http.StatusOK, map[string]any{
		"sub":         "li-9",
		"given_name":  "Mary",
		"family_name": "Seacole",
	})
	u.json("/linkedin/emails", "linkedin-token", http.StatusOK, map[string]any{
		"elements": []map[string]any{{"handle~": map[string]any{"emailAddress": "mary@example.com"}}},
	})

	id, err := u.registry.Identify(context.Background(), LinkedIn, Credentials{Code: "good-code"})
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "mary@example.com", GivenName: "Mary", FamilyName: "Seacole", ProviderID: "li-9"}, id)
}

func TestLinkedInProfileFailureMessage(t *testing.T) {
	u := newUpstream(t)
	u.token(LinkedIn)
	u.json("/linkedin/me", "linkedin-token", http.StatusInternalServerError, map[string]any{})

	_, err := u.registry.Identify(context.Background(), LinkedIn, Credentials{Code: "good-code"})
	assert.Equal(t, "Failed to get user profile information", Message(err))
}

func TestGravatarIdentify(t *testing.T) {
	u := newUpstream(t)
	u.token(Gravatar)
	u.json("/gravatar/me", "gravatar-token", http.StatusOK, map[string]any{
		"ID":           12345,
		"email":        "wp@example.com",
		"display_name": "",
		"username":     "wpuser",
	})

	id, err := u.registry.Identify(context.Background(), Gravatar, Credentials{Code: "good-code"})
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "wp@example.com", GivenName: "wpuser", ProviderID: "12345"}, id)
}

func TestRegistryUnknownProvider(t *testing.T) {
	u := newUpstream(t)
	assert.Equal(t, []string{GitHub, Google, Gravatar, LinkedIn, Microsoft}, u.registry.Names())
	assert.True(t, u.registry.Has(Google))
	assert.False(t, u.registry.Has("myspace"))

	_, err := u.registry.Identify(context.Background(), "myspace", Credentials{Code: "x"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	registry := NewRegistry(Config{
		HTTPTimeout: 50 * time.Millisecond,
		HTTPClient:  srv.Client(),
		Providers: map[string]ProviderConfig{
			Microsoft: {Endpoints: Endpoints{ProfileURL: srv.URL}},
		},
	})

	start := time.Now()
	_, err := registry.Identify(context.Background(), Microsoft, Credentials{AccessToken: "t", Account: map[string]any{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
