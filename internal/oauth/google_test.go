package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dimitrije/teamboard/internal/config"
)

func TestGoogleProvider_Config(t *testing.T) {
	provider := NewGoogleProvider(config.OAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost/callback",
	})

	assert.Equal(t, "google", provider.Name())
	assert.Equal(t, google.Endpoint.TokenURL, provider.config.Endpoint.TokenURL)
	assert.ElementsMatch(t, []string{"openid", "email", "profile"}, provider.config.Scopes)

	url := provider.GetConsentURL("test-state")
	assert.Contains(t, url, "accounts.google.com")
	assert.Contains(t, url, "client_id=test-client-id")
	assert.Contains(t, url, "state=test-state")
	assert.Contains(t, url, "prompt=select_account")
}

func newFakeGoogle(t *testing.T, profileJSON string, status int) *GoogleProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(profileJSON))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	provider := NewGoogleProvider(config.OAuthConfig{ClientID: "id", ClientSecret: "secret"})
	provider.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token", AuthURL: server.URL + "/auth"}
	provider.userInfoURL = server.URL + "/userinfo"
	return provider
}

func TestGoogleProvider_ExchangeCode(t *testing.T) {
	provider := newFakeGoogle(t,
		`{"sub":"g-1","email":"ana@example.com","email_verified":true,"name":" Ana ","picture":"https://img"}`,
		http.StatusOK)

	info, err := provider.ExchangeCode(context.Background(), "code")

	require.NoError(t, err)
	assert.Equal(t, &UserInfo{
		Email:     "ana@example.com",
		Name:      "Ana",
		AvatarURL: "https://img",
		ID:        "g-1",
		Provider:  "google",
	}, info)
}

func TestGoogleProvider_ExchangeCode_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		errText string
		is      error
	}{
		{name: "upstream error", body: `{}`, status: http.StatusUnauthorized, errText: "status 401"},
		{name: "bad json", body: `{`, status: http.StatusOK, errText: "failed to decode"},
		{name: "no subject", body: `{"email":"ana@example.com","email_verified":true}`, status: http.StatusOK, errText: "no subject"},
		{name: "unverified", body: `{"sub":"g-1","email":"ana@example.com"}`, status: http.StatusOK, is: ErrUnverifiedEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeGoogle(t, tt.body, tt.status)

			_, err := provider.ExchangeCode(context.Background(), "code")

			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			} else {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}
