package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dimitrije/teamboard/internal/config"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ErrUnverifiedEmail rejects accounts whose email Google has not verified.
// Invitations match members by email, so it has to be trustworthy.
var ErrUnverifiedEmail = errors.New("email address is not verified")

// GoogleProvider signs members in through Google's OpenID Connect userinfo.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(cfg config.OAuthConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

// GetConsentURL always shows the account chooser so people on shared
// machines can switch accounts.
func (p *GoogleProvider) GetConsentURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type googleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*UserInfo, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if profile.Subject == "" {
		return nil, errors.New("google user info has no subject")
	}
	if !profile.EmailVerified {
		return nil, fmt.Errorf("%s: %w", profile.Email, ErrUnverifiedEmail)
	}

	return &UserInfo{
		Email:     strings.TrimSpace(profile.Email),
		Name:      strings.TrimSpace(profile.Name),
		AvatarURL: profile.Picture,
		ID:        profile.Subject,
		Provider:  "google",
	}, nil
}
