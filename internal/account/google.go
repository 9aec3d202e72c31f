package account

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig configures Google sign-in. Endpoint and UserInfoURL default to
// Google's production endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
}

// GoogleProfile is the subset of the userinfo response we use.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GoogleAuth runs the OAuth2 authorization code flow against Google.
type GoogleAuth struct {
	oauth       *oauth2.Config
	client      *resty.Client
	userInfoURL string
}

// NewGoogleAuth creates a Google sign-in client.
func NewGoogleAuth(cfg GoogleConfig) *GoogleAuth {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = defaultUserInfoURL
	}
	return &GoogleAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoint,
		},
		client:      resty.New(),
		userInfoURL: userInfo,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (g *GoogleAuth) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Profile exchanges an authorization code and fetches the user's profile.
func (g *GoogleAuth) Profile(ctx context.Context, code string) (*GoogleProfile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	var profile GoogleProfile
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&profile).
		Get(g.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode(), resp.Body())
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("userinfo has no id")
	}
	return &profile, nil
}
