package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/models"
	"github.com/01moynul/qr-inventory/internal/sheets"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's OpenID userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// ProviderConfig configures the Google OAuth provider. Zero endpoints fall
// back to Google's.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	HTTPClient   *http.Client
}

// Provider runs the consent flow and looks up the signed-in user.
type Provider struct {
	conf        *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewProvider(cfg ProviderConfig) *Provider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Provider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       sheets.Scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		httpClient:  client,
	}
}

// AuthCodeURL is the consent page the browser is sent to.
func (p *Provider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for an access token.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		status := 0
		if errors.As(err, &rerr) && rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		return nil, apperr.RemoteRequest(status, "Failed to sign in. Please try again.", err)
	}
	return token, nil
}

// FetchUserInfo returns the profile behind accessToken.
func (p *Provider) FetchUserInfo(ctx context.Context, accessToken string) (models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.User{}, apperr.RemoteRequest(0, "Failed to fetch user info", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return models.User{}, apperr.RemoteUnavailable("Access token rejected. Please sign in again.")
	}
	if resp.StatusCode != http.StatusOK {
		return models.User{}, apperr.RemoteRequest(resp.StatusCode, "Failed to fetch user info", nil)
	}

	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return models.User{}, apperr.RemoteRequest(resp.StatusCode, "Failed to fetch user info", err)
	}
	return user, nil
}
