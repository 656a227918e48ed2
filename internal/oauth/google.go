package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var ErrProvider = errors.New("oauth provider error")

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Profile is the identity asserted by the provider after a successful exchange.
type Profile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type GoogleProvider struct {
	OAuth       *oauth2.Config
	UserInfoURL string
	HTTPClient  *http.Client
}

func NewGoogle(cfg Config) *GoogleProvider {
	return &GoogleProvider{
		OAuth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		UserInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleProvider) Configured() bool {
	return g != nil && g.OAuth.ClientID != "" && g.OAuth.ClientSecret != ""
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a token and fetches the user profile.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	if g.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)
	}

	tok, err := g.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build userinfo request: %v", ErrProvider, err)
	}
	res, err := g.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrProvider, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrProvider, res.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", ErrProvider, err)
	}
	if p.Email == "" {
		return nil, fmt.Errorf("%w: userinfo without email", ErrProvider)
	}
	return &p, nil
}
