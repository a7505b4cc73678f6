package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

var ErrAuthFailed = errors.New("linkedin auth failed")

const (
	scopeOpenID  = "openid"
	scopeProfile = "profile"
	scopeEmail   = "email"

	defaultUserInfoURL = "https://api.linkedin.com/v2/userinfo"
)

// Profile is the transient user data fetched from the provider; the service
// caches a subset of it onto the user record.
type Profile struct {
	ID      string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Config holds the provider credentials; injected at construction, never read
// from ambient globals.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Client performs the LinkedIn authorization-URL generation, code-for-token
// exchange, and userinfo fetch.
type Client struct {
	cfg         *oauth2.Config
	hc          *http.Client
	userInfoURL string
}

type Option func(*Client)

// WithEndpoint overrides the provider token endpoint; used in tests.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(c *Client) {
		c.cfg.Endpoint = ep
	}
}

// WithUserInfoURL overrides the userinfo endpoint; used in tests.
func WithUserInfoURL(url string) Option {
	return func(c *Client) {
		c.userInfoURL = url
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{scopeOpenID, scopeProfile, scopeEmail},
			Endpoint:     linkedin.Endpoint,
		},
		hc:          http.DefaultClient,
		userInfoURL: defaultUserInfoURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AuthCodeURL builds the provider authorization URL carrying the given
// anti-CSRF state.
func (c *Client) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state)
}

// Exchange swaps an authorization code for an access token. Provider
// rejections of the code map to ErrAuthFailed; transport failures pass
// through wrapped.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.hc)

	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			if rerr.Response.StatusCode == http.StatusBadRequest || rerr.Response.StatusCode == http.StatusUnauthorized {
				return "", ErrAuthFailed
			}
		}

		return "", fmt.Errorf("exchange code: %w", err)
	}

	return tok.AccessToken, nil
}

// UserInfo fetches the profile for an access token. It is used both right
// after an exchange and later with the token stored on the user record.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.hc.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Profile{}, ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decode userinfo: %w", err)
	}

	return p, nil
}
