package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"golang.org/x/oauth2"
)

// FederatedIdentity is what a third-party provider tells us about a user.
type FederatedIdentity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// FederatedProvider drives an OAuth 2.0 authorization code flow with PKCE
// against one third-party provider.
type FederatedProvider interface {
	Strategy() string
	AuthCodeURL(state, redirectURL, codeChallenge string) string
	Exchange(ctx context.Context, code, verifier, redirectURL string) (*FederatedIdentity, error)
}

const federatedCallTimeout = 15 * time.Second

// OAuth2Provider is a FederatedProvider for OpenID Connect style providers
// exposing a userinfo endpoint.
type OAuth2Provider struct {
	strategy    string
	config      oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewOAuth2Provider returns nil when no client id is configured.
func NewOAuth2Provider(cfg *config.Config) *OAuth2Provider {
	if cfg.OAuthClientID == "" {
		return nil
	}
	return &OAuth2Provider{
		strategy: cfg.OAuthStrategy,
		config: oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
			Scopes: []string{"openid", "email", "profile"},
		},
		userInfoURL: cfg.OAuthUserInfoURL,
		httpClient:  &http.Client{Timeout: federatedCallTimeout},
	}
}

func (p *OAuth2Provider) Strategy() string { return p.strategy }

func (p *OAuth2Provider) configFor(redirectURL string) *oauth2.Config {
	c := p.config
	c.RedirectURL = redirectURL
	return &c
}

func (p *OAuth2Provider) AuthCodeURL(state, redirectURL, codeChallenge string) string {
	return p.configFor(redirectURL).AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type userInfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
}

// Exchange trades the authorization code for a token and fetches the
// user's profile with it.
func (p *OAuth2Provider) Exchange(ctx context.Context, code, verifier, redirectURL string) (*FederatedIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	c := p.configFor(redirectURL)

	tok, err := c.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrFederatedExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrFederatedExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: userinfo status %d: %s", ErrFederatedExchange, resp.StatusCode, body)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", ErrFederatedExchange, err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: userinfo without subject or email", ErrFederatedExchange)
	}

	first, last := info.GivenName, info.FamilyName
	if first == "" && last == "" {
		first, last = splitName(info.Name)
	}
	return &FederatedIdentity{Subject: info.Sub, Email: info.Email, FirstName: first, LastName: last}, nil
}

func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}
