// Package oauth implements the external sign-in strategies on top of
// golang.org/x/oauth2.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/tingyu91/snsjf/internal/domain/user"
	"golang.org/x/oauth2"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Strategy is one named external authentication mechanism.
type Strategy interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (user.Profile, error)
}

type ProviderConfig struct {
	Name            string
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	Scopes          []string
	Endpoint        oauth2.Endpoint
	UserInfoURL     string
	IdentifierField string
	// MapProfile turns the userinfo document into a profile.
	MapProfile func(data user.ProviderData) user.Profile
}

type Provider struct {
	cfg             ProviderConfig
	oauth           *oauth2.Config
	httpClient      *http.Client
	identifierField string
}

func NewProvider(cfg ProviderConfig) *Provider {
	return &Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     cfg.Endpoint,
		},
		identifierField: cfg.IdentifierField,
	}
}

// WithHTTPClient sets the client used for the token exchange and userinfo
// calls.
func (p *Provider) WithHTTPClient(c *http.Client) *Provider {
	p.httpClient = c
	return p
}

func (p *Provider) Name() string {
	return p.cfg.Name
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *Provider) Exchange(ctx context.Context, code string) (user.Profile, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return user.Profile{}, fmt.Errorf("%s: exchange code: %w", p.cfg.Name, err)
	}

	data, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return user.Profile{}, err
	}

	profile := p.cfg.MapProfile(data)
	profile.Provider = p.cfg.Name
	profile.IdentifierField = p.identifierField
	profile.ProviderData = data

	if profile.Identifier() == "" {
		return user.Profile{}, fmt.Errorf("%s: userinfo missing %q", p.cfg.Name, p.identifierField)
	}
	return profile, nil
}

func (p *Provider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (user.ProviderData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: userinfo: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: userinfo status %d: %s", p.cfg.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data user.ProviderData
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&data); err != nil {
		return nil, fmt.Errorf("%s: decode userinfo: %w", p.cfg.Name, err)
	}
	return data, nil
}

// Registry looks strategies up by provider name.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
	return r
}

func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return s, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewState returns an unguessable value for the state parameter.
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
