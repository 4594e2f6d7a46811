package oauth

import (
	"strings"

	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"golang.org/x/oauth2/endpoints"
)

func Google(clientID, clientSecret, redirectURL string) *Provider {
	return NewProvider(ProviderConfig{
		Name:            "google",
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		RedirectURL:     redirectURL,
		Scopes:          []string{"openid", "profile", "email"},
		Endpoint:        endpoints.Google,
		UserInfoURL:     "https://openidconnect.googleapis.com/v1/userinfo",
		IdentifierField: "sub",
		MapProfile: func(d user.ProviderData) user.Profile {
			email := d.String("email")
			return user.Profile{
				Username:    localPart(email),
				Email:       email,
				FirstName:   d.String("given_name"),
				LastName:    d.String("family_name"),
				DisplayName: d.String("name"),
			}
		},
	})
}

func GitHub(clientID, clientSecret, redirectURL string) *Provider {
	return NewProvider(ProviderConfig{
		Name:            "github",
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		RedirectURL:     redirectURL,
		Scopes:          []string{"read:user", "user:email"},
		Endpoint:        endpoints.GitHub,
		UserInfoURL:     "https://api.github.com/user",
		IdentifierField: "id",
		MapProfile: func(d user.ProviderData) user.Profile {
			first, last := splitName(d.String("name"))
			return user.Profile{
				Username:    d.String("login"),
				Email:       d.String("email"),
				FirstName:   first,
				LastName:    last,
				DisplayName: d.String("name"),
			}
		},
	})
}

// FromConfig builds every provider that has credentials configured.
func FromConfig(cfg config.OAuth) *Registry {
	base := strings.TrimRight(cfg.CallbackBaseURL, "/")

	var strategies []Strategy
	if cfg.GoogleClientID != "" {
		strategies = append(strategies, Google(cfg.GoogleClientID, cfg.GoogleClientSecret, base+"/api/auth/google/callback"))
	}
	if cfg.GitHubClientID != "" {
		strategies = append(strategies, GitHub(cfg.GitHubClientID, cfg.GitHubClientSecret, base+"/api/auth/github/callback"))
	}
	return NewRegistry(strategies...)
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexByte(name, ' '); i > 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}
