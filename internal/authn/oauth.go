package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/user"
)

const accountsRedirect = "/#!/settings/accounts"

// LinkOAuthProfile signs in (creating on first sight) the owner of profile,
// or, when current is set, attaches profile to that user as an additional
// provider.
func (s *Service) LinkOAuthProfile(ctx context.Context, current *user.User, profile user.Profile) (LinkResult, error) {
	if profile.Provider == "" || profile.Identifier() == "" {
		return LinkResult{}, apperr.Validation("provider", "Invalid provider profile")
	}

	if current == nil {
		return s.signInWithProfile(ctx, profile)
	}

	u, err := s.users.GetByID(ctx, current.ID)
	if err != nil {
		return LinkResult{}, err
	}

	if u.LinkedTo(profile.Provider) {
		s.prom.ObserveAuth("oauth_link", "already_connected")
		return LinkResult{}, apperr.ErrAlreadyConnected
	}

	extra := make(map[string]user.ProviderData, len(u.AdditionalProvidersData)+1)
	for k, v := range u.AdditionalProvidersData {
		extra[k] = v
	}
	extra[profile.Provider] = profile.ProviderData

	updated, err := s.users.SetAdditionalProviders(ctx, u.ID, extra)
	if err != nil {
		return LinkResult{}, err
	}

	s.prom.ObserveAuth("oauth_link", "linked")
	s.logger.InfoContext(ctx, "provider linked", "user_id", u.ID, "provider", profile.Provider)

	return LinkResult{User: updated.Sanitize(), RedirectURL: accountsRedirect}, nil
}

func (s *Service) signInWithProfile(ctx context.Context, profile user.Profile) (LinkResult, error) {
	found, err := s.users.FindByProvider(ctx, profile.Provider, profile.IdentifierField, profile.Identifier())
	if err == nil {
		s.prom.ObserveAuth("oauth", string(OutcomeAuthenticated))
		return LinkResult{User: found.Sanitize()}, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return LinkResult{}, err
	}

	base := profile.Username
	if base == "" {
		base = profile.Email
	}

	username, err := s.creds.UniqueUsername(ctx, base)
	if err != nil {
		return LinkResult{}, fmt.Errorf("unique username: %w", err)
	}

	displayName := profile.DisplayName
	if displayName == "" {
		displayName = strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	}

	created, err := s.users.Create(ctx, user.User{
		Username:         username,
		Email:            strings.TrimSpace(profile.Email),
		FirstName:        profile.FirstName,
		LastName:         profile.LastName,
		DisplayName:      displayName,
		AppName:          strings.ToLower(s.appName),
		Provider:         profile.Provider,
		ProviderData:     profile.ProviderData,
		KnownIPAddresses: []string{},
		Roles:            []string{},
	})
	if err != nil {
		return LinkResult{}, err
	}

	s.prom.ObserveAuth("oauth", "created")
	s.logger.InfoContext(ctx, "user created from provider", "user_id", created.ID, "provider", profile.Provider)

	return LinkResult{User: created.Sanitize()}, nil
}

// UnlinkOAuthProvider drops an additional provider. Unlinking something that
// was never linked returns the user untouched without writing.
func (s *Service) UnlinkOAuthProvider(ctx context.Context, current user.User, provider string) (user.User, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return user.User{}, apperr.Validation("provider", "Invalid provider")
	}

	u, err := s.users.GetByID(ctx, current.ID)
	if err != nil {
		return user.User{}, err
	}

	if _, ok := u.AdditionalProvidersData[provider]; !ok {
		return u.Sanitize(), nil
	}

	extra := make(map[string]user.ProviderData, len(u.AdditionalProvidersData))
	for k, v := range u.AdditionalProvidersData {
		if k != provider {
			extra[k] = v
		}
	}

	updated, err := s.users.SetAdditionalProviders(ctx, u.ID, extra)
	if err != nil {
		return user.User{}, err
	}

	s.logger.InfoContext(ctx, "provider unlinked", "user_id", u.ID, "provider", provider)
	return updated.Sanitize(), nil
}
