package authn

import (
	"context"
	"strings"

	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/security"
)

// SignUp registers a local account. A taken username is not an error: the
// result carries a free alternative instead.
func (s *Service) SignUp(ctx context.Context, req user.SignUpRequest, ip string) (SignUpResult, error) {
	username := user.Fold(req.Username)

	if username == "" {
		derived, err := s.creds.UniqueUsername(ctx, req.Email)
		if err != nil {
			return SignUpResult{}, apperr.SignUpError(err)
		}
		username = derived
	} else {
		v, err := s.creds.Validate(ctx, username)
		if err != nil {
			return SignUpResult{}, apperr.SignUpError(err)
		}

		if v.Exists {
			possible, err := s.creds.UniqueUsername(ctx, username)
			if err != nil {
				return SignUpResult{}, apperr.SignUpError(err)
			}

			s.prom.ObserveAuth("signup", string(OutcomeUserExists))
			return SignUpResult{Outcome: OutcomeUserExists, PossibleUsername: possible}, nil
		}
	}

	if err := s.creds.CheckUsername(username); err != nil {
		return SignUpResult{}, apperr.SignUpError(err)
	}

	if err := s.creds.CheckPassword(req.Password); err != nil {
		return SignUpResult{}, apperr.SignUpError(err)
	}

	hash, salt, err := security.HashPassword(req.Password)
	if err != nil {
		return SignUpResult{}, apperr.SignUpError(err)
	}

	now := s.now()
	u := user.User{
		Username:          username,
		Email:             strings.TrimSpace(req.Email),
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		DisplayName:       strings.TrimSpace(req.FirstName + " " + req.LastName),
		AppName:           strings.ToLower(s.appName),
		PasswordHash:      hash,
		Salt:              salt,
		Provider:          user.ProviderLocal,
		KnownIPAddresses:  knownIPs(ip),
		Roles:             []string{},
		PasswordUpdatedAt: &now,
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		s.prom.ObserveAuth("signup", "error")
		return SignUpResult{}, apperr.SignUpError(err)
	}

	s.prom.ObserveAuth("signup", string(OutcomeAuthenticated))
	s.logger.InfoContext(ctx, "user signed up", "user_id", created.ID, "username", created.Username)

	return SignUpResult{Outcome: OutcomeAuthenticated, User: created.Sanitize()}, nil
}

func knownIPs(ip string) []string {
	if ip == "" {
		return []string{}
	}
	return []string{ip}
}
