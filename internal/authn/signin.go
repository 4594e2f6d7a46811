package authn

import (
	"context"
	"errors"
	"fmt"

	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/security"
)

// SignIn checks local credentials. Wrong credentials are an outcome, not an
// error; a first-time IP is remembered before the user is returned.
func (s *Service) SignIn(ctx context.Context, req user.SignInRequest, ip string) (SignInResult, error) {
	v, err := s.creds.Validate(ctx, req.UsernameOrEmail)
	if err != nil {
		s.prom.ObserveAuth("signin", "error")
		return SignInResult{}, apperr.SignInError(fmt.Errorf("%w: %w", ErrStrategy, err))
	}

	if !v.Exists || !v.User.HasPassword() {
		s.prom.ObserveAuth("signin", string(OutcomeInvalidSecret))
		return SignInResult{Outcome: OutcomeInvalidSecret}, nil
	}

	u := *v.User

	if err := security.CheckPassword(u.PasswordHash, u.Salt, req.Password); err != nil {
		if errors.Is(err, security.ErrMismatchedPassword) {
			s.prom.ObserveAuth("signin", string(OutcomeInvalidSecret))
			return SignInResult{Outcome: OutcomeInvalidSecret}, nil
		}
		s.prom.ObserveAuth("signin", "error")
		return SignInResult{}, apperr.SignInError(fmt.Errorf("%w: %w", ErrStrategy, err))
	}

	if s.passwordExpired(u) {
		s.prom.ObserveAuth("signin", string(OutcomeExpiredPassword))
		return SignInResult{Outcome: OutcomeExpiredPassword}, nil
	}

	if ip != "" && !u.KnowsIP(ip) {
		updated, err := s.users.AddKnownIP(ctx, u.ID, ip)
		if err != nil {
			s.prom.ObserveAuth("signin", "error")
			return SignInResult{}, apperr.SignInError(err)
		}

		s.logger.InfoContext(ctx, "sign-in from new ip", "user_id", u.ID, "ip", ip)
		u = updated
	}

	s.prom.ObserveAuth("signin", string(OutcomeAuthenticated))
	return SignInResult{Outcome: OutcomeAuthenticated, User: u.Sanitize()}, nil
}

func (s *Service) passwordExpired(u user.User) bool {
	if s.passwordMaxAge <= 0 {
		return false
	}

	changed := u.CreatedAt
	if u.PasswordUpdatedAt != nil {
		changed = *u.PasswordUpdatedAt
	}
	return s.now().Sub(changed) > s.passwordMaxAge
}
