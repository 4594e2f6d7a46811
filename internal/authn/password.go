package authn

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/notifications"
	"github.com/tingyu91/snsjf/internal/security"
)

// ForgotPassword issues a reset token for a local account and hands it to
// the notifier. Unknown identities are silently ignored so the response
// never reveals whether an account exists.
func (s *Service) ForgotPassword(ctx context.Context, usernameOrEmail string) error {
	v, err := s.creds.Validate(ctx, usernameOrEmail)
	if err != nil {
		return err
	}

	if !v.Exists || v.User.Provider != user.ProviderLocal {
		s.prom.ObserveAuth("forgot", "unknown")
		return nil
	}

	u := *v.User

	raw, jti, expiresAt, err := s.tokens.Issue(u.ID)
	if err != nil {
		return err
	}

	err = s.resets.Create(ctx, user.ResetToken{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: s.tokens.HashToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	})
	if err != nil {
		return err
	}

	err = s.notifier.SendPasswordReset(ctx, notifications.PasswordResetInput{
		UserID:    u.ID,
		Email:     u.Email,
		Username:  u.Username,
		ResetURL:  s.resetLink(raw),
		ExpiresIn: expiresAt.Sub(s.now()).Round(time.Second).String(),
	})
	if err != nil {
		// the token is stored; the user can ask again
		s.logger.WarnContext(ctx, "password reset notification failed", "user_id", u.ID, "err", err)
		s.prom.ObserveAuth("forgot", "notify_failed")
		return nil
	}

	s.prom.ObserveAuth("forgot", "sent")
	return nil
}

// ResetPassword checks the new secret first, then consumes the token.
func (s *Service) ResetPassword(ctx context.Context, token, newSecret string) (ResetResult, error) {
	if err := s.creds.CheckPassword(newSecret); err != nil {
		s.prom.ObserveAuth("reset", string(OutcomeInvalidSecret))
		return ResetResult{Outcome: OutcomeInvalidSecret}, nil
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.prom.ObserveAuth("reset", string(OutcomeTokenInvalid))
		return ResetResult{Outcome: OutcomeTokenInvalid}, nil
	}

	hash, salt, err := security.HashPassword(newSecret)
	if err != nil {
		return ResetResult{}, err
	}

	userID, err := s.resets.ResetPassword(ctx, claims.JTI, s.tokens.HashToken(token), hash, salt, s.now())
	if err != nil {
		if errors.Is(err, user.ErrResetTokenInvalid) || errors.Is(err, user.ErrNotFound) {
			s.prom.ObserveAuth("reset", string(OutcomeTokenInvalid))
			return ResetResult{Outcome: OutcomeTokenInvalid}, nil
		}
		return ResetResult{}, err
	}

	s.prom.ObserveAuth("reset", string(OutcomeSecretReset))
	s.logger.InfoContext(ctx, "password reset", "user_id", userID)

	return ResetResult{Outcome: OutcomeSecretReset}, nil
}

func (s *Service) resetLink(raw string) string {
	if s.resetURL == "" {
		return ""
	}
	return s.resetURL + "?token=" + url.QueryEscape(raw)
}
