// Package authn drives the sign-up, sign-in, provider linking and password
// reset flows. It never touches transport; callers turn results into
// responses and sessions.
package authn

import (
	"context"
	"log/slog"
	"time"

	"github.com/tingyu91/snsjf/internal/auth"
	"github.com/tingyu91/snsjf/internal/credentials"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/notifications"
	"github.com/tingyu91/snsjf/internal/observability"
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	FindByProvider(ctx context.Context, provider, field, value string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	AddKnownIP(ctx context.Context, id, ip string) (user.User, error)
	SetAdditionalProviders(ctx context.Context, id string, data map[string]user.ProviderData) (user.User, error)
}

type ResetStore interface {
	Create(ctx context.Context, t user.ResetToken) error
	ResetPassword(ctx context.Context, tokenID, tokenHash, hash, salt string, now time.Time) (string, error)
}

type Credentials interface {
	Validate(ctx context.Context, identifier string) (credentials.Validation, error)
	CheckUsername(username string) error
	CheckPassword(secret string) error
	UniqueUsername(ctx context.Context, base string) (string, error)
}

type Options struct {
	Users       UserStore
	Credentials Credentials
	Resets      ResetStore
	Tokens      *auth.ResetTokens
	Notifier    notifications.Notifier
	Logger      *slog.Logger
	Prom        *observability.Prom

	AppName string
	// PasswordMaxAge of 0 never expires local passwords.
	PasswordMaxAge time.Duration
	ResetURL       string
}

type Service struct {
	users    UserStore
	creds    Credentials
	resets   ResetStore
	tokens   *auth.ResetTokens
	notifier notifications.Notifier
	logger   *slog.Logger
	prom     *observability.Prom

	appName        string
	passwordMaxAge time.Duration
	resetURL       string

	now func() time.Time
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		users:          opts.Users,
		creds:          opts.Credentials,
		resets:         opts.Resets,
		tokens:         opts.Tokens,
		notifier:       opts.Notifier,
		logger:         logger,
		prom:           opts.Prom,
		appName:        opts.AppName,
		passwordMaxAge: opts.PasswordMaxAge,
		resetURL:       opts.ResetURL,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// ValidateUser reports whether a username or email is taken.
func (s *Service) ValidateUser(ctx context.Context, usernameOrEmail string) (bool, error) {
	v, err := s.creds.Validate(ctx, usernameOrEmail)
	if err != nil {
		return false, err
	}
	return v.Exists, nil
}
