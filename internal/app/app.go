// Package app wires stores and services together. cmd/api, the admin CLI and
// the end-to-end tests all build the same graph through it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tingyu91/snsjf/internal/auth"
	"github.com/tingyu91/snsjf/internal/authn"
	"github.com/tingyu91/snsjf/internal/authz"
	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/credentials"
	"github.com/tingyu91/snsjf/internal/db"
	apphttp "github.com/tingyu91/snsjf/internal/http"
	"github.com/tingyu91/snsjf/internal/http/handlers"
	"github.com/tingyu91/snsjf/internal/notifications"
	"github.com/tingyu91/snsjf/internal/oauth"
	"github.com/tingyu91/snsjf/internal/observability"
	"github.com/tingyu91/snsjf/internal/redisclient"
	"github.com/tingyu91/snsjf/internal/repo/memory"
	"github.com/tingyu91/snsjf/internal/repo/postgres"
	"github.com/tingyu91/snsjf/internal/security"
	"github.com/tingyu91/snsjf/internal/session"
)

type UserStore interface {
	authn.UserStore
	credentials.UserLookup
	db.AdminUserStore
}

type RoleStore interface {
	handlers.RoleStore
	authz.RoleReader
	db.AdminRoleStore
}

// Stores is one persistence backend.
type Stores struct {
	Users    UserStore
	Roles    RoleStore
	Resets   authn.ResetStore
	Sessions session.Store
	// Ping backs /readyz; nil means always ready.
	Ping func() error
	// Close releases connections.
	Close func()
}

// MemoryStores keeps everything in process. Dev and tests only.
func MemoryStores() Stores {
	users := memory.NewUsersRepo()

	return Stores{
		Users:    users,
		Roles:    memory.NewRolesRepo(),
		Resets:   memory.NewResetTokensRepo(users),
		Sessions: session.NewMemoryStore(),
		Close:    func() {},
	}
}

// OpenStores connects the backend named by cfg.StoreDriver and the session
// store named by cfg.Session.Driver. Postgres is migrated before use.
func OpenStores(ctx context.Context, cfg config.Config, prom *observability.Prom) (Stores, error) {
	var stores Stores

	switch cfg.StoreDriver {
	case "memory":
		stores = MemoryStores()
	case "postgres":
		if err := db.Migrate(ctx, cfg.DBURL); err != nil {
			return Stores{}, fmt.Errorf("migrate: %w", err)
		}

		pool, err := db.NewPool(ctx, cfg.DBURL, 10)
		if err != nil {
			return Stores{}, fmt.Errorf("db pool: %w", err)
		}

		stores = Stores{
			Users:  postgres.NewUsersRepo(pool, prom),
			Roles:  postgres.NewRolesRepo(pool, prom),
			Resets: postgres.NewResetTokensRepo(pool, prom),
			Ping: func() error {
				pctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				return pool.Ping(pctx)
			},
			Close: pool.Close,
		}
	default:
		return Stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	switch cfg.Session.Driver {
	case "memory":
		stores.Sessions = session.NewMemoryStore()
	case "redis":
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := rc.Ping(pctx); err != nil {
			stores.Close()
			_ = rc.Close()
			return Stores{}, fmt.Errorf("redis: %w", err)
		}

		stores.Sessions = session.NewRedisStore(rc)

		closeStores := stores.Close
		stores.Close = func() {
			closeStores()
			_ = rc.Close()
		}
	default:
		stores.Close()
		return Stores{}, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
	}

	return stores, nil
}

// Services are built once and shared by every request.
type Services struct {
	Auth     *authn.Service
	Authz    *authz.Service
	Sessions *session.Manager
	OAuth    *oauth.Registry
}

func NewServices(cfg config.Config, stores Stores, notifier notifications.Notifier, logger *slog.Logger, prom *observability.Prom) Services {
	creds := credentials.NewValidator(stores.Users, cfg.IllegalUsernames, security.DefaultPasswordPolicy())

	protected := notifications.NewProtectedNotifier(notifier, notifications.ProtectedNotifierConfig{}, prom.ObserveNotify)

	authSvc := authn.NewService(authn.Options{
		Users:          stores.Users,
		Credentials:    creds,
		Resets:         stores.Resets,
		Tokens:         auth.NewResetTokens(cfg.Reset.Secret, cfg.Reset.TTL, cfg.AppName),
		Notifier:       protected,
		Logger:         logger,
		Prom:           prom,
		AppName:        cfg.AppName,
		PasswordMaxAge: cfg.PasswordMaxAge(),
		ResetURL:       cfg.Reset.URL,
	})

	return Services{
		Auth:     authSvc,
		Authz:    authz.NewService(stores.Roles, stores.Users, 5*time.Second),
		Sessions: session.NewManager(stores.Sessions, cfg.Session.MaxAge, prom),
		OAuth:    oauth.FromConfig(cfg.OAuth),
	}
}

// NewRouter builds the HTTP surface. gatherer may be nil to skip /metrics.
func NewRouter(cfg config.Config, stores Stores, svc Services, prom *observability.Prom, gatherer prometheus.Gatherer) *gin.Engine {
	return apphttp.NewRouter(apphttp.Deps{
		Cfg:        cfg,
		Auth:       svc.Auth,
		Sessions:   svc.Sessions,
		Strategies: svc.OAuth,
		Roles:      stores.Roles,
		Authz:      svc.Authz,
		Prom:       prom,
		Gatherer:   gatherer,
		Ping:       stores.Ping,
	})
}
