package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env     string `env:"APP_ENV" envDefault:"dev"`
	AppName string `env:"APP_NAME" envDefault:"meancore"`
	Port    int    `env:"PORT" envDefault:"8080"`

	// DATABASE_URL wins over the DB_* parts when set.
	DBURL      string `env:"DATABASE_URL"`
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"meancore"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"meancore"`
	DBName     string `env:"DB_NAME" envDefault:"meancore"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// postgres | memory
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Session Session
	Reset   Reset
	OAuth   OAuth
	Admin   Admin

	PasswordMaxAgeDays int      `env:"PASSWORD_MAX_AGE_DAYS" envDefault:"0"`
	IllegalUsernames   []string `env:"ILLEGAL_USERNAMES" envSeparator:"," envDefault:"meancore,administrator,password,admin,user,unknown,anonymous,null,undefined,api"`

	// permission id required by the role administration routes
	RolesAdminPermission int64 `env:"PERM_ROLES_ADMIN" envDefault:"1"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type Session struct {
	// postgres deployments keep sessions in redis; memory is for dev and tests
	Driver string        `env:"SESSION_DRIVER" envDefault:"redis"`
	Key    string        `env:"SESSION_KEY" envDefault:"sessionId"`
	MaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
	Secure bool          `env:"SESSION_SECURE" envDefault:"false"`
}

type Reset struct {
	Secret string        `env:"RESET_TOKEN_SECRET" envDefault:"dev-reset-secret-change-me"`
	TTL    time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
	URL    string        `env:"RESET_URL" envDefault:"http://localhost:3000/#!/password/reset"`
}

type OAuth struct {
	CallbackBaseURL string `env:"OAUTH_CALLBACK_BASE_URL" envDefault:"http://localhost:8080"`

	GoogleClientID     string `env:"OAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH_GOOGLE_CLIENT_SECRET"`

	GitHubClientID     string `env:"OAUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"OAUTH_GITHUB_CLIENT_SECRET"`

	StateTTL time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
}

type Admin struct {
	Username string `env:"ADMIN_USERNAME" envDefault:"root"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	RoleName string `env:"ADMIN_ROLE_NAME" envDefault:"administrators"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.AppName = strings.ToLower(strings.TrimSpace(cfg.AppName))

	if cfg.DBURL == "" {
		cfg.DBURL = cfg.buildDBURL()
	}

	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func (c Config) PasswordMaxAge() time.Duration {
	return time.Duration(c.PasswordMaxAgeDays) * 24 * time.Hour
}

func (c Config) buildDBURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	return context.WithTimeout(parent, duration)
}
