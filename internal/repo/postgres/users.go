package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/observability"
)

const userColumns = `id, username, email, first_name, last_name, display_name, app_name,
	password_hash, salt, provider, provider_data, additional_providers_data,
	known_ip_addresses, roles, password_updated_at, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if uuid.Validate(id) != nil {
		return user.User{}, user.ErrNotFound
	}

	return r.queryOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, error) {
	return r.queryOne(ctx, "users.find_by_username_or_email",
		`SELECT `+userColumns+`
		FROM users
		WHERE lower(username) = $1 OR lower(email) = $1
		LIMIT 1`,
		user.Fold(identifier),
	)
}

func (r *UsersRepo) FindByProvider(ctx context.Context, provider, field, value string) (user.User, error) {
	if value == "" {
		return user.User{}, user.ErrNotFound
	}

	return r.queryOne(ctx, "users.find_by_provider",
		`SELECT `+userColumns+`
		FROM users
		WHERE (provider = $1::text AND provider_data ->> $2::text = $3::text)
		   OR (additional_providers_data -> $1::text ->> $2::text = $3::text)
		LIMIT 1`,
		provider, field, value,
	)
}

func (r *UsersRepo) UsernameExists(ctx context.Context, username string) (exists bool, err error) {
	err = r.observe("users.username_exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE lower(username) = $1)`,
			user.Fold(username),
		).Scan(&exists)
	})

	if err != nil {
		err = apperr.Store("users.username_exists", err)
	}
	return
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Username = user.Fold(u.Username)

	if u.KnownIPAddresses == nil {
		u.KnownIPAddresses = []string{}
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}

	providerData, extra, err := encodeProviders(u)
	if err != nil {
		return user.User{}, err
	}

	err = r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, username, email, first_name, last_name, display_name, app_name,
				password_hash, salt, provider, provider_data, additional_providers_data,
				known_ip_addresses, roles, password_updated_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.DisplayName, u.AppName,
			u.PasswordHash, u.Salt, u.Provider, providerData, extra,
			u.KnownIPAddresses, u.Roles, u.PasswordUpdatedAt, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return user.User{}, apperr.Store("users.create", err)
	}

	return u, nil
}

// AddKnownIP appends ip unless it is already recorded.
func (r *UsersRepo) AddKnownIP(ctx context.Context, id, ip string) (user.User, error) {
	return r.queryOne(ctx, "users.add_known_ip",
		`UPDATE users
		SET known_ip_addresses = CASE
				WHEN $2::text = ANY(known_ip_addresses) THEN known_ip_addresses
				ELSE array_append(known_ip_addresses, $2::text)
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, ip,
	)
}

func (r *UsersRepo) SetAdditionalProviders(ctx context.Context, id string, data map[string]user.ProviderData) (user.User, error) {
	if data == nil {
		data = map[string]user.ProviderData{}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return user.User{}, err
	}

	return r.queryOne(ctx, "users.set_additional_providers",
		`UPDATE users
		SET additional_providers_data = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, raw,
	)
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, hash, salt string, at time.Time) error {
	return updatePassword(ctx, r.pool, r.prom, id, hash, salt, at)
}

// AddRole records roleID on the user's own roles list.
func (r *UsersRepo) AddRole(ctx context.Context, id, roleID string) error {
	var tag int64

	err := r.observe("users.add_role", func() error {
		ct, err := r.pool.Exec(ctx,
			`UPDATE users
			SET roles = CASE WHEN $2::text = ANY(roles) THEN roles ELSE array_append(roles, $2::text) END,
				updated_at = NOW()
			WHERE id = $1`,
			id, roleID,
		)
		tag = ct.RowsAffected()
		return err
	})

	if err != nil {
		return apperr.Store("users.add_role", err)
	}
	if tag == 0 {
		return user.ErrNotFound
	}
	return nil
}

// dbtx is satisfied by both the pool and a pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *UsersRepo) queryOne(ctx context.Context, op, query string, args ...any) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		return scanUser(r.pool.QueryRow(ctx, query, args...), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, apperr.Store(op, err)
	}
	return u, nil
}

func scanUser(row pgx.Row, u *user.User) error {
	var providerData, extra []byte

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.DisplayName,
		&u.AppName,
		&u.PasswordHash,
		&u.Salt,
		&u.Provider,
		&providerData,
		&extra,
		&u.KnownIPAddresses,
		&u.Roles,
		&u.PasswordUpdatedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if len(providerData) > 0 {
		if err := json.Unmarshal(providerData, &u.ProviderData); err != nil {
			return err
		}
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &u.AdditionalProvidersData); err != nil {
			return err
		}
	}
	if len(u.AdditionalProvidersData) == 0 {
		u.AdditionalProvidersData = nil
	}
	return nil
}

func encodeProviders(u user.User) (providerData []byte, extra []byte, err error) {
	pd := u.ProviderData
	if pd == nil {
		pd = user.ProviderData{}
	}
	if providerData, err = json.Marshal(pd); err != nil {
		return
	}

	ex := u.AdditionalProvidersData
	if ex == nil {
		ex = map[string]user.ProviderData{}
	}
	extra, err = json.Marshal(ex)
	return
}
