package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/role"
	"github.com/tingyu91/snsjf/internal/observability"
)

const roleColumns = `id, name, users, permissions, created_at`

type RolesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRolesRepo(pool *pgxpool.Pool, prom *observability.Prom) *RolesRepo {
	return &RolesRepo{pool: pool, prom: prom}
}

func roleNotFound(op string) error {
	return &apperr.StoreError{Kind: apperr.KindNotFound, Op: op, Message: "Role not found", Err: role.ErrNotFound}
}

func (r *RolesRepo) GetAll(ctx context.Context) ([]role.Role, error) {
	return r.queryMany(ctx, "roles.get_all",
		`SELECT `+roleColumns+` FROM roles ORDER BY created_at DESC, id DESC`)
}

func (r *RolesRepo) ListForUser(ctx context.Context, userID string) ([]role.Role, error) {
	return r.queryMany(ctx, "roles.list_for_user",
		`SELECT `+roleColumns+` FROM roles WHERE $1::text = ANY(users) ORDER BY created_at DESC`,
		userID,
	)
}

func (r *RolesRepo) Get(ctx context.Context, id string) (role.Role, error) {
	if uuid.Validate(id) != nil {
		return role.Role{}, roleNotFound("roles.get")
	}
	return r.queryOne(ctx, "roles.get", `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

func (r *RolesRepo) FindByName(ctx context.Context, name string) (role.Role, error) {
	return r.queryOne(ctx, "roles.find_by_name", `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
}

func (r *RolesRepo) Create(ctx context.Context, req role.CreateRoleRequest) (role.Role, error) {
	ro := role.Role{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Users:       append([]string{}, req.Users...),
		Permissions: append([]int64{}, req.Permissions...),
		CreatedAt:   time.Now().UTC(),
	}

	return r.queryOne(ctx, "roles.create",
		`INSERT INTO roles (id, name, users, permissions, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+roleColumns,
		ro.ID, ro.Name, ro.Users, ro.Permissions, ro.CreatedAt,
	)
}

// Update sets only the fields present in req. The id never changes.
func (r *RolesRepo) Update(ctx context.Context, id string, req role.UpdateRoleRequest) (role.Role, error) {
	if uuid.Validate(id) != nil {
		return role.Role{}, roleNotFound("roles.update")
	}

	var users []string
	if req.Users != nil {
		users = append([]string{}, (*req.Users)...)
	}
	var perms []int64
	if req.Permissions != nil {
		perms = append([]int64{}, (*req.Permissions)...)
	}

	return r.queryOne(ctx, "roles.update",
		`UPDATE roles
		SET name = COALESCE($2, name),
			users = CASE WHEN $3::boolean THEN $4::text[] ELSE users END,
			permissions = CASE WHEN $5::boolean THEN $6::bigint[] ELSE permissions END
		WHERE id = $1
		RETURNING `+roleColumns,
		id, req.Name, req.Users != nil, users, req.Permissions != nil, perms,
	)
}

func (r *RolesRepo) Delete(ctx context.Context, id string) (role.Role, error) {
	if uuid.Validate(id) != nil {
		return role.Role{}, roleNotFound("roles.delete")
	}
	return r.queryOne(ctx, "roles.delete", `DELETE FROM roles WHERE id = $1 RETURNING `+roleColumns, id)
}

func (r *RolesRepo) ConnectPermission(ctx context.Context, roleID string, permID int64) (role.Role, error) {
	return r.mutate(ctx, "roles.connect_permission",
		`UPDATE roles SET permissions = array_append(permissions, $2::bigint) WHERE id = $1 RETURNING `+roleColumns,
		roleID, permID,
	)
}

// DisconnectPermission removes every occurrence of permID.
func (r *RolesRepo) DisconnectPermission(ctx context.Context, roleID string, permID int64) (role.Role, error) {
	return r.mutate(ctx, "roles.disconnect_permission",
		`UPDATE roles SET permissions = array_remove(permissions, $2::bigint) WHERE id = $1 RETURNING `+roleColumns,
		roleID, permID,
	)
}

func (r *RolesRepo) AddUser(ctx context.Context, userID, roleID string) (role.Role, error) {
	return r.mutate(ctx, "roles.add_user",
		`UPDATE roles SET users = array_append(users, $2::text) WHERE id = $1 RETURNING `+roleColumns,
		roleID, userID,
	)
}

func (r *RolesRepo) RemoveUser(ctx context.Context, userID, roleID string) (role.Role, error) {
	return r.mutate(ctx, "roles.remove_user",
		`UPDATE roles SET users = array_remove(users, $2::text) WHERE id = $1 RETURNING `+roleColumns,
		roleID, userID,
	)
}

func (r *RolesRepo) mutate(ctx context.Context, op, query, roleID string, arg any) (role.Role, error) {
	if uuid.Validate(roleID) != nil {
		return role.Role{}, roleNotFound(op)
	}
	return r.queryOne(ctx, op, query, roleID, arg)
}

func (r *RolesRepo) queryOne(ctx context.Context, op, query string, args ...any) (role.Role, error) {
	var ro role.Role

	err := r.prom.ObserveDB(op, func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&ro.ID,
			&ro.Name,
			&ro.Users,
			&ro.Permissions,
			&ro.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return role.Role{}, roleNotFound(op)
		}
		return role.Role{}, apperr.Store(op, err)
	}
	return ro, nil
}

func (r *RolesRepo) queryMany(ctx context.Context, op, query string, args ...any) (out []role.Role, err error) {
	out = []role.Role{}

	err = r.prom.ObserveDB(op, func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ro role.Role
			if err := rows.Scan(&ro.ID, &ro.Name, &ro.Users, &ro.Permissions, &ro.CreatedAt); err != nil {
				return err
			}
			out = append(out, ro)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, apperr.Store(op, err)
	}
	return out, nil
}
