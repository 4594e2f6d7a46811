package db

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/domain/role"
	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/security"
)

type AdminUserStore interface {
	FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type AdminRoleStore interface {
	FindByName(ctx context.Context, name string) (role.Role, error)
	Create(ctx context.Context, req role.CreateRoleRequest) (role.Role, error)
	ConnectPermission(ctx context.Context, roleID string, permID int64) (role.Role, error)
	AddUser(ctx context.Context, userID, roleID string) (role.Role, error)
}

// EnsureAdmin makes sure the configured admin exists and belongs to a role
// granting perm. Safe to run on every start; nothing happens without an
// admin password.
func EnsureAdmin(ctx context.Context, users AdminUserStore, roles AdminRoleStore, cfg config.Admin, appName string, perm int64) (user.User, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return user.User{}, nil
	}

	u, err := users.FindByUsernameOrEmail(ctx, cfg.Username)

	if errors.Is(err, user.ErrNotFound) {
		u, err = createAdmin(ctx, users, cfg, appName)
	}

	if err != nil {
		return user.User{}, err
	}

	r, err := roles.FindByName(ctx, cfg.RoleName)

	if errors.Is(err, role.ErrNotFound) {
		r, err = roles.Create(ctx, role.CreateRoleRequest{Name: cfg.RoleName})
	}

	if err != nil {
		return user.User{}, err
	}

	if !slices.Contains(r.Permissions, perm) {
		if r, err = roles.ConnectPermission(ctx, r.ID, perm); err != nil {
			return user.User{}, err
		}
	}

	if !slices.Contains(r.Users, u.ID) {
		if _, err = roles.AddUser(ctx, u.ID, r.ID); err != nil {
			return user.User{}, err
		}
	}

	return u.Sanitize(), nil
}

func createAdmin(ctx context.Context, users AdminUserStore, cfg config.Admin, appName string) (user.User, error) {
	hash, salt, err := security.HashPassword(cfg.Password)

	if err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()

	return users.Create(ctx, user.User{
		Username:          user.Fold(cfg.Username),
		Email:             cfg.Email,
		FirstName:         "Admin",
		LastName:          "User",
		DisplayName:       "Admin User",
		AppName:           appName,
		PasswordHash:      hash,
		Salt:              salt,
		Provider:          user.ProviderLocal,
		PasswordUpdatedAt: &now,
	})
}
