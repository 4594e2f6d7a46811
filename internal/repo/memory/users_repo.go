package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/user"
)

type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // id -> user
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return clone(u), nil
}

func (r *UsersRepo) FindByUsernameOrEmail(ctx context.Context, identifier string) (user.User, error) {
	folded := user.Fold(identifier)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == folded || user.Fold(u.Email) == folded {
			return clone(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	folded := user.Fold(username)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Username == folded {
			return true, nil
		}
	}
	return false, nil
}

func (r *UsersRepo) FindByProvider(ctx context.Context, provider, field, value string) (user.User, error) {
	if value == "" {
		return user.User{}, user.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Provider == provider && u.ProviderData.String(field) == value {
			return clone(u), nil
		}
		if extra, ok := u.AdditionalProvidersData[provider]; ok && extra.String(field) == value {
			return clone(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
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

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Username == u.Username {
			return user.User{}, &apperr.StoreError{Kind: apperr.KindConflict, Op: "users.create", Message: "Username already exists"}
		}
		if u.Email != "" && user.Fold(existing.Email) == user.Fold(u.Email) {
			return user.User{}, &apperr.StoreError{Kind: apperr.KindConflict, Op: "users.create", Message: "Email already exists"}
		}
	}

	r.items[u.ID] = clone(u)
	return clone(u), nil
}

func (r *UsersRepo) AddKnownIP(ctx context.Context, id, ip string) (user.User, error) {
	return r.update(id, func(u *user.User) {
		if !u.KnowsIP(ip) {
			u.KnownIPAddresses = append(u.KnownIPAddresses, ip)
		}
	})
}

func (r *UsersRepo) SetAdditionalProviders(ctx context.Context, id string, data map[string]user.ProviderData) (user.User, error) {
	return r.update(id, func(u *user.User) {
		u.AdditionalProvidersData = cloneProviders(data)
	})
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, hash, salt string, at time.Time) error {
	_, err := r.update(id, func(u *user.User) {
		u.PasswordHash = hash
		u.Salt = salt
		u.PasswordUpdatedAt = &at
	})
	return err
}

func (r *UsersRepo) AddRole(ctx context.Context, id, roleID string) error {
	_, err := r.update(id, func(u *user.User) {
		for _, existing := range u.Roles {
			if existing == roleID {
				return
			}
		}
		u.Roles = append(u.Roles, roleID)
	})
	return err
}

func (r *UsersRepo) update(id string, fn func(u *user.User)) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return clone(u), nil
}

func clone(u user.User) user.User {
	out := u
	out.KnownIPAddresses = append([]string{}, u.KnownIPAddresses...)
	out.Roles = append([]string{}, u.Roles...)
	out.AdditionalProvidersData = cloneProviders(u.AdditionalProvidersData)
	if u.PasswordUpdatedAt != nil {
		at := *u.PasswordUpdatedAt
		out.PasswordUpdatedAt = &at
	}
	return out
}

func cloneProviders(in map[string]user.ProviderData) map[string]user.ProviderData {
	if in == nil {
		return nil
	}
	out := make(map[string]user.ProviderData, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
