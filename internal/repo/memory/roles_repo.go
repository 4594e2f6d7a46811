package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tingyu91/snsjf/internal/apperr"
	"github.com/tingyu91/snsjf/internal/domain/role"
)

type RolesRepo struct {
	mu    sync.RWMutex
	items map[string]role.Role
	seq   map[string]int64 // creation order, for newest-first listing
	next  int64
}

func NewRolesRepo() *RolesRepo {
	return &RolesRepo{
		items: make(map[string]role.Role),
		seq:   make(map[string]int64),
	}
}

func roleNotFound(op string) error {
	return &apperr.StoreError{Kind: apperr.KindNotFound, Op: op, Message: "Role not found", Err: role.ErrNotFound}
}

func (r *RolesRepo) GetAll(ctx context.Context) ([]role.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]role.Role, 0, len(r.items))
	for _, ro := range r.items {
		out = append(out, cloneRole(ro))
	}

	sort.Slice(out, func(i, j int) bool {
		return r.seq[out[i].ID] > r.seq[out[j].ID]
	})
	return out, nil
}

func (r *RolesRepo) Get(ctx context.Context, id string) (role.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ro, ok := r.items[id]
	if !ok {
		return role.Role{}, roleNotFound("roles.get")
	}
	return cloneRole(ro), nil
}

func (r *RolesRepo) FindByName(ctx context.Context, name string) (role.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ro := range r.items {
		if ro.Name == name {
			return cloneRole(ro), nil
		}
	}
	return role.Role{}, roleNotFound("roles.find_by_name")
}

func (r *RolesRepo) ListForUser(ctx context.Context, userID string) ([]role.Role, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]role.Role, 0)
	for _, ro := range all {
		if slices.Contains(ro.Users, userID) {
			out = append(out, ro)
		}
	}
	return out, nil
}

func (r *RolesRepo) Create(ctx context.Context, req role.CreateRoleRequest) (role.Role, error) {
	ro := role.Role{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Users:       append([]string{}, req.Users...),
		Permissions: append([]int64{}, req.Permissions...),
		CreatedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Name == ro.Name {
			return role.Role{}, &apperr.StoreError{Kind: apperr.KindConflict, Op: "roles.create", Message: "Name already exists"}
		}
	}

	r.next++
	r.seq[ro.ID] = r.next
	r.items[ro.ID] = ro

	return cloneRole(ro), nil
}

func (r *RolesRepo) Update(ctx context.Context, id string, req role.UpdateRoleRequest) (role.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ro, ok := r.items[id]
	if !ok {
		return role.Role{}, roleNotFound("roles.update")
	}

	if req.Name != nil {
		for otherID, existing := range r.items {
			if otherID != id && existing.Name == *req.Name {
				return role.Role{}, &apperr.StoreError{Kind: apperr.KindConflict, Op: "roles.update", Message: "Name already exists"}
			}
		}
	}

	ro = req.Apply(cloneRole(ro))
	ro.ID = id
	r.items[id] = ro

	return cloneRole(ro), nil
}

func (r *RolesRepo) Delete(ctx context.Context, id string) (role.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ro, ok := r.items[id]
	if !ok {
		return role.Role{}, roleNotFound("roles.delete")
	}

	delete(r.items, id)
	delete(r.seq, id)

	return cloneRole(ro), nil
}

func (r *RolesRepo) ConnectPermission(ctx context.Context, roleID string, permID int64) (role.Role, error) {
	return r.mutate("roles.connect_permission", roleID, func(ro role.Role) role.Role {
		ro.Permissions = append(ro.Permissions, permID)
		return ro
	})
}

func (r *RolesRepo) DisconnectPermission(ctx context.Context, roleID string, permID int64) (role.Role, error) {
	return r.mutate("roles.disconnect_permission", roleID, func(ro role.Role) role.Role {
		ro.Permissions = role.RemoveAllInt(ro.Permissions, permID)
		return ro
	})
}

func (r *RolesRepo) AddUser(ctx context.Context, userID, roleID string) (role.Role, error) {
	return r.mutate("roles.add_user", roleID, func(ro role.Role) role.Role {
		ro.Users = append(ro.Users, userID)
		return ro
	})
}

func (r *RolesRepo) RemoveUser(ctx context.Context, userID, roleID string) (role.Role, error) {
	return r.mutate("roles.remove_user", roleID, func(ro role.Role) role.Role {
		ro.Users = role.RemoveAllString(ro.Users, userID)
		return ro
	})
}

func (r *RolesRepo) mutate(op, id string, fn func(role.Role) role.Role) (role.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ro, ok := r.items[id]
	if !ok {
		return role.Role{}, roleNotFound(op)
	}

	ro = fn(cloneRole(ro))
	ro.ID = id
	r.items[id] = ro

	return cloneRole(ro), nil
}

func cloneRole(ro role.Role) role.Role {
	out := ro
	out.Users = append([]string{}, ro.Users...)
	out.Permissions = append([]int64{}, ro.Permissions...)
	return out
}
