// Package authz resolves a user's effective permissions from the roles that
// list them.
package authz

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/tingyu91/snsjf/internal/cache"
	"github.com/tingyu91/snsjf/internal/domain/role"
	"github.com/tingyu91/snsjf/internal/domain/user"
)

type RoleReader interface {
	Get(ctx context.Context, id string) (role.Role, error)
	ListForUser(ctx context.Context, userID string) ([]role.Role, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Service struct {
	roles RoleReader
	users UserReader
	cache *cache.Cache[[]int64]

	// gen is bumped by Invalidate so a computation that raced a role
	// mutation never stores its stale result.
	mu  sync.Mutex
	gen uint64
}

func NewService(roles RoleReader, users UserReader, ttl time.Duration) *Service {
	return &Service{
		roles: roles,
		users: users,
		cache: cache.New[[]int64](ttl),
	}
}

// PermissionsFor returns the sorted, de-duplicated union of permissions over
// every role listing userID plus the roles named on the user record.
func (s *Service) PermissionsFor(ctx context.Context, userID string) ([]int64, error) {
	if perms, ok := s.cache.Get(userID); ok {
		return perms, nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	roles, err := s.roles.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(roles))
	for _, r := range roles {
		seen[r.ID] = true
	}

	u, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		for _, roleID := range u.Roles {
			if seen[roleID] {
				continue
			}
			r, err := s.roles.Get(ctx, roleID)
			if err != nil {
				if errors.Is(err, role.ErrNotFound) {
					continue
				}
				return nil, err
			}
			seen[roleID] = true
			roles = append(roles, r)
		}
	case errors.Is(err, user.ErrNotFound):
	default:
		return nil, err
	}

	perms := make([]int64, 0)
	for _, r := range roles {
		perms = append(perms, r.Permissions...)
	}
	slices.Sort(perms)
	perms = slices.Compact(perms)

	s.mu.Lock()
	if s.gen == gen {
		s.cache.Set(userID, perms)
	}
	s.mu.Unlock()

	return perms, nil
}

func (s *Service) HasPermission(ctx context.Context, userID string, perm int64) (bool, error) {
	perms, err := s.PermissionsFor(ctx, userID)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(perms, perm)
	return found, nil
}

// Invalidate drops cached permissions after any role mutation.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.cache.Clear()
	s.mu.Unlock()
}
