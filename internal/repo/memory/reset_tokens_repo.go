package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tingyu91/snsjf/internal/domain/user"
	"github.com/tingyu91/snsjf/internal/security"
)

type ResetTokensRepo struct {
	mu    sync.Mutex
	items map[string]user.ResetToken
	users *UsersRepo
}

func NewResetTokensRepo(users *UsersRepo) *ResetTokensRepo {
	return &ResetTokensRepo{
		items: make(map[string]user.ResetToken),
		users: users,
	}
}

func (r *ResetTokensRepo) Create(ctx context.Context, t user.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[t.ID] = t
	return nil
}

// ResetPassword consumes the token and replaces the user's password under a
// single lock so a token can only ever be used once.
func (r *ResetTokensRepo) ResetPassword(ctx context.Context, tokenID, tokenHash, hash, salt string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[tokenID]
	if !ok || !t.Usable(now) || !security.ConstantTimeEqual(t.TokenHash, tokenHash) {
		return "", user.ErrResetTokenInvalid
	}

	if err := r.users.UpdatePassword(ctx, t.UserID, hash, salt, now); err != nil {
		return "", err
	}

	t.UsedAt = &now
	r.items[tokenID] = t

	return t.UserID, nil
}
